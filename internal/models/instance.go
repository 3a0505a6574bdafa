package models

import "time"

// InstanceInfo describes the primary instance holding the IPC endpoint.
// This corresponds to <runtime dir>/instance.yaml.
type InstanceInfo struct {
	Version   int       `yaml:"version"`
	PID       int       `yaml:"pid"`
	Endpoint  string    `yaml:"endpoint"`
	SessionID string    `yaml:"session_id"`
	StartedAt time.Time `yaml:"started_at"`
}

// NewInstanceInfo creates a new instance record with current values.
func NewInstanceInfo(endpoint string, pid int, sessionID string) *InstanceInfo {
	return &InstanceInfo{
		Version:   1,
		PID:       pid,
		Endpoint:  endpoint,
		SessionID: sessionID,
		StartedAt: time.Now().UTC(),
	}
}
