package config

import (
	"os"
	"syscall"

	"github.com/whatsit-app/whatsit/internal/models"
)

// LoadInstanceInfo loads the primary instance record from the runtime dir.
// Returns nil if the file doesn't exist.
func LoadInstanceInfo(p Paths) (*models.InstanceInfo, error) {
	path := p.InstanceFile()
	if !FileExists(path) {
		return nil, nil
	}

	var info models.InstanceInfo
	if err := LoadYAML(path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveInstanceInfo writes the primary instance record.
func SaveInstanceInfo(p Paths, info *models.InstanceInfo) error {
	return SaveYAML(p.InstanceFile(), info)
}

// RemoveInstanceInfo removes the instance record.
func RemoveInstanceInfo(p Paths) error {
	path := p.InstanceFile()
	if !FileExists(path) {
		return nil
	}
	return os.Remove(path)
}

// ProcessAlive reports whether a process with the given PID exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix FindProcess always succeeds; signal 0 checks existence.
	return process.Signal(syscall.Signal(0)) == nil
}
