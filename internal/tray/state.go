// Package tray implements the system tray icon and menu.
package tray

import "fmt"

// Settings provides the current values shown as menu check marks.
type Settings interface {
	MinimizeToTray() bool
	StartMinimizedInTray() bool
	MemoryLimitGiB() int
}

// Actions are invoked from menu clicks. They run on the tray's click
// goroutine and must not block.
type Actions interface {
	Show()
	Hide()
	// Quit force-quits, bypassing minimize-to-tray.
	Quit()
	SetMinimizeToTray(enabled bool)
	SetStartMinimizedInTray(enabled bool)
	SetMemoryLimitGiB(gib int)
}

// MemoryLimits are the choices in the "Memory limit" submenu. 0 disables
// the watchdog.
var MemoryLimits = []int{0, 1, 2, 4, 8}

func memoryLimitTitle(gib int) string {
	if gib <= 0 {
		return "Off"
	}
	return fmt.Sprintf("%d GiB", gib)
}

// memoryLimitIndex returns the submenu slot matching gib, or -1 when the
// configured value is not one of the presets.
func memoryLimitIndex(gib int) int {
	for i, v := range MemoryLimits {
		if v == gib {
			return i
		}
	}
	return -1
}

func formatTooltip(name string, gib int) string {
	if gib <= 0 {
		return name
	}
	return fmt.Sprintf("%s (memory limit %d GiB)", name, gib)
}
