package utils

import (
	"runtime"
	"sync"
	"time"
)

// Version describes the running build.
type Version struct {
	Version   string `json:"version"`
	Branch    string `json:"branch"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Arch      string `json:"arch"`
}

var (
	versionMu sync.RWMutex
	current   = Version{Version: "dev", Arch: runtime.GOOS + "/" + runtime.GOARCH}
	startedAt = time.Now()
)

// SetVersion populates the package-level version variables. Empty values
// keep their defaults.
func SetVersion(versionStr, branchStr, commitStr, buildDateStr, archStr string) {
	versionMu.Lock()
	defer versionMu.Unlock()
	if versionStr != "" {
		current.Version = versionStr
	}
	current.Branch = branchStr
	current.Commit = commitStr
	current.BuildDate = buildDateStr
	if archStr != "" {
		current.Arch = archStr
	}
}

// GetVersion returns the version information for the service.
func GetVersion() Version {
	versionMu.RLock()
	defer versionMu.RUnlock()
	return current
}

// Uptime is the time since the process started.
func Uptime() time.Duration {
	return time.Since(startedAt)
}
