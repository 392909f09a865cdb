package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	envHome       = "PORTAL_CAPTURE_HOME"
	envDriversDir = "PORTAL_CAPTURE_DRIVERS"
	appName       = "portal-capture"
)

var (
	homeOnce sync.Once
	homeDir  string
)

// homeCandidates are tried in order; the first non-empty result wins.
var homeCandidates = []func() string{
	func() string { return os.Getenv(envHome) },
	binaryRelativeHome,
	func() string {
		if cache, err := os.UserCacheDir(); err == nil {
			return filepath.Join(cache, appName)
		}
		return ""
	},
	func() string {
		if cwd, err := os.Getwd(); err == nil {
			return cwd
		}
		return ""
	},
}

// GetHome returns the directory holding installed browser drivers. It is
// $PORTAL_CAPTURE_HOME, the parent of a <home>/bin install, the user cache
// directory or the working directory, whichever resolves first. The result
// is cached for the life of the process.
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = "."
		for _, candidate := range homeCandidates {
			if dir := candidate(); dir != "" {
				homeDir = dir
				break
			}
		}
	})
	return homeDir
}

// GetDriversDir returns where the named driver is installed. For playwright,
// $PORTAL_CAPTURE_DRIVERS overrides the home-relative location.
func GetDriversDir(name string) string {
	if dir := os.Getenv(envDriversDir); dir != "" {
		return filepath.Join(dir, name)
	}
	return filepath.Join(GetHome(), "drivers", name)
}

func binaryRelativeHome() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	binDir := filepath.Dir(execPath)
	if filepath.Base(binDir) != "bin" {
		return ""
	}
	return filepath.Dir(binDir)
}

// ResetHome clears the cached home directory. Tests only.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
