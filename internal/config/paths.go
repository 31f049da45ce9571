package config

import (
	"os"
	"path/filepath"
)

// ResolveHome returns the wrenchbot root directory.
// Priority: WRENCHBOT_HOME env > ~/.wrenchbot/
func ResolveHome() string {
	if home := os.Getenv("WRENCHBOT_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".wrenchbot"
	}
	return filepath.Join(userHome, ".wrenchbot")
}

// ResolveConfigPath finds the config file.
// Priority: --config flag > WRENCHBOT_HOME/config.yaml
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return filepath.Join(ResolveHome(), "config.yaml")
}

// Path returns the process-wide config file path (ResolveConfigPath("")).
func Path() string {
	return ResolveConfigPath("")
}

// DataDir returns the data directory, fixed at home/data.
func DataDir() string {
	return filepath.Join(ResolveHome(), "data")
}

// DefaultStorePath is where the conversation database lives unless the
// config says otherwise.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "wrenchbot.db")
}
