package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.talk.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".talk")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// LockPath returns the lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the keyed store database path for a session.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "talk.db")
}

// MediaDir returns the default local attachment directory for a session.
func MediaDir(name string) string {
	return filepath.Join(Dir(name), "media")
}

// TokenPath returns the identity token path for a session.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token.jwt")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "talkd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
		MediaDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
