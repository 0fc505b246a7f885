package auth

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	authLogMu      sync.Mutex
	authLogEnabled = strings.EqualFold(os.Getenv("LOGGING"), "true")
	authLogPath    = filepath.Join("log", "auth.log")
)

// EnableAuthLog switches LogAuthAttempt on or off. The initial value comes
// from LOGGING=true.
func EnableAuthLog(enabled bool) {
	authLogMu.Lock()
	defer authLogMu.Unlock()
	authLogEnabled = enabled
}

// LogAuthAttempt appends an authentication attempt record to log/auth.log.
// Fields: timestamp (RFC3339) | level | authType | status | identifier? | message?
// level: debug|info|warning|error|fatal
// authType: Local|Logout|...
// status: Success|Fail
// identifier: username or userID (optional)
// message: additional info (optional)
func LogAuthAttempt(level string, authType string, status string, identifier string, message string) {
	authLogMu.Lock()
	defer authLogMu.Unlock()

	if !authLogEnabled {
		return
	}

	// best-effort: if logging fails, do not crash the app, just return
	if err := os.MkdirAll(filepath.Dir(authLogPath), 0o750); err != nil {
		return
	}
	f, err := os.OpenFile(authLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	ts := time.Now().UTC().Format(time.RFC3339)
	parts := []string{ts, level, authType, status}
	if identifier != "" {
		parts = append(parts, identifier)
	}
	if message != "" {
		parts = append(parts, message)
	}
	_, _ = f.WriteString(strings.Join(parts, " | ") + "\n")
}
