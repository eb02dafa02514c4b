// Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"
)

// Level is an ordered log severity. Higher values are more severe.
// The zero value is LevelTrace.
type Level int8

const (
	// LevelTrace is the most verbose level: per-frame or per-call
	// detail that is only useful when chasing a specific problem.
	LevelTrace Level = iota

	// LevelDebug is development-time diagnostic detail.
	LevelDebug

	// LevelInfo is normal operational messages.
	LevelInfo

	// LevelWarning is unexpected but recoverable conditions.
	LevelWarning

	// LevelError is failures of an individual operation.
	LevelError

	// LevelCritical is failures that threaten the whole process.
	LevelCritical
)

// String returns the canonical lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

// ParseLevel parses a level name, case-insensitively. "warn" is
// accepted as an alias for "warning".
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so levels appear as
// names in YAML and JSON configuration.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
