package main

import (
	"fmt"
	"log/slog"
	"strings"
)

// logLevelFlag is a flag for a slog level. It remembers whether it was set.
type logLevelFlag struct {
	value slog.Level
	isSet bool
}

func (l logLevelFlag) String() string {
	return l.value.String()
}

func (l *logLevelFlag) Set(value string) error {
	m := map[string]slog.Level{"DEBUG": slog.LevelDebug, "INFO": slog.LevelInfo, "WARN": slog.LevelWarn, "ERROR": slog.LevelError}
	v, ok := m[strings.ToUpper(value)]
	if !ok {
		return fmt.Errorf("unknown log level")
	}
	l.value = v
	l.isSet = true
	return nil
}
