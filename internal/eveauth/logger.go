package eveauth

// LeveledLogger is an interface that can be implemented by any logger
// or a logger wrapper to provide leveled logging (e.g. slog)
// The methods accept a message string and a variadic number of key-value pairs.
type LeveledLogger interface {
	Error(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}
