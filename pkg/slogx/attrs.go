// Package slogx holds the slog attributes shared across zentry.
package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
	// KeyProvider is the key for the provider attribute.
	KeyProvider = "provider"
)

// Error returns an "error" attribute holding the error message.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Recovered returns a "panic" attribute for a value obtained from recover.
func Recovered(v any) slog.Attr {
	return slog.String("panic", fmt.Sprint(v))
}

// Stringer creates an attribute from the string form of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// Provider returns the attribute identifying the provider a call went to.
func Provider(id fmt.Stringer) slog.Attr {
	return Stringer(KeyProvider, id)
}

// LoggerName returns an attribute naming the logger.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
