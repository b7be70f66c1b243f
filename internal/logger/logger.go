package logger

import (
	"go.uber.org/zap"
)

// New builds a zap logger for the given environment: human-readable output in
// development, JSON elsewhere.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewNamed builds an environment-appropriate logger carrying a service name.
func NewNamed(appEnv, name string) (*zap.Logger, error) {
	log, err := New(appEnv)
	if err != nil {
		return nil, err
	}
	return log.Named(name), nil
}
