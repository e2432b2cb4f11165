package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger for the given environment. Anything other
// than "production" gets the colored console development logger.
func New(environment, level string) (*zap.Logger, error) {
	cfg := DefaultConfig()
	if environment != "production" {
		cfg = DevelopmentConfig()
	}
	if level != "" {
		cfg.Level = level
	}
	cfg.InitialFields = map[string]interface{}{"env": environment}
	return cfg.Build()
}
