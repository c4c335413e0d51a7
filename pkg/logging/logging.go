package logging

import (
	"go.uber.org/zap"
)

// Environment controls the logger configuration.
type Environment string

const (
	ProductionEnvironment  Environment = "production"
	DevelopmentEnvironment Environment = "development"
)

// NewLogger creates a zap logger configured for the given environment,
// tagged with the service name.
func NewLogger(environment Environment, service string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch environment {
	case ProductionEnvironment:
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", service)), nil
}
