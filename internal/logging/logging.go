// Package logging constructs the process-wide zap logger.
package logging

import "go.uber.org/zap"

// New builds a production zap logger, or a development logger when
// debug is true.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
