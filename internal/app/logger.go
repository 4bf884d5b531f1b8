package app

import (
	"strings"

	"github.com/charlesng35/tradeflow/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server settings, defaulting to info/json.
func ConfigureLogging(server ServerConfig) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:  level,
		Format: strings.TrimSpace(server.LogFormat),
	})
}
