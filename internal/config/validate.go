package config

import (
	"log/slog"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate clamps out-of-range values to safe defaults and logs a warning
// for each correction. Unlike a hard validation pass, nothing here blocks
// startup — a misconfigured port or log level degrades gracefully rather
// than preventing the server from running at all.
func (c *Config) Validate() []error {
	var errs []error

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		slog.Warn("config: server_port out of range, resetting to default", "value", c.ServerPort)
		c.ServerPort = 8765
	}
	if c.ServerPortInsecure <= 0 || c.ServerPortInsecure > 65535 {
		slog.Warn("config: server_port_insecure out of range, resetting to default", "value", c.ServerPortInsecure)
		c.ServerPortInsecure = 8766
	}
	if c.DiscoveryPort <= 0 || c.DiscoveryPort > 65535 {
		slog.Warn("config: discovery_port out of range, resetting to default", "value", c.DiscoveryPort)
		c.DiscoveryPort = 37020
	}
	if c.ServerPort == c.ServerPortInsecure {
		slog.Warn("config: server_port and server_port_insecure must differ, resetting insecure port")
		c.ServerPortInsecure = c.ServerPort + 1
	}

	if c.MaxClients <= 0 {
		slog.Warn("config: max_clients below minimum, clamping to 1", "value", c.MaxClients)
		c.MaxClients = 1
	} else if c.MaxClients > 256 {
		slog.Warn("config: max_clients exceeds maximum, clamping to 256", "value", c.MaxClients)
		c.MaxClients = 256
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		slog.Warn("config: log_level not recognized, resetting to info", "value", c.LogLevel)
		c.LogLevel = "info"
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		slog.Warn("config: log_format not recognized, resetting to text", "value", c.LogFormat)
		c.LogFormat = "text"
	}
	if c.PCName == "" {
		c.PCName = defaultPCName()
	}

	return errs
}
