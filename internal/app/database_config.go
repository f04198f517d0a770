package app

import (
	"strings"

	"github.com/nexushq/nexus/internal/database"
)

// UsesMongo reports whether the document store backend is selected.
func (c DatabaseConfig) UsesMongo() bool {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	return driver == "mongodb" || driver == "mongo"
}

// SQLConfig converts DatabaseConfig into the gorm connection options for the selected driver.
func (c DatabaseConfig) SQLConfig() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	cfg := database.Config{
		Driver: driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var host DBAuthConfig
	switch driver {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql":
		host = c.MySQL
	default:
		return cfg
	}

	cfg.Host = host.Host
	cfg.Port = host.Port
	cfg.User = host.Username
	cfg.Password = host.Password
	cfg.Name = host.Database
	return cfg
}
