package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// Neo4jConfig points at the optional event journal.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Enabled reports whether a journal should be attached.
func (c Neo4jConfig) Enabled() bool {
	return c.URI != ""
}

type Config struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	ConfirmDeletes  bool
	ShutdownTimeout time.Duration
	Neo4j           Neo4jConfig
}

// Flags lists the command line flags Load reads. Every flag can also be set
// through its environment variable.
func Flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "addr",
			Value:  ":8080",
			EnvVar: "TASKLIST_ADDR",
			Usage:  "HTTP listen address",
		},
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			EnvVar: "LOG_LEVEL",
			Usage:  "log level (debug, info, warn, error)",
		},
		cli.StringFlag{
			Name:   "log-format",
			Value:  "json",
			EnvVar: "LOG_FORMAT",
			Usage:  "log format (json, text)",
		},
		cli.BoolTFlag{
			Name:   "confirm-deletes",
			EnvVar: "TASKLIST_CONFIRM_DELETES",
			Usage:  "require explicit confirmation before deleting a task",
		},
		cli.DurationFlag{
			Name:   "shutdown-timeout",
			Value:  15 * time.Second,
			EnvVar: "TASKLIST_SHUTDOWN_TIMEOUT",
			Usage:  "time allowed for a graceful shutdown",
		},
		cli.StringFlag{
			Name:   "neo4j-uri",
			EnvVar: "NEO4J_URI",
			Usage:  "Neo4j URI for the task event journal; empty disables it",
		},
		cli.StringFlag{
			Name:   "neo4j-user",
			Value:  "neo4j",
			EnvVar: "NEO4J_USER",
		},
		cli.StringFlag{
			Name:   "neo4j-password",
			EnvVar: "NEO4J_PASSWORD",
		},
		cli.StringFlag{
			Name:   "neo4j-database",
			EnvVar: "NEO4J_DATABASE",
			Usage:  "journal database; empty uses the server default",
		},
	}
}

// Load builds the configuration from parsed flags.
func Load(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Addr:            c.String("addr"),
		LogLevel:        c.String("log-level"),
		LogFormat:       c.String("log-format"),
		ConfirmDeletes:  c.BoolT("confirm-deletes"),
		ShutdownTimeout: c.Duration("shutdown-timeout"),
		Neo4j: Neo4jConfig{
			URI:      c.String("neo4j-uri"),
			Username: c.String("neo4j-user"),
			Password: c.String("neo4j-password"),
			Database: c.String("neo4j-database"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
