package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/foliokit/folio/internal/config"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool
	jsonFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, verboseFlag, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		jsonFlag:    jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// log returns the shared logger. Level comes from the config file;
// --verbose forces debug.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		level := slog.LevelInfo
		if cfg, err := c.ensureConfig(); err == nil {
			switch strings.ToLower(cfg.Logging.Level) {
			case "debug":
				level = slog.LevelDebug
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			}
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			level = slog.LevelDebug
		}
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	})
	return c.logger
}
