package cmd

import (
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/config"
	"github.com/pithecene-io/joinery/log"
)

// loadConfig loads --config, or returns nil when it is not set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	return config.Load(path)
}

// configVal reads a field from cfg, or returns the zero value for a nil cfg.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString applies flag > config > flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

// newLogger returns a stderr logger, or a discarding one under --quiet.
func newLogger(c *cli.Context, component string) (*log.Logger, error) {
	if c.Bool("quiet") {
		return log.Nop(), nil
	}
	opts, err := log.ParseOptions(c.String("log-level"), c.String("log-format"))
	if err != nil {
		return nil, err
	}
	w := io.Writer(os.Stderr)
	if c.App != nil && c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	return log.New(log.Context{Component: component}, w, opts), nil
}
