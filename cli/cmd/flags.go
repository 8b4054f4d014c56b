// Package cmd provides the commands of the joinery binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/lode"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for inspect and stats.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (inspect, stats only)",
	}
)

// ConfigFlag points at a joinery.yaml defaults file.
var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to joinery.yaml; flags override its values",
}

// QuietFlag silences structured logs on stderr.
var QuietFlag = &cli.BoolFlag{
	Name:    "quiet",
	Aliases: []string{"q"},
	Usage:   "Suppress logs",
}

// logFlags tune the structured logs written to stderr.
func logFlags() []cli.Flag {
	return []cli.Flag{
		QuietFlag,
		&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error", Value: "info", EnvVars: []string{"JOINERY_LOG_LEVEL"}},
		&cli.StringFlag{Name: "log-format", Usage: "Log format: json or console", Value: "json", EnvVars: []string{"JOINERY_LOG_FORMAT"}},
	}
}

// ReadOnlyFlags returns the shared flags for all read-only commands.
// --tui is always present so commands without a TUI can reject it with a
// clear message instead of a generic "flag not defined".
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// TUIReadOnlyFlags returns flags for commands that support TUI mode.
func TUIReadOnlyFlags() []cli.Flag {
	return ReadOnlyFlags()
}

// checkpointFlags override the join section of the config file.
func checkpointFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "reward-function", Usage: "Reward function: earliest, average, median, sum, min, max"},
		&cli.Float64Flag{Name: "default-reward", Usage: "Reward for decisions without outcomes"},
		&cli.StringFlag{Name: "learning-mode", Usage: "Learning mode: online, apprentice, logging_only"},
		&cli.StringFlag{Name: "problem-type", Usage: "Problem type: unknown, cb, ccb, slates, ca"},
		&cli.BoolFlag{Name: "use-client-time", Usage: "Order outcomes by client time for the earliest reward function"},
	}
}

// storageFlags select a Lode dataset.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
		&cli.StringFlag{Name: "storage-source", Usage: "Source partition", Value: "default"},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3"},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (MinIO, R2)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force S3 path-style addressing"},
	}
}

// adapterFlags configure the completion notification.
func adapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "adapter", Usage: "Notification adapter: webhook, redis or nats"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Adapter endpoint URL"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis channel"},
		&cli.StringFlag{Name: "adapter-subject", Usage: "NATS subject"},
		&cli.StringFlag{Name: "adapter-mode", Usage: "Redis delivery: publish or stream"},
		&cli.StringFlag{Name: "adapter-secret", Usage: "Webhook HMAC signing secret"},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as key=value (repeatable)"},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-attempt timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Retry attempts"},
	}
}
