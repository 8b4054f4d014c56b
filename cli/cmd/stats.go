package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/reader"
	"github.com/pithecene-io/joinery/cli/render"
	"github.com/pithecene-io/joinery/cli/tui"
	"github.com/pithecene-io/joinery/iox"
	"github.com/pithecene-io/joinery/lode"
	"github.com/pithecene-io/joinery/reconstruct"
)

// readTimeout bounds Lode reads for stats.
const readTimeout = 30 * time.Second

// StatsCommand returns the stats command with subcommands.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics (metrics, examples)",
		Subcommands: []*cli.Command{
			statsMetricsCommand(),
			statsExamplesCommand(),
		},
	}
}

func statsMetricsCommand() *cli.Command {
	flags := append(TUIReadOnlyFlags(), ConfigFlag,
		&cli.StringFlag{Name: "join-id", Usage: "Read metrics for a specific join"},
	)
	return &cli.Command{
		Name:   "metrics",
		Usage:  "Show the latest stored join or parse metrics",
		Flags:  append(flags, storageFlags()...),
		Action: statsMetricsAction,
	}
}

// resolveReadStorage requires a complete storage target.
func resolveReadStorage(c *cli.Context) (storageChoice, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return storageChoice{}, err
	}
	storage := resolveStorage(c, cfg)
	if !storage.enabled() {
		return storage, fmt.Errorf("both --storage-backend and --storage-path are required for Lode reads")
	}
	return storage, storage.validate()
}

func statsMetricsAction(c *cli.Context) error {
	storage, err := resolveReadStorage(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	ds, err := buildReadDataset(ctx, storage)
	if err != nil {
		return exitError(fmt.Errorf("failed to initialize storage reader: %w", err))
	}
	record, err := lode.QueryLatestMetrics(ctx, ds, c.String("join-id"), storage.source)
	if err != nil {
		return exitError(fmt.Errorf("failed to read metrics from Lode: %w", err))
	}
	snapshot, err := reader.ParseMetricsRecord(record)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to parse metrics record: %v", err), exitFormatError)
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsMetrics, snapshot)
	}
	return r.Render(snapshot)
}

func statsExamplesCommand() *cli.Command {
	flags := append(TUIReadOnlyFlags(), ConfigFlag,
		&cli.StringFlag{Name: "join-id", Usage: "Join whose stored examples are read"},
		&cli.StringFlag{Name: "multistep-reward", Usage: "Episode reward transform when reading a merged log"},
	)
	return &cli.Command{
		Name:      "examples",
		Usage:     "Summarize examples from a merged log or from Lode",
		ArgsUsage: "[merged-log]",
		Flags:     append(flags, storageFlags()...),
		Action:    statsExamplesAction,
	}
}

func statsExamplesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	var stats reader.ExampleStats
	switch {
	case c.NArg() == 1:
		stats, err = examplesFromLog(c, c.Args().First())
	case c.NArg() == 0:
		stats, err = examplesFromLode(c)
	default:
		return cli.Exit("at most one merged log path allowed", exitUsage)
	}
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewStatsExamples, &stats)
	}
	return r.Render(stats)
}

// examplesFromLog reconstructs a merged log and tallies what it yields.
func examplesFromLog(c *cli.Context, path string) (reader.ExampleStats, error) {
	transform := reconstruct.MultistepIdentity
	if name := c.String("multistep-reward"); name != "" {
		var err error
		if transform, err = reconstruct.ParseMultistepReward(name); err != nil {
			return reader.ExampleStats{}, cli.Exit(err.Error(), exitUsage)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return reader.ExampleStats{}, cli.Exit(err.Error(), exitUsage)
	}
	defer iox.DiscardClose(f)

	rec, err := reconstruct.Open(f, reconstruct.Options{MultistepReward: transform})
	if err != nil {
		return reader.ExampleStats{}, exitError(err)
	}

	stats := reader.NewStatsCollector()
	for {
		ex, err := rec.Next()
		if errors.Is(err, io.EOF) {
			return stats.Stats(), nil
		}
		if err != nil {
			return reader.ExampleStats{}, exitError(err)
		}
		stats.Add(ex)
	}
}

// examplesFromLode reads one join's stored examples.
func examplesFromLode(c *cli.Context) (reader.ExampleStats, error) {
	storage, err := resolveReadStorage(c)
	if err != nil {
		return reader.ExampleStats{}, cli.Exit(err.Error(), exitUsage)
	}
	joinID := c.String("join-id")
	if joinID == "" {
		return reader.ExampleStats{}, cli.Exit("--join-id is required when reading from Lode", exitUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	ds, err := buildReadDataset(ctx, storage)
	if err != nil {
		return reader.ExampleStats{}, exitError(err)
	}
	examples, err := lode.ReadExamples(ctx, ds, joinID)
	if err != nil {
		return reader.ExampleStats{}, exitError(err)
	}

	stats := reader.NewStatsCollector()
	for _, ex := range examples {
		stats.Add(ex)
	}
	return stats.Stats(), nil
}
