package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/config"
	"github.com/pithecene-io/joinery/cli/reader"
	"github.com/pithecene-io/joinery/cli/render"
	"github.com/pithecene-io/joinery/delivery"
	"github.com/pithecene-io/joinery/iox"
	"github.com/pithecene-io/joinery/joinlog"
	"github.com/pithecene-io/joinery/lode"
	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/reconstruct"
	"github.com/pithecene-io/joinery/types"
)

// ParseResult is printed when a reconstruction completes.
type ParseResult struct {
	JoinID      string              `json:"join_id" yaml:"join_id"`
	Policy      string              `json:"policy" yaml:"policy"`
	Output      string              `json:"output,omitempty" yaml:"output,omitempty"`
	StoragePath string              `json:"storage_path,omitempty" yaml:"storage_path,omitempty"`
	Examples    reader.ExampleStats `json:"examples" yaml:"examples"`
	Delivery    delivery.Stats      `json:"delivery" yaml:"delivery"`
	DurationMs  int64               `json:"duration_ms" yaml:"duration_ms"`
}

// ParseCommand returns the parse command.
func ParseCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		NoColorFlag,
		&cli.StringFlag{Name: "output", Usage: "JSON lines file for examples (\"-\" for stdout)"},
		&cli.StringFlag{Name: "policy", Usage: "Delivery policy: strict or buffered", Value: "strict"},
		&cli.IntFlag{Name: "batch-size", Usage: "Examples per write (buffered policy)"},
		&cli.BoolFlag{Name: "skip-unresolved", Usage: "Drop examples whose deferred action never arrived"},
		&cli.StringFlag{Name: "multistep-reward", Usage: "Episode reward transform: identity, suffix_sum, suffix_mean"},
	}
	flags = append(flags, logFlags()...)
	flags = append(flags, checkpointFlags()...)
	flags = append(flags, storageFlags()...)
	flags = append(flags, adapterFlags()...)

	return &cli.Command{
		Name:      "parse",
		Usage:     "Reconstruct training examples from a merged log",
		ArgsUsage: "<merged-log>",
		Flags:     flags,
		Action:    parseAction,
	}
}

// policyChoice holds parsed delivery configuration.
type policyChoice struct {
	name           string
	batchSize      int
	skipUnresolved bool
}

func resolvePolicy(c *cli.Context, cfg *config.Config) (policyChoice, error) {
	pc := configVal(cfg, func(c *config.Config) config.ParseConfig { return c.Parse })
	choice := policyChoice{
		name:           resolveString(c, "policy", pc.Policy),
		batchSize:      resolveInt(c, "batch-size", pc.BatchSize),
		skipUnresolved: resolveBool(c, "skip-unresolved", pc.SkipUnresolved),
	}
	return choice, validatePolicyConfig(choice)
}

func validatePolicyConfig(choice policyChoice) error {
	switch choice.name {
	case "strict":
		return nil
	case "buffered":
		if choice.batchSize < 0 {
			return fmt.Errorf("--batch-size must be >= 0, got %d", choice.batchSize)
		}
		return nil
	default:
		return fmt.Errorf("invalid policy: %s (must be strict or buffered)", choice.name)
	}
}

func buildPolicy(choice policyChoice, sink delivery.Sink, logger *log.Logger) (delivery.Policy, error) {
	opts := delivery.Options{SkipUnresolved: choice.skipUnresolved}
	switch choice.name {
	case "strict":
		return delivery.NewStrictPolicy(sink, opts), nil
	case "buffered":
		return delivery.NewBufferedPolicy(sink, delivery.BufferedConfig{
			Options:   opts,
			MaxBuffer: choice.batchSize,
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}

// checkpointOverride returns the log's checkpoint with any checkpoint
// flags applied, or nil when none is set.
func checkpointOverride(c *cli.Context, base types.CheckpointInfo) (*types.CheckpointInfo, error) {
	set := false
	cp := base
	var err error
	if c.IsSet("reward-function") {
		set = true
		if cp.RewardFunction, err = types.ParseRewardFunction(c.String("reward-function")); err != nil {
			return nil, err
		}
	}
	if c.IsSet("learning-mode") {
		set = true
		if cp.LearningMode, err = types.ParseLearningMode(c.String("learning-mode")); err != nil {
			return nil, err
		}
	}
	if c.IsSet("problem-type") {
		set = true
		if cp.ProblemType, err = types.ParseProblemType(c.String("problem-type")); err != nil {
			return nil, err
		}
	}
	if c.IsSet("default-reward") {
		set = true
		cp.DefaultReward = float32(c.Float64("default-reward"))
	}
	if c.IsSet("use-client-time") {
		set = true
		cp.UseClientTime = c.Bool("use-client-time")
	}
	if !set {
		return nil, nil
	}
	return &cp, nil
}

// countingSource feeds every example it yields into a StatsCollector.
type countingSource struct {
	src   delivery.Source
	stats *reader.StatsCollector
}

func (s *countingSource) Next() (*types.Example, error) {
	ex, err := s.src.Next()
	if err == nil {
		s.stats.Add(ex)
	}
	return ex, err
}

func parseAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("parse requires exactly one merged log path", exitUsage)
	}
	logPath := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	choice, err := resolvePolicy(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	transform := reconstruct.MultistepIdentity
	if name := resolveString(c, "multistep-reward", configVal(cfg, func(c *config.Config) string { return c.Parse.MultistepReward })); name != "" {
		if transform, err = reconstruct.ParseMultistepReward(name); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}
	storage := resolveStorage(c, cfg)
	if err := storage.validate(); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	output := c.String("output")
	switch {
	case storage.enabled() && output != "":
		return cli.Exit("--output and --storage-path are mutually exclusive", exitUsage)
	case !storage.enabled() && output == "":
		return cli.Exit("one of --output or --storage-path is required", exitUsage)
	}
	ac, err := resolveAdapter(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	f, err := os.Open(logPath)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer iox.DiscardClose(f)

	lr, err := joinlog.Open(f)
	if err != nil {
		return exitError(err)
	}
	override, err := checkpointOverride(c, *lr.Checkpoint())
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	joinID, _ := lr.Header().Get(types.HeaderJoinID)
	logger, err := newLogger(c, "cli")
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	logger = logger.With(log.Context{Source: logPath, JoinID: joinID})
	start := time.Now()
	collector := metrics.NewCollector("parse", storage.backend, joinID)

	result := &ParseResult{JoinID: joinID, Policy: choice.name, Output: output}
	var sink delivery.Sink
	var client *lode.LodeClient
	if storage.enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		client, err = buildLodeClient(ctx, storage, joinID, start)
		cancel()
		if err != nil {
			return exitError(err)
		}
		sink = lode.NewInstrumentedSink(lode.NewSink(client), collector)
		if result.StoragePath, err = buildStoragePath(storage); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	} else {
		sink, err = openJSONLSink(c, output)
		if err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
	}

	pol, err := buildPolicy(choice, sink, logger)
	if err != nil {
		_ = sink.Close()
		return cli.Exit(err.Error(), exitUsage)
	}

	rec := reconstruct.New(lr, reconstruct.Options{
		Checkpoint:      override,
		MultistepReward: transform,
		Logger:          logger,
		Metrics:         collector,
	})
	stats := reader.NewStatsCollector()

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	_, runErr := delivery.Drain(ctx, &countingSource{src: rec, stats: stats}, pol)
	if client != nil && runErr == nil {
		runErr = client.WriteMetrics(ctx, collector.Snapshot(), time.Now())
	}
	runErr = errors.Join(runErr, pol.Close())
	if runErr != nil {
		logger.Error("parse failed", map[string]any{"error": runErr.Error()})
	}

	result.Examples = stats.Stats()
	result.Delivery = pol.Stats()
	result.DurationMs = time.Since(start).Milliseconds()

	event := buildJoinCompletedEvent("parse", joinID, outcomeFor(runErr), output, result.StoragePath,
		collector.Snapshot(), result.Delivery.ExamplesPersisted, time.Since(start))
	notifyErr := notify(ac, event, collector, logger)

	if runErr != nil {
		return exitError(runErr)
	}
	if notifyErr != nil {
		return exitError(notifyErr)
	}
	if output == "-" {
		// stdout carries the examples.
		logger.Info("parse complete", map[string]any{
			"examples":  result.Examples.Examples,
			"persisted": result.Delivery.ExamplesPersisted,
		})
		return nil
	}
	return r.Render(result)
}

// openJSONLSink opens output, or wraps stdout for "-" so closing the sink
// leaves stdout open.
func openJSONLSink(c *cli.Context, output string) (*delivery.JSONLSink, error) {
	if output == "-" {
		return delivery.NewJSONLSink(iox.NoClose(c.App.Writer)), nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	return delivery.NewJSONLSink(f), nil
}
