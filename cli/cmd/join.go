package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/cli/config"
	"github.com/pithecene-io/joinery/cli/render"
	"github.com/pithecene-io/joinery/iox"
	"github.com/pithecene-io/joinery/joiner"
	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// storageTimeout bounds uploads and metrics writes.
const storageTimeout = 5 * time.Minute

// JoinResult is printed when a join completes.
type JoinResult struct {
	joiner.Stats
	Output      string `json:"output" yaml:"output"`
	StoragePath string `json:"storage_path,omitempty" yaml:"storage_path,omitempty"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`
}

// JoinCommand returns the join command.
func JoinCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		NoColorFlag,
		&cli.StringFlag{Name: "interactions", Aliases: []string{"i"}, Usage: "Interaction artifact", Required: true},
		&cli.StringFlag{Name: "observations", Aliases: []string{"o"}, Usage: "Observation artifact", Required: true},
		&cli.StringFlag{Name: "output", Usage: "Merged log to write", Required: true},
		&cli.StringFlag{Name: "join-id", Usage: "Join id written to the header (default: random UUID)"},
		&cli.StringFlag{Name: "eud", Usage: "Experimental unit duration header property"},
		&cli.StringSliceFlag{Name: "property", Usage: "Extra header property as key=value (repeatable)"},
	}
	flags = append(flags, logFlags()...)
	flags = append(flags, checkpointFlags()...)
	flags = append(flags, storageFlags()...)
	flags = append(flags, adapterFlags()...)

	return &cli.Command{
		Name:   "join",
		Usage:  "Merge an interaction artifact with an observation artifact into a merged log",
		Flags:  flags,
		Action: joinAction,
	}
}

// resolveCheckpoint applies flags over the config join section.
func resolveCheckpoint(c *cli.Context, cfg *config.Config) (types.CheckpointInfo, error) {
	jc := configVal(cfg, func(c *config.Config) config.JoinConfig { return c.Join })
	jc.RewardFunction = resolveString(c, "reward-function", jc.RewardFunction)
	jc.LearningMode = resolveString(c, "learning-mode", jc.LearningMode)
	jc.ProblemType = resolveString(c, "problem-type", jc.ProblemType)
	jc.UseClientTime = resolveBool(c, "use-client-time", jc.UseClientTime)
	if c.IsSet("default-reward") {
		v := float32(c.Float64("default-reward"))
		jc.DefaultReward = &v
	}
	return jc.Checkpoint()
}

// resolveProperties returns config properties sorted by key, then flag
// properties in the order given.
func resolveProperties(c *cli.Context, cfg *config.Config) ([]types.Property, error) {
	fromConfig := configVal(cfg, func(c *config.Config) map[string]string { return c.Join.Properties })
	keys := make([]string, 0, len(fromConfig))
	for k := range fromConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make([]types.Property, 0, len(keys))
	for _, k := range keys {
		props = append(props, types.Property{Key: k, Value: fromConfig[k]})
	}
	for _, p := range c.StringSlice("property") {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --property %q (expected key=value)", p)
		}
		props = append(props, types.Property{Key: k, Value: v})
	}
	return props, nil
}

func joinAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	cp, err := resolveCheckpoint(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	props, err := resolveProperties(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	storage := resolveStorage(c, cfg)
	if err := storage.validate(); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	ac, err := resolveAdapter(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	logger, err := newLogger(c, "cli")
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	start := time.Now()
	collector := metrics.NewCollector("join", storage.backend, "")
	j := joiner.New(joiner.Config{
		Checkpoint: cp,
		EUD:        resolveString(c, "eud", configVal(cfg, func(c *config.Config) string { return c.Join.EUD })),
		Properties: props,
		JoinID:     c.String("join-id"),
		Logger:     logger,
		Metrics:    collector,
	})
	collector.SetJoinID(j.JoinID())
	logger = logger.With(log.Context{JoinID: j.JoinID()})

	output := c.String("output")
	stats, joinErr := runJoin(j, c.String("interactions"), c.String("observations"), output)

	result := &JoinResult{Stats: stats, Output: output}
	var storageErr error
	if joinErr == nil && storage.enabled() {
		result.StoragePath, storageErr = storeJoin(storage, j.JoinID(), output, collector, start)
		if storageErr != nil {
			logger.Error("storage failed", map[string]any{"error": storageErr.Error()})
		}
	}
	runErr := errors.Join(joinErr, storageErr)
	result.DurationMs = time.Since(start).Milliseconds()

	event := buildJoinCompletedEvent("join", j.JoinID(), outcomeFor(runErr), output, result.StoragePath,
		collector.Snapshot(), 0, time.Since(start))
	notifyErr := notify(ac, event, collector, logger)

	if runErr != nil {
		return exitError(runErr)
	}
	if notifyErr != nil {
		return exitError(notifyErr)
	}
	return r.Render(result)
}

// runJoin writes the merged log to a pending file next to output and
// moves it into place on success.
func runJoin(j *joiner.Joiner, interactionsPath, observationsPath, output string) (joiner.Stats, error) {
	interactions, err := os.Open(interactionsPath)
	if err != nil {
		return joiner.Stats{}, err
	}
	defer iox.DiscardClose(interactions)

	observations, err := os.Open(observationsPath)
	if err != nil {
		return joiner.Stats{}, err
	}
	defer iox.DiscardClose(observations)

	out, err := iox.CreatePending(output)
	if err != nil {
		return joiner.Stats{}, err
	}
	defer out.Abort()

	stats, err := j.Join(interactions, observations, out)
	if err != nil {
		return stats, err
	}
	return stats, out.Commit()
}

// storeJoin uploads the merged log and the join metrics to Lode.
func storeJoin(storage storageChoice, joinID, output string, collector *metrics.Collector, start time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	client, err := buildLodeClient(ctx, storage, joinID, start)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(client)

	key, err := client.UploadFile(ctx, output)
	if err != nil {
		collector.IncLodeWriteFailure()
		return "", err
	}
	collector.IncLodeWriteSuccess()

	if err := client.WriteMetrics(ctx, collector.Snapshot(), time.Now()); err != nil {
		return "", err
	}
	return key, nil
}
