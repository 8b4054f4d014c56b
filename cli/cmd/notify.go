package cmd

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/joinery/adapter"
	natsadapter "github.com/pithecene-io/joinery/adapter/nats"
	redisadapter "github.com/pithecene-io/joinery/adapter/redis"
	"github.com/pithecene-io/joinery/adapter/webhook"
	"github.com/pithecene-io/joinery/cli/config"
	"github.com/pithecene-io/joinery/log"
	"github.com/pithecene-io/joinery/metrics"
	"github.com/pithecene-io/joinery/types"
)

// notifyTimeout bounds the whole notification, retries included.
const notifyTimeout = 60 * time.Second

const defaultAdapterRetries = 3

// adapterChoice is the resolved adapter configuration.
type adapterChoice struct {
	adapterType string
	url         string
	channel     string
	subject     string
	mode        string
	secret      string
	headers     map[string]string
	timeout     time.Duration
	retries     int
}

// parseAdapterConfigWithPrecedence resolves adapter settings with flags
// winning over the config file. adapterType must already be resolved.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *config.Config, adapterType string) (*adapterChoice, error) {
	ac := configVal(cfg, func(c *config.Config) config.AdapterConfig { return c.Adapter })

	choice := &adapterChoice{
		adapterType: adapterType,
		url:         resolveString(c, "adapter-url", ac.URL),
		channel:     resolveString(c, "adapter-channel", ac.Channel),
		subject:     resolveString(c, "adapter-subject", ac.Subject),
		mode:        resolveString(c, "adapter-mode", ac.Mode),
		secret:      resolveString(c, "adapter-secret", ac.Secret),
		timeout:     resolveDuration(c, "adapter-timeout", ac.Timeout.Duration),
		retries:     defaultAdapterRetries,
		headers:     make(map[string]string),
	}
	if ac.Retries != nil {
		choice.retries = *ac.Retries
	}
	if c.IsSet("adapter-retries") {
		choice.retries = c.Int("adapter-retries")
	}

	maps.Copy(choice.headers, ac.Headers)
	for _, h := range c.StringSlice("adapter-header") {
		k, v, ok := strings.Cut(h, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (expected key=value)", h)
		}
		choice.headers[k] = v
	}

	switch adapterType {
	case "webhook", "redis", "nats":
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook, redis or nats)", adapterType)
	}
	if choice.url == "" {
		return nil, fmt.Errorf("--adapter-url is required for the %s adapter", adapterType)
	}
	if choice.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", choice.retries)
	}
	return choice, nil
}

// resolveAdapter returns nil when no adapter is configured.
func resolveAdapter(c *cli.Context, cfg *config.Config) (*adapterChoice, error) {
	adapterType := resolveString(c, "adapter", configVal(cfg, func(c *config.Config) string { return c.Adapter.Type }))
	if adapterType == "" {
		return nil, nil
	}
	return parseAdapterConfigWithPrecedence(c, cfg, adapterType)
}

func buildAdapter(ac *adapterChoice) (adapter.Adapter, error) {
	switch ac.adapterType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     ac.url,
			Headers: ac.headers,
			Secret:  ac.secret,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "redis":
		return redisadapter.New(redisadapter.Config{
			URL:     ac.url,
			Mode:    ac.mode,
			Channel: ac.channel,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	case "nats":
		return natsadapter.New(natsadapter.Config{
			URL:     ac.url,
			Subject: ac.subject,
			Timeout: ac.timeout,
			Retries: ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", ac.adapterType)
	}
}

// buildJoinCompletedEvent assembles the notification payload from a
// command's counters.
func buildJoinCompletedEvent(command, joinID, outcome, output, storagePath string, snap metrics.Snapshot, examples int64, duration time.Duration) *adapter.JoinCompletedEvent {
	return &adapter.JoinCompletedEvent{
		Version:               types.Version,
		EventType:             adapter.EventTypeJoinCompleted,
		Command:               command,
		JoinID:                joinID,
		Outcome:               outcome,
		Output:                output,
		StoragePath:           storagePath,
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		Interactions:          snap.InteractionsJoined,
		ObservationsJoined:    snap.ObservationsJoined,
		UnmatchedInteractions: snap.UnmatchedInteractions,
		Examples:              examples,
		DurationMs:            duration.Milliseconds(),
	}
}

// notify publishes event when ac is set. Failures come back as
// *notifyError so they map to the storage exit code.
func notify(ac *adapterChoice, event *adapter.JoinCompletedEvent, collector *metrics.Collector, logger *log.Logger) error {
	if ac == nil {
		return nil
	}
	a, err := buildAdapter(ac)
	if err != nil {
		return &notifyError{err: err}
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := adapter.Notify(ctx, a, event, collector, logger); err != nil {
		return &notifyError{err: err}
	}
	return nil
}

// outcomeFor maps a command error to a notification outcome.
func outcomeFor(err error) string {
	switch exitCodeFor(err) {
	case exitSuccess:
		return adapter.OutcomeSuccess
	case exitFormatError:
		return adapter.OutcomeFormatError
	default:
		return adapter.OutcomeStorageError
	}
}
