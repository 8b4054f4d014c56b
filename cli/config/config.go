package config

import (
	"fmt"
	"time"

	"github.com/pithecene-io/joinery/types"
)

// Config represents a joinery.yaml configuration file.
// Every value is optional and acts as a default for command flags.
// Flags always win over the file.
type Config struct {
	Join    JoinConfig    `yaml:"join"`
	Parse   ParseConfig   `yaml:"parse"`
	Storage StorageConfig `yaml:"storage"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// JoinConfig holds the reward policy written into merged logs.
type JoinConfig struct {
	RewardFunction string            `yaml:"reward_function"`
	DefaultReward  *float32          `yaml:"default_reward,omitempty"`
	LearningMode   string            `yaml:"learning_mode"`
	ProblemType    string            `yaml:"problem_type"`
	UseClientTime  bool              `yaml:"use_client_time"`
	EUD            string            `yaml:"eud"`
	Properties     map[string]string `yaml:"properties,omitempty"`
}

// ParseConfig holds example reconstruction and delivery defaults.
type ParseConfig struct {
	MultistepReward string `yaml:"multistep_reward"`
	Policy          string `yaml:"policy"`
	BatchSize       int    `yaml:"batch_size"`
	SkipUnresolved  bool   `yaml:"skip_unresolved"`
}

// StorageConfig holds storage defaults.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Source      string `yaml:"source"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds completion notification defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Subject string            `yaml:"subject,omitempty"`
	Mode    string            `yaml:"mode,omitempty"`
	Secret  string            `yaml:"secret,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Checkpoint converts the join section into checkpoint info.
// Empty names keep the zero value of each field.
func (j JoinConfig) Checkpoint() (types.CheckpointInfo, error) {
	var cp types.CheckpointInfo
	var err error
	if j.RewardFunction != "" {
		if cp.RewardFunction, err = types.ParseRewardFunction(j.RewardFunction); err != nil {
			return cp, err
		}
	}
	if j.LearningMode != "" {
		if cp.LearningMode, err = types.ParseLearningMode(j.LearningMode); err != nil {
			return cp, err
		}
	}
	if j.ProblemType != "" {
		if cp.ProblemType, err = types.ParseProblemType(j.ProblemType); err != nil {
			return cp, err
		}
	}
	if j.DefaultReward != nil {
		cp.DefaultReward = *j.DefaultReward
	}
	cp.UseClientTime = j.UseClientTime
	return cp, nil
}
