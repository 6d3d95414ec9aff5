package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TrackerConfig contains all configuration for a job tracker node.
type TrackerConfig struct {
	Node      NodeConfig      `mapstructure:"node"`
	REST      RESTConfig      `mapstructure:"rest"`
	EventLoop EventLoopConfig `mapstructure:"event_loop"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// NodeConfig identifies this node within the cluster.
type NodeConfig struct {
	// UpdateLeader marks this node as authorized to issue singleton tasks
	// (SETUP/COMMIT/ABORT) and drive node-left recovery, see spec §4.4.
	UpdateLeader bool `mapstructure:"update_leader"`
}

// RESTConfig contains the job-submission REST API server configuration.
type RESTConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// EventLoopConfig tunes the single-threaded notification dispatcher.
type EventLoopConfig struct {
	QueueDepth int `mapstructure:"queue_depth"`
}

// DiscoveryConfig tunes the node-liveness sweep that feeds node-left recovery.
type DiscoveryConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`
}

// JobsConfig tunes job-lifecycle defaults not carried on the wire.
type JobsConfig struct {
	FinishedJobInfoTTL time.Duration `mapstructure:"finished_job_info_ttl"`
}

// LoadTracker loads the tracker node configuration from the given path.
// If configPath is empty, it looks for tracker.yaml in the config/ directory.
// Environment variables with GOMR_TRACKER_ prefix override config file values.
func LoadTracker(configPath string) (*TrackerConfig, error) {
	v := viper.New()

	v.SetDefault("node.update_leader", false)
	v.SetDefault("rest.addr", ":8080")
	v.SetDefault("rest.read_timeout", 15*time.Second)
	v.SetDefault("rest.write_timeout", 15*time.Second)
	v.SetDefault("rest.idle_timeout", 60*time.Second)
	v.SetDefault("event_loop.queue_depth", 256)
	v.SetDefault("discovery.poll_interval", 5*time.Second)
	v.SetDefault("discovery.stale_timeout", 15*time.Second)
	v.SetDefault("jobs.finished_job_info_ttl", 10*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("tracker")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GOMR_TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg TrackerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
