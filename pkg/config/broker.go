package config

import "time"

// BrokerConfig describes the Redis-backed task queue.
// Example YAML:
// broker:
//   addr: "localhost:6379"
//   task_topic: "tbd:ingest-tasks"
//   completion_topic: "tbd:agent-tasks"
//   codec: json
//   visibility_timeout: 10m
type BrokerConfig struct {
    Addr     string `mapstructure:"addr"`
    Password string `mapstructure:"password"`
    DB       int    `mapstructure:"db"`

    // TaskTopic is the queue the dispatcher publishes TaskSpec envelopes to.
    TaskTopic string `mapstructure:"task_topic"`
    // CompletionTopic receives CompletionSignal messages for the downstream
    // agent consumer.
    CompletionTopic string `mapstructure:"completion_topic"`

    // Codec selects the envelope payload encoding: json or cbor.
    Codec string `mapstructure:"codec"`

    // VisibilityTimeout bounds how long a delivered message may stay
    // unacknowledged before it is reclaimed for redelivery.
    VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`

    // RetryBaseBackoff / RetryMaxBackoff shape the exponential redelivery
    // schedule for nacked messages.
    RetryBaseBackoff time.Duration `mapstructure:"retry_base_backoff"`
    RetryMaxBackoff  time.Duration `mapstructure:"retry_max_backoff"`

    // MaxAttempts caps deliveries per envelope before it is dropped to the
    // dead letter list.
    MaxAttempts int `mapstructure:"max_attempts"`
}

// DefaultBroker returns broker defaults suitable for local development.
func DefaultBroker() BrokerConfig {
    return BrokerConfig{
        Addr:              "localhost:6379",
        DB:                0,
        TaskTopic:         "tbd:ingest-tasks",
        CompletionTopic:   "tbd:agent-tasks",
        Codec:             "json",
        VisibilityTimeout: 10 * time.Minute,
        RetryBaseBackoff:  200 * time.Millisecond,
        RetryMaxBackoff:   30 * time.Second,
        MaxAttempts:       5,
    }
}
