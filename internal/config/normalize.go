// internal/config/normalize.go
package config

import (
	"strings"
	"time"

	"github.com/tamzrod/datastore/internal/datastore"
)

// Defaults applied by Normalize.
const (
	DefaultTimeoutMs    = 1000
	DefaultIntervalMs   = 1000
	DefaultPrompt       = "datastore> "
	DefaultLogLevel     = "info"
	defaultResponseTime = int(datastore.DefaultResponseTimeout / time.Millisecond)
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Datastore
	if d.QueueDepth == 0 {
		d.QueueDepth = datastore.DefaultQueueDepth
	}
	if d.ResponseTimeoutMs == 0 {
		d.ResponseTimeoutMs = defaultResponseTime
	}
	d.LogLevel = strings.ToLower(d.LogLevel)
	if d.LogLevel == "" {
		d.LogLevel = DefaultLogLevel
	}

	for ui := range cfg.Units {
		u := &cfg.Units[ui]

		if u.Source.TimeoutMs == 0 {
			u.Source.TimeoutMs = DefaultTimeoutMs
		}
		if u.Poll.IntervalMs == 0 {
			u.Poll.IntervalMs = DefaultIntervalMs
		}

		for ri := range u.Reads {
			u.Reads[ri].Type = strings.ToLower(strings.TrimSpace(u.Reads[ri].Type))
		}
	}

	for mi := range cfg.Mirrors {
		m := &cfg.Mirrors[mi]

		m.Type = strings.ToLower(strings.TrimSpace(m.Type))
		if m.TimeoutMs == 0 {
			m.TimeoutMs = DefaultTimeoutMs
		}
		m.Count = MirrorCount(*m)

		// Type was validated; FC defaults by representation.
		if t, err := datastore.ParseType(m.Type); err == nil {
			m.FC = MirrorFC(*m, t)
		}
	}

	if cfg.Shell.Prompt == "" {
		cfg.Shell.Prompt = DefaultPrompt
	}
}
