// internal/config/catalog.go
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/tamzrod/datastore/internal/datastore"
)

// Points returns the configured datapoints of type t.
func (c CatalogConfig) Points(t datastore.Type) []PointConfig {
	switch t {
	case datastore.Float:
		return c.Float
	case datastore.UnsignedInt:
		return c.Uint
	case datastore.SignedInt:
		return c.Int
	case datastore.MultiState:
		return c.MultiState
	case datastore.Button:
		return c.Button
	default:
		return nil
	}
}

// BuildCatalog converts the catalog section into a datastore catalog.
// It does not mutate cfg.
func BuildCatalog(cfg *Config) (*datastore.Catalog, error) {
	cat := datastore.NewCatalog()

	for _, t := range datastore.Types() {
		for i, p := range cfg.Catalog.Points(t) {
			def, err := toValue(t, p.Default)
			if err != nil {
				return nil, fmt.Errorf("catalog %s[%d] %q: %w", t, i, p.Name, err)
			}

			flags := datastore.FlagNone
			if p.NVM {
				flags |= datastore.FlagPersist
			}

			if _, err := cat.Add(t, datastore.Entry{Name: p.Name, Default: def, Flags: flags}); err != nil {
				return nil, fmt.Errorf("catalog %s[%d]: %w", t, i, err)
			}
		}
	}

	return cat, nil
}

// toValue checks that f is representable by t. Integer types reject
// fractions and out-of-range values instead of truncating.
func toValue(t datastore.Type, f float64) (datastore.Value, error) {
	switch t.Repr() {
	case datastore.ReprFloat:
		if math.Abs(f) > math.MaxFloat32 {
			return 0, fmt.Errorf("default %v overflows float32", f)
		}
		return datastore.FloatValue(float32(f)), nil

	case datastore.ReprInt:
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, fmt.Errorf("default %v is not an int32", f)
		}
		return datastore.IntValue(int32(f)), nil

	default:
		if f != math.Trunc(f) || f < 0 || f > math.MaxUint32 {
			return 0, fmt.Errorf("default %v is not a uint32", f)
		}
		return datastore.UintValue(uint32(f)), nil
	}
}

// StoreConfig derives the datastore sizing. extra adds subscriptions
// needed by in-process collaborators (mirrors, NVM persistence).
func StoreConfig(cfg *Config, cat *datastore.Catalog, extra [datastore.TypeCount]int) (datastore.Config, error) {
	out := datastore.Config{
		Catalog:         cat,
		QueueDepth:      cfg.Datastore.QueueDepth,
		ResponseTimeout: time.Duration(cfg.Datastore.ResponseTimeoutMs) * time.Millisecond,
	}

	for name, n := range cfg.Datastore.MaxSubscriptions {
		t, err := datastore.ParseType(name)
		if err != nil {
			return datastore.Config{}, fmt.Errorf("max_subscriptions: %w", err)
		}
		out.MaxSubscriptions[t] = n
	}
	for t := range out.MaxSubscriptions {
		out.MaxSubscriptions[t] += extra[t]
	}

	return out, nil
}

// MirrorSubscriptions counts the subscriptions each type needs for mirrors.
func MirrorSubscriptions(cfg *Config) [datastore.TypeCount]int {
	var out [datastore.TypeCount]int
	for _, m := range cfg.Mirrors {
		if t, err := datastore.ParseType(m.Type); err == nil {
			out[t]++
		}
	}
	return out
}
