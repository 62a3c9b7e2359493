package engine

import (
	"github.com/pulsohq/pulso/internal/costs"
	"github.com/pulsohq/pulso/internal/delays"
	"github.com/pulsohq/pulso/internal/mix"
	"github.com/pulsohq/pulso/internal/retention"
	"github.com/pulsohq/pulso/internal/revenue"
	"github.com/pulsohq/pulso/internal/stockout"
)

// Config bundles every aggregator's tunables. Thresholds, ignore lists
// and lookups travel as explicit configuration so they stay testable
// and overridable per venue.
type Config struct {
	Revenue   revenue.Config
	Costs     costs.Config
	Delays    delays.Config
	Stockout  stockout.Config
	Retention retention.Config
	Mix       mix.Config
}

// DefaultConfig returns the standard venue configuration.
func DefaultConfig() Config {
	return Config{
		Revenue:   revenue.DefaultConfig(),
		Costs:     costs.DefaultConfig(),
		Delays:    delays.DefaultConfig(),
		Stockout:  stockout.DefaultConfig(),
		Retention: retention.DefaultConfig(),
		Mix:       mix.DefaultConfig(),
	}
}
