package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Planning defaults. The numbers are illustrative house defaults, not physics:
// every one of them can be overridden per deployment via env, and the
// efficiency factor additionally per line via production_lines.efficiency_factor.
//
// Env:
// - PLANNING_EFFICIENCY_FACTOR   (default 0.85)
// - PLANNING_BOTTLENECK_CEILING  (default 1.0)
// - PLANNING_VARIANCE_THRESHOLD  (default 10, percent)
// - PLANNING_OUTBOX_DISPATCHER   (default off; "true" starts the dispatcher)

func DefaultEfficiencyFactor() decimal.Decimal {
	return decimalFromEnv("PLANNING_EFFICIENCY_FACTOR", "0.85")
}

func BottleneckCeiling() decimal.Decimal {
	return decimalFromEnv("PLANNING_BOTTLENECK_CEILING", "1.0")
}

func VarianceAlertThresholdPct() decimal.Decimal {
	return decimalFromEnv("PLANNING_VARIANCE_THRESHOLD", "10")
}

func OutboxDispatcherEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PLANNING_OUTBOX_DISPATCHER")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func decimalFromEnv(key string, def string) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		d, _ = decimal.NewFromString(def)
	}
	return d
}
