// Package types contains the closed enumerations shared across the service:
// aggregation timeframes, ranked metrics, and sort orders.
package types

import (
	"fmt"
	"regexp"
)

// Timeframe identifies one independent aggregation window.
type Timeframe string

// Supported timeframes.
const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeSeason  Timeframe = "season"
)

// Timeframes lists every supported timeframe.
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeSeason}
}

// ParseTimeframe converts a string into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TimeframeDaily, TimeframeWeekly, TimeframeMonthly, TimeframeSeason:
		return Timeframe(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTimeframe, s)
	}
}

func (t Timeframe) String() string { return string(t) }

// Metric identifies one ranked statistic. Each metric is backed by its own
// sorted collection in the ranking index.
type Metric string

// The nine ranked metrics.
const (
	MetricTlmGainsTotal   Metric = "tlm_gains_total"
	MetricTotalNftPoints  Metric = "total_nft_points"
	MetricUniqueToolsUsed Metric = "unique_tools_used"
	MetricAvgChargeTime   Metric = "avg_charge_time"
	MetricAvgMiningPower  Metric = "avg_mining_power"
	MetricAvgNftPower     Metric = "avg_nft_power"
	MetricAvgToolPower    Metric = "avg_tool_power"
	MetricLandsMinedOn    Metric = "lands_mined_on"
	MetricPlanetsMinedOn  Metric = "planets_mined_on"
)

// DefaultMetric is used where a metric is required but none was requested,
// e.g. index cardinality queries.
const DefaultMetric = MetricTlmGainsTotal

// Metrics lists every ranked metric.
func Metrics() []Metric {
	return []Metric{
		MetricTlmGainsTotal,
		MetricTotalNftPoints,
		MetricUniqueToolsUsed,
		MetricAvgChargeTime,
		MetricAvgMiningPower,
		MetricAvgNftPower,
		MetricAvgToolPower,
		MetricLandsMinedOn,
		MetricPlanetsMinedOn,
	}
}

// ParseMetric converts a string into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricTlmGainsTotal, MetricTotalNftPoints, MetricUniqueToolsUsed,
		MetricAvgChargeTime, MetricAvgMiningPower, MetricAvgNftPower,
		MetricAvgToolPower, MetricLandsMinedOn, MetricPlanetsMinedOn:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

func (m Metric) String() string { return string(m) }

// Order is a sort direction for rank and list queries.
type Order int

// Sort orders. Descending is the leaderboard default.
const (
	OrderAsc  Order = 1
	OrderDesc Order = -1
)

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateCollectionName checks that a storage collection name contains only
// word characters. Stores fail fast at construction on invalid names.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q, use only a-zA-Z0-9_", ErrInvalidCollectionName, name)
	}
	return nil
}
