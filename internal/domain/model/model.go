// Package model contains domain values passed between layers.
package model

import (
	"time"

	"github.com/mineworlds/leaderboard/internal/domain/types"
)

// MiningUpdate is one raw mining event awaiting aggregation.
//
// Bounty is a fixed-point integer scaled by the configured decimal precision.
// MiningCounter is the number of discrete mining actions this update
// represents; when positive it becomes the divisor for rolling averages
// instead of the distinct tool count.
type MiningUpdate struct {
	WalletID       string
	Username       string
	BlockNumber    uint64
	BlockTimestamp time.Time
	Bounty         int64
	Points         int64
	Ease           int
	Luck           int
	Difficulty     int
	Delay          int
	LandID         uint64   // 0 means no land reference
	PlanetName     string   // "" means no planet reference
	BagItems       []uint64 // tool asset ids carried in this action
	UpdateID       string   // idempotency key
	MiningCounter  int
}

// ToolAsset holds the tool statistics looked up from the asset metadata
// provider. Only assets referenced by an update's bag items contribute to
// tool totals.
type ToolAsset struct {
	AssetID    uint64
	Delay      int
	Ease       int
	Difficulty int
	Luck       int
}

// StatPair is a running total with its rolling average.
type StatPair struct {
	Total int64
	Avg   float64
}

// Aggregate is the per-(timeframe, account) leaderboard row.
//
// Totals only grow and the ToolsUsed/Lands/Planets sets are ordered-unique
// and never shrink. Rankings is denormalized on read from the ranking index
// and is never the source of truth.
type Aggregate struct {
	WalletID string
	Username string

	TlmGainsTotal   int64
	TlmGainsHighest int64
	TotalNftPoints  int64

	// Base stats accumulate the update's own delay/ease/luck per action.
	ChargeTime  StatPair
	MiningPower StatPair
	NftPower    StatPair

	// Tool stats accumulate each distinct tool's contribution the first
	// time the tool is seen for this account in this timeframe.
	ToolChargeTime  StatPair
	ToolMiningPower StatPair
	ToolNftPower    StatPair

	ToolsUsed []uint64
	Lands     []uint64
	Planets   []string

	// MiningCounter is the running count of discrete mining actions.
	MiningCounter int64

	LastBlockNumber     uint64
	LastBlockTimestamp  time.Time
	LastUpdateTimestamp time.Time
	LastUpdateID        string

	Rankings map[types.Metric]int
}

// UniqueToolsUsed returns the number of distinct tools seen.
func (a *Aggregate) UniqueToolsUsed() int { return len(a.ToolsUsed) }

// LandsMinedOn returns the number of distinct lands mined on.
func (a *Aggregate) LandsMinedOn() int { return len(a.Lands) }

// PlanetsMinedOn returns the number of distinct planets mined on.
func (a *Aggregate) PlanetsMinedOn() int { return len(a.Planets) }

// Score returns the value this aggregate contributes to a metric's sorted
// collection.
func (a *Aggregate) Score(metric types.Metric) float64 {
	switch metric {
	case types.MetricTlmGainsTotal:
		return float64(a.TlmGainsTotal)
	case types.MetricTotalNftPoints:
		return float64(a.TotalNftPoints)
	case types.MetricUniqueToolsUsed:
		return float64(a.UniqueToolsUsed())
	case types.MetricAvgChargeTime:
		return a.ChargeTime.Avg
	case types.MetricAvgMiningPower:
		return a.MiningPower.Avg
	case types.MetricAvgNftPower:
		return a.NftPower.Avg
	case types.MetricAvgToolPower:
		return a.ToolMiningPower.Avg
	case types.MetricLandsMinedOn:
		return float64(a.LandsMinedOn())
	case types.MetricPlanetsMinedOn:
		return float64(a.PlanetsMinedOn())
	default:
		return 0
	}
}
