package storage

import (
	"time"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
)

// leaderboardDocument is the Mongo shape of an account aggregate, shared by
// the snapshot and archive collections. The derived counts are denormalised
// so archive rank queries can sort and filter on them directly.
type leaderboardDocument struct {
	WalletID  string `bson:"wallet_id"`
	Username  string `bson:"username,omitempty"`
	Timeframe string `bson:"timeframe"`

	TlmGainsTotal   int64 `bson:"tlm_gains_total"`
	TlmGainsHighest int64 `bson:"tlm_gains_highest"`
	TotalNftPoints  int64 `bson:"total_nft_points"`

	TotalChargeTime  int64   `bson:"total_charge_time"`
	AvgChargeTime    float64 `bson:"avg_charge_time"`
	TotalMiningPower int64   `bson:"total_mining_power"`
	AvgMiningPower   float64 `bson:"avg_mining_power"`
	TotalNftPower    int64   `bson:"total_nft_power"`
	AvgNftPower      float64 `bson:"avg_nft_power"`

	TotalToolChargeTime  int64   `bson:"total_tool_charge_time"`
	AvgToolChargeTime    float64 `bson:"avg_tool_charge_time"`
	TotalToolMiningPower int64   `bson:"total_tool_mining_power"`
	AvgToolMiningPower   float64 `bson:"avg_tool_mining_power"`
	TotalToolNftPower    int64   `bson:"total_tool_nft_power"`
	AvgToolNftPower      float64 `bson:"avg_tool_nft_power"`

	ToolsUsed []int64  `bson:"tools_used"`
	Lands     []int64  `bson:"lands"`
	Planets   []string `bson:"planets"`

	UniqueToolsUsed int `bson:"unique_tools_used"`
	LandsMinedOn    int `bson:"lands_mined_on"`
	PlanetsMinedOn  int `bson:"planets_mined_on"`

	MiningCounter       int64     `bson:"mining_counter"`
	LastBlockNumber     int64     `bson:"last_block_number"`
	LastBlockTimestamp  time.Time `bson:"last_block_timestamp"`
	LastUpdateTimestamp time.Time `bson:"last_update_timestamp"`
	LastUpdateID        string    `bson:"last_update_id"`
}

// updateDocument is the Mongo shape of a queued mining update.
type updateDocument struct {
	WalletID       string    `bson:"wallet_id"`
	Username       string    `bson:"username,omitempty"`
	BlockNumber    int64     `bson:"block_number"`
	BlockTimestamp time.Time `bson:"block_timestamp"`
	Bounty         int64     `bson:"bounty"`
	Points         int64     `bson:"points"`
	Ease           int       `bson:"ease"`
	Luck           int       `bson:"luck"`
	Difficulty     int       `bson:"difficulty"`
	Delay          int       `bson:"delay"`
	LandID         int64     `bson:"land_id,omitempty"`
	PlanetName     string    `bson:"planet_name,omitempty"`
	BagItems       []int64   `bson:"bag_items"`
	UpdateID       string    `bson:"update_id"`
	MiningCounter  int       `bson:"mining_counter"`
}

func toInt64Slice(in []uint64) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toUint64Slice(in []int64) []uint64 {
	out := make([]uint64, len(in))
	for i, v := range in {
		out[i] = uint64(v)
	}
	return out
}

func newLeaderboardDocument(timeframe types.Timeframe, agg *model.Aggregate) *leaderboardDocument {
	return &leaderboardDocument{
		WalletID:  agg.WalletID,
		Username:  agg.Username,
		Timeframe: string(timeframe),

		TlmGainsTotal:   agg.TlmGainsTotal,
		TlmGainsHighest: agg.TlmGainsHighest,
		TotalNftPoints:  agg.TotalNftPoints,

		TotalChargeTime:  agg.ChargeTime.Total,
		AvgChargeTime:    agg.ChargeTime.Avg,
		TotalMiningPower: agg.MiningPower.Total,
		AvgMiningPower:   agg.MiningPower.Avg,
		TotalNftPower:    agg.NftPower.Total,
		AvgNftPower:      agg.NftPower.Avg,

		TotalToolChargeTime:  agg.ToolChargeTime.Total,
		AvgToolChargeTime:    agg.ToolChargeTime.Avg,
		TotalToolMiningPower: agg.ToolMiningPower.Total,
		AvgToolMiningPower:   agg.ToolMiningPower.Avg,
		TotalToolNftPower:    agg.ToolNftPower.Total,
		AvgToolNftPower:      agg.ToolNftPower.Avg,

		ToolsUsed: toInt64Slice(agg.ToolsUsed),
		Lands:     toInt64Slice(agg.Lands),
		Planets:   append([]string(nil), agg.Planets...),

		UniqueToolsUsed: agg.UniqueToolsUsed(),
		LandsMinedOn:    agg.LandsMinedOn(),
		PlanetsMinedOn:  agg.PlanetsMinedOn(),

		MiningCounter:       agg.MiningCounter,
		LastBlockNumber:     int64(agg.LastBlockNumber),
		LastBlockTimestamp:  agg.LastBlockTimestamp.UTC(),
		LastUpdateTimestamp: agg.LastUpdateTimestamp.UTC(),
		LastUpdateID:        agg.LastUpdateID,
	}
}

func (d *leaderboardDocument) toModel() *model.Aggregate {
	return &model.Aggregate{
		WalletID: d.WalletID,
		Username: d.Username,

		TlmGainsTotal:   d.TlmGainsTotal,
		TlmGainsHighest: d.TlmGainsHighest,
		TotalNftPoints:  d.TotalNftPoints,

		ChargeTime:  model.StatPair{Total: d.TotalChargeTime, Avg: d.AvgChargeTime},
		MiningPower: model.StatPair{Total: d.TotalMiningPower, Avg: d.AvgMiningPower},
		NftPower:    model.StatPair{Total: d.TotalNftPower, Avg: d.AvgNftPower},

		ToolChargeTime:  model.StatPair{Total: d.TotalToolChargeTime, Avg: d.AvgToolChargeTime},
		ToolMiningPower: model.StatPair{Total: d.TotalToolMiningPower, Avg: d.AvgToolMiningPower},
		ToolNftPower:    model.StatPair{Total: d.TotalToolNftPower, Avg: d.AvgToolNftPower},

		ToolsUsed: toUint64Slice(d.ToolsUsed),
		Lands:     toUint64Slice(d.Lands),
		Planets:   append([]string(nil), d.Planets...),

		MiningCounter:       d.MiningCounter,
		LastBlockNumber:     uint64(d.LastBlockNumber),
		LastBlockTimestamp:  d.LastBlockTimestamp,
		LastUpdateTimestamp: d.LastUpdateTimestamp,
		LastUpdateID:        d.LastUpdateID,
	}
}

func newUpdateDocument(update *model.MiningUpdate) *updateDocument {
	return &updateDocument{
		WalletID:       update.WalletID,
		Username:       update.Username,
		BlockNumber:    int64(update.BlockNumber),
		BlockTimestamp: update.BlockTimestamp.UTC(),
		Bounty:         update.Bounty,
		Points:         update.Points,
		Ease:           update.Ease,
		Luck:           update.Luck,
		Difficulty:     update.Difficulty,
		Delay:          update.Delay,
		LandID:         int64(update.LandID),
		PlanetName:     update.PlanetName,
		BagItems:       toInt64Slice(update.BagItems),
		UpdateID:       update.UpdateID,
		MiningCounter:  update.MiningCounter,
	}
}

func (d *updateDocument) toModel() *model.MiningUpdate {
	return &model.MiningUpdate{
		WalletID:       d.WalletID,
		Username:       d.Username,
		BlockNumber:    uint64(d.BlockNumber),
		BlockTimestamp: d.BlockTimestamp,
		Bounty:         d.Bounty,
		Points:         d.Points,
		Ease:           d.Ease,
		Luck:           d.Luck,
		Difficulty:     d.Difficulty,
		Delay:          d.Delay,
		LandID:         uint64(d.LandID),
		PlanetName:     d.PlanetName,
		BagItems:       toUint64Slice(d.BagItems),
		UpdateID:       d.UpdateID,
		MiningCounter:  d.MiningCounter,
	}
}

// metricField maps a ranked metric to the archive document field it sorts and
// filters on.
func metricField(metric types.Metric) (string, bool) {
	switch metric {
	case types.MetricTlmGainsTotal:
		return "tlm_gains_total", true
	case types.MetricTotalNftPoints:
		return "total_nft_points", true
	case types.MetricUniqueToolsUsed:
		return "unique_tools_used", true
	case types.MetricAvgChargeTime:
		return "avg_charge_time", true
	case types.MetricAvgMiningPower:
		return "avg_mining_power", true
	case types.MetricAvgNftPower:
		return "avg_nft_power", true
	case types.MetricAvgToolPower:
		return "avg_tool_mining_power", true
	case types.MetricLandsMinedOn:
		return "lands_mined_on", true
	case types.MetricPlanetsMinedOn:
		return "planets_mined_on", true
	default:
		return "", false
	}
}
