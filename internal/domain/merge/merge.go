// Package merge folds raw mining updates into account aggregates.
//
// Both entry points are pure with respect to their inputs: they never mutate
// the current aggregate or the update, and they perform no I/O. Numeric
// inputs are not validated here; callers sanitize at ingestion.
package merge

import (
	"time"

	"github.com/google/uuid"

	"github.com/mineworlds/leaderboard/internal/domain/model"
	"github.com/mineworlds/leaderboard/internal/domain/types"
)

// Create builds the first aggregate for an account from a single update.
//
// Tool assets listed in the update's bag items seed the tool totals and the
// distinct-tools set. Base totals are seeded from the update's own
// delay/ease/luck, which describe the account-level action independent of
// the tool used. The average divisor is the update's mining counter when
// positive, else the number of distinct tools in this update.
func Create(update *model.MiningUpdate, assets []model.ToolAsset) *model.Aggregate {
	agg := &model.Aggregate{
		WalletID:        update.WalletID,
		Username:        update.Username,
		TlmGainsTotal:   update.Bounty,
		TlmGainsHighest: update.Bounty,
		TotalNftPoints:  update.Points,
		ChargeTime:      model.StatPair{Total: int64(update.Delay)},
		MiningPower:     model.StatPair{Total: int64(update.Ease)},
		NftPower:        model.StatPair{Total: int64(update.Luck)},

		LastBlockNumber:     update.BlockNumber,
		LastBlockTimestamp:  update.BlockTimestamp,
		LastUpdateTimestamp: time.Now(),
		LastUpdateID:        update.UpdateID,
		Rankings:            map[types.Metric]int{},
	}

	if agg.LastUpdateID == "" {
		agg.LastUpdateID = uuid.NewString()
	}

	for _, asset := range assets {
		if !containsUint64(update.BagItems, asset.AssetID) {
			continue
		}
		agg.ToolsUsed = append(agg.ToolsUsed, asset.AssetID)
		agg.ToolChargeTime.Total += int64(asset.Delay)
		agg.ToolMiningPower.Total += int64(asset.Ease)
		agg.ToolNftPower.Total += int64(asset.Luck)
	}

	if update.LandID != 0 {
		agg.Lands = []uint64{update.LandID}
	}
	if update.PlanetName != "" {
		agg.Planets = []string{update.PlanetName}
	}

	if update.MiningCounter > 0 {
		agg.MiningCounter = int64(update.MiningCounter)
	}

	divisor := agg.MiningCounter
	if divisor == 0 {
		divisor = int64(len(agg.ToolsUsed))
	}
	if divisor > 0 {
		recomputeAverages(agg, divisor)
	}

	return agg
}

// Merge folds one more update into an existing aggregate and returns a new
// aggregate value.
//
// A tool asset contributes to the tool totals only the first time it is ever
// seen for this account in this timeframe. Base totals grow unconditionally
// by the update's own delay/ease/luck. The average divisor is the updated
// running mining counter when positive, else the updated distinct-tool
// count; a zero divisor carries the previous averages forward unchanged.
func Merge(current *model.Aggregate, update *model.MiningUpdate, assets []model.ToolAsset) *model.Aggregate {
	agg := &model.Aggregate{
		WalletID: current.WalletID,
		Username: current.Username,

		TlmGainsTotal:   current.TlmGainsTotal + update.Bounty,
		TlmGainsHighest: current.TlmGainsHighest,
		TotalNftPoints:  current.TotalNftPoints + update.Points,

		ChargeTime:      model.StatPair{Total: current.ChargeTime.Total + int64(update.Delay), Avg: current.ChargeTime.Avg},
		MiningPower:     model.StatPair{Total: current.MiningPower.Total + int64(update.Ease), Avg: current.MiningPower.Avg},
		NftPower:        model.StatPair{Total: current.NftPower.Total + int64(update.Luck), Avg: current.NftPower.Avg},
		ToolChargeTime:  current.ToolChargeTime,
		ToolMiningPower: current.ToolMiningPower,
		ToolNftPower:    current.ToolNftPower,

		ToolsUsed: append([]uint64(nil), current.ToolsUsed...),
		Lands:     append([]uint64(nil), current.Lands...),
		Planets:   append([]string(nil), current.Planets...),

		MiningCounter: current.MiningCounter,

		LastBlockNumber:     update.BlockNumber,
		LastBlockTimestamp:  update.BlockTimestamp,
		LastUpdateTimestamp: time.Now(),
		LastUpdateID:        uuid.NewString(),
		Rankings:            map[types.Metric]int{},
	}

	if update.Username != "" {
		agg.Username = update.Username
	}
	if update.Bounty > agg.TlmGainsHighest {
		agg.TlmGainsHighest = update.Bounty
	}

	for _, asset := range assets {
		if containsUint64(agg.ToolsUsed, asset.AssetID) || !containsUint64(update.BagItems, asset.AssetID) {
			continue
		}
		agg.ToolsUsed = append(agg.ToolsUsed, asset.AssetID)
		agg.ToolChargeTime.Total += int64(asset.Delay)
		agg.ToolMiningPower.Total += int64(asset.Ease)
		agg.ToolNftPower.Total += int64(asset.Luck)
	}

	if update.LandID != 0 && !containsUint64(agg.Lands, update.LandID) {
		agg.Lands = append(agg.Lands, update.LandID)
	}
	if update.PlanetName != "" && !containsString(agg.Planets, update.PlanetName) {
		agg.Planets = append(agg.Planets, update.PlanetName)
	}

	if update.MiningCounter > 0 {
		agg.MiningCounter += int64(update.MiningCounter)
	}

	divisor := agg.MiningCounter
	if divisor == 0 {
		divisor = int64(len(agg.ToolsUsed))
	}
	if divisor > 0 {
		recomputeAverages(agg, divisor)
	}

	return agg
}

func recomputeAverages(agg *model.Aggregate, divisor int64) {
	agg.ChargeTime.Avg = float64(agg.ChargeTime.Total) / float64(divisor)
	agg.MiningPower.Avg = float64(agg.MiningPower.Total) / float64(divisor)
	agg.NftPower.Avg = float64(agg.NftPower.Total) / float64(divisor)
	agg.ToolChargeTime.Avg = float64(agg.ToolChargeTime.Total) / float64(divisor)
	agg.ToolMiningPower.Avg = float64(agg.ToolMiningPower.Total) / float64(divisor)
	agg.ToolNftPower.Avg = float64(agg.ToolNftPower.Total) / float64(divisor)
}

func containsUint64(list []uint64, v uint64) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
