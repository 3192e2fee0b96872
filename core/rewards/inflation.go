package rewards

import (
	"chainforge/core/types"
	"chainforge/observability"
)

// Funds is one block's inflation allocation, split per spec §4.6.
type Funds struct {
	Content  types.Amount
	Curation types.Amount
	Producer types.Amount
	POW      types.Amount
	Activity types.Amount
}

// Split computes one block's inflation pool from totalSupply at
// cfg.InflationRateBPS, divides it among the five funds by their
// configured basis-point shares, and tops up any fund that would
// otherwise fall below its configured MIN_*_REWARD floor (spec §4.6:
// "minimums are enforced, never below MIN_*_REWARD").
func Split(totalSupply types.Amount, cfg Config) (Funds, error) {
	pool, err := totalSupply.MulDiv(uint64(cfg.InflationRateBPS), 10000)
	if err != nil {
		return Funds{}, err
	}

	content, err := floorAt("content", pool, cfg.ContentFundBPS, cfg.MinContentReward)
	if err != nil {
		return Funds{}, err
	}
	curation, err := floorAt("curation", pool, cfg.CurationFundBPS, cfg.MinCurationReward)
	if err != nil {
		return Funds{}, err
	}
	producer, err := floorAt("producer", pool, cfg.ProducerFundBPS, cfg.MinProducerReward)
	if err != nil {
		return Funds{}, err
	}
	pow, err := floorAt("pow", pool, cfg.POWFundBPS, cfg.MinPOWReward)
	if err != nil {
		return Funds{}, err
	}
	activity, err := floorAt("activity", pool, cfg.ActivityFundBPS, cfg.MinActivityReward)
	if err != nil {
		return Funds{}, err
	}

	return Funds{Content: content, Curation: curation, Producer: producer, POW: pow, Activity: activity}, nil
}

func floorAt(fund string, pool types.Amount, shareBPS uint32, floor types.Amount) (types.Amount, error) {
	share, err := pool.MulDiv(uint64(shareBPS), 10000)
	if err != nil {
		return types.Amount{}, err
	}
	if share.LessThan(floor) {
		observability.Reward().RecordFloorHit(fund)
		observability.Reward().RecordFundMinted(fund, float64(floor.Uint64()))
		return floor, nil
	}
	observability.Reward().RecordFundMinted(fund, float64(share.Uint64()))
	return share, nil
}
