package market

import (
	"fmt"
	"sort"

	"chainforge/core/store"
	"chainforge/core/types"
)

// PriceFeed is one producer's published feed (spec §4.4).
type PriceFeed struct {
	SettlementPrice          types.Price
	CoreExchangeRate         types.Price
	MaintenanceCollateralBPS uint32 // e.g. 17500 = 175%
	MaxShortSqueezeBPS       uint32
	PublishedAt              types.BlockTime
}

// BitassetData is the spec §3 BitassetData entity.
type BitassetData struct {
	Symbol                     types.AssetSymbol
	BackingAsset               types.AssetSymbol
	FeedLifetimeSeconds        int64
	MinimumFeeds               uint32
	ForceSettlementDelay       int64
	ForceSettlementOffsetBPS   uint32
	MaxForceSettleVolumeBPS    uint32
	Feeds                      map[string]PriceFeed
	MedianFeed                 PriceFeed
	SettlementPrice            *types.Price
	SettlementFund             types.Amount
	CurrentMaintenanceCollateralizationBPS uint32
}

// PrimaryKey implements store.Row.
func (b BitassetData) PrimaryKey() string { return string(b.Symbol) }

// Bitassets owns the bitasset-data table.
type Bitassets struct {
	table *store.Table[string, BitassetData]
}

// NewBitassets registers the table on s.
func NewBitassets(s *store.Store) *Bitassets {
	return &Bitassets{table: store.NewTable[string, BitassetData](s, "bitasset_data")}
}

// Create inserts a new bitasset-data row.
func (b *Bitassets) Create(data BitassetData) error {
	if data.Feeds == nil {
		data.Feeds = make(map[string]PriceFeed)
	}
	return b.table.Insert(data)
}

// Get returns the bitasset-data row for symbol.
func (b *Bitassets) Get(symbol types.AssetSymbol) (BitassetData, bool) { return b.table.Get(string(symbol)) }

// PublishFeed records (or updates) one producer's feed for an asset,
// gated by the publisher-eligibility rule in spec §4.4: producer-fed
// assets accept feeds only from the current active producer set, unless
// the publisher already has an entry in Feeds (a pre-existing
// non-producer feed publisher keeps publishing rights).
func (b *Bitassets) PublishFeed(symbol types.AssetSymbol, publisher string, feed PriceFeed, isActiveProducer bool, producerFedAsset bool) error {
	data, ok := b.table.Get(string(symbol))
	if !ok {
		return fmt.Errorf("market: unknown bitasset %q", symbol)
	}
	_, alreadyPublishes := data.Feeds[publisher]
	if producerFedAsset && !isActiveProducer && !alreadyPublishes {
		return fmt.Errorf("market: %q is not authorised to publish a feed for %q", publisher, symbol)
	}
	return b.table.Modify(string(symbol), func(row *BitassetData) {
		if row.Feeds == nil {
			row.Feeds = make(map[string]PriceFeed)
		}
		row.Feeds[publisher] = feed
		recomputeMedian(row)
	})
}

// RemoveFeed drops a publisher's feed (e.g. it left the active producer
// set) and recomputes the median.
func (b *Bitassets) RemoveFeed(symbol types.AssetSymbol, publisher string) error {
	return b.table.Modify(string(symbol), func(row *BitassetData) {
		delete(row.Feeds, publisher)
		recomputeMedian(row)
	})
}

// ExpireFeeds drops feeds older than FeedLifetimeSeconds and recomputes
// the median; called whenever time advances (spec §4.4).
func (b *Bitassets) ExpireFeeds(symbol types.AssetSymbol, now types.BlockTime) error {
	return b.table.Modify(string(symbol), func(row *BitassetData) {
		changed := false
		for publisher, feed := range row.Feeds {
			if now-feed.PublishedAt > types.BlockTime(row.FeedLifetimeSeconds) {
				delete(row.Feeds, publisher)
				changed = true
			}
		}
		if changed {
			recomputeMedian(row)
		}
	})
}

// recomputeMedian rebuilds MedianFeed from the live feed set, applied
// whenever feeds change, the feed set changes, minimum-feeds changes, or
// feed lifetime changes (spec §4.4). Below MinimumFeeds the median feed
// is cleared (zero value), signalling "no price available".
func recomputeMedian(row *BitassetData) {
	if uint32(len(row.Feeds)) < row.MinimumFeeds || len(row.Feeds) == 0 {
		row.MedianFeed = PriceFeed{}
		return
	}
	feeds := make([]PriceFeed, 0, len(row.Feeds))
	for _, f := range row.Feeds {
		feeds = append(feeds, f)
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].SettlementPrice.LessThan(feeds[j].SettlementPrice) })
	row.MedianFeed = feeds[len(feeds)/2]
}
