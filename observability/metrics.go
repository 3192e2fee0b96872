package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type evaluatorMetrics struct {
	dispatched *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	evaluatorMetricsOnce sync.Once
	evaluatorRegistry    *evaluatorMetrics

	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics

	rewardMetricsOnce sync.Once
	rewardRegistry    *RewardMetrics

	consensusMetricsOnce sync.Once
	consensusRegistry    *consensusMetrics
)

// EvaluatorDispatch returns the lazily-initialised metrics registry recording
// per-operation evaluator dispatch outcomes (C9).
func EvaluatorDispatch() *evaluatorMetrics {
	evaluatorMetricsOnce.Do(func() {
		evaluatorRegistry = &evaluatorMetrics{
			dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "evaluator",
				Name:      "operations_total",
				Help:      "Total operations dispatched by the evaluator, segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "evaluator",
				Name:      "errors_total",
				Help:      "Total evaluator errors segmented by operation and error code.",
			}, []string{"operation", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "chainforge",
				Subsystem: "evaluator",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for evaluator operation handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			evaluatorRegistry.dispatched,
			evaluatorRegistry.errors,
			evaluatorRegistry.latency,
		)
	})
	return evaluatorRegistry
}

// Observe records the outcome of one dispatched operation.
func (m *evaluatorMetrics) Observe(operation string, errCode string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if errCode != "" {
		outcome = "error"
		m.errors.WithLabelValues(operation, errCode).Inc()
	}
	m.dispatched.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// MarketMetrics tracks order-book and pool activity for the market engine (C4).
type MarketMetrics struct {
	ordersPlaced   *prometheus.CounterVec
	ordersMatched  *prometheus.CounterVec
	poolExchanges  *prometheus.CounterVec
	callOrderCalls *prometheus.CounterVec
	errors         *prometheus.CounterVec
}

// Market returns the singleton metrics registry for the market engine.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "market",
				Name:      "orders_placed_total",
				Help:      "Count of orders placed segmented by book and order kind.",
			}, []string{"book", "kind"}),
			ordersMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "market",
				Name:      "orders_matched_total",
				Help:      "Count of order matches segmented by book.",
			}, []string{"book"}),
			poolExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "market",
				Name:      "pool_exchanges_total",
				Help:      "Count of liquidity pool exchanges segmented by pool symbol.",
			}, []string{"pool"}),
			callOrderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "market",
				Name:      "call_orders_margin_called_total",
				Help:      "Count of call orders margin-called by check_call_orders, segmented by asset.",
			}, []string{"asset"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "market",
				Name:      "errors_total",
				Help:      "Count of market engine operation failures segmented by operation and reason.",
			}, []string{"operation", "reason"}),
		}
		prometheus.MustRegister(
			marketRegistry.ordersPlaced,
			marketRegistry.ordersMatched,
			marketRegistry.poolExchanges,
			marketRegistry.callOrderCalls,
			marketRegistry.errors,
		)
	})
	return marketRegistry
}

// RecordOrderPlaced increments the order-placement counter.
func (m *MarketMetrics) RecordOrderPlaced(book, kind string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(labelOrDefault(book), labelOrDefault(kind)).Inc()
}

// RecordOrderMatched increments the order-match counter.
func (m *MarketMetrics) RecordOrderMatched(book string) {
	if m == nil {
		return
	}
	m.ordersMatched.WithLabelValues(labelOrDefault(book)).Inc()
}

// RecordPoolExchange increments the pool-exchange counter.
func (m *MarketMetrics) RecordPoolExchange(pool string) {
	if m == nil {
		return
	}
	m.poolExchanges.WithLabelValues(labelOrDefault(pool)).Inc()
}

// RecordCallOrderMarginCalled increments the margin-call counter for an asset.
func (m *MarketMetrics) RecordCallOrderMarginCalled(asset string) {
	if m == nil {
		return
	}
	m.callOrderCalls.WithLabelValues(labelAsset(asset)).Inc()
}

// RecordError increments the error counter for a failed market operation.
func (m *MarketMetrics) RecordError(operation, reason string) {
	if m == nil {
		return
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "unspecified"
	}
	m.errors.WithLabelValues(labelOrDefault(operation), reason).Inc()
}

// RewardMetrics tracks inflation split and claim distribution for the reward
// engine (C5).
type RewardMetrics struct {
	fundsMinted   *prometheus.GaugeVec
	claimsApplied *prometheus.CounterVec
	floorsHit     *prometheus.CounterVec
}

// Reward returns the singleton metrics registry for the reward engine.
func Reward() *RewardMetrics {
	rewardMetricsOnce.Do(func() {
		rewardRegistry = &RewardMetrics{
			fundsMinted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "chainforge",
				Subsystem: "rewards",
				Name:      "fund_minted",
				Help:      "Amount minted into each per-block inflation fund, by fund name.",
			}, []string{"fund"}),
			claimsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "rewards",
				Name:      "claims_applied_total",
				Help:      "Count of reward claims applied segmented by recipient kind (account, business).",
			}, []string{"recipient_kind"}),
			floorsHit: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "rewards",
				Name:      "min_reward_floor_hit_total",
				Help:      "Count of blocks where a fund's share fell below its MIN_*_REWARD floor.",
			}, []string{"fund"}),
		}
		prometheus.MustRegister(
			rewardRegistry.fundsMinted,
			rewardRegistry.claimsApplied,
			rewardRegistry.floorsHit,
		)
	})
	return rewardRegistry
}

// RecordFundMinted sets the gauge for a fund's minted amount this block.
func (m *RewardMetrics) RecordFundMinted(fund string, amount float64) {
	if m == nil {
		return
	}
	m.fundsMinted.WithLabelValues(labelOrDefault(fund)).Set(amount)
}

// RecordClaimApplied increments the claim counter for a recipient kind.
func (m *RewardMetrics) RecordClaimApplied(recipientKind string) {
	if m == nil {
		return
	}
	m.claimsApplied.WithLabelValues(labelOrDefault(recipientKind)).Inc()
}

// RecordFloorHit increments the floor-enforcement counter for a fund.
func (m *RewardMetrics) RecordFloorHit(fund string) {
	if m == nil {
		return
	}
	m.floorsHit.WithLabelValues(labelOrDefault(fund)).Inc()
}

type consensusMetrics struct {
	blockInterval prometheus.Gauge
	scheduleSize  prometheus.Gauge
}

// Consensus exposes the metrics registry for producer-protocol instrumentation (C8).
func Consensus() *consensusMetrics {
	consensusMetricsOnce.Do(func() {
		consensusRegistry = &consensusMetrics{
			blockInterval: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "chainforge",
				Subsystem: "consensus",
				Name:      "block_interval_seconds",
				Help:      "Interval in seconds between the timestamps of consecutive committed blocks.",
			}),
			scheduleSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "chainforge",
				Subsystem: "consensus",
				Name:      "producer_schedule_size",
				Help:      "Number of producer slots in the current round schedule.",
			}),
		}
		prometheus.MustRegister(consensusRegistry.blockInterval, consensusRegistry.scheduleSize)
	})
	return consensusRegistry
}

// RecordBlockInterval updates the block interval gauge with the supplied duration.
func (m *consensusMetrics) RecordBlockInterval(interval time.Duration) {
	if m == nil {
		return
	}
	seconds := interval.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.blockInterval.Set(seconds)
}

// RecordScheduleSize updates the schedule-size gauge.
func (m *consensusMetrics) RecordScheduleSize(size int) {
	if m == nil {
		return
	}
	m.scheduleSize.Set(float64(size))
}

func labelOrDefault(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}
