// Package metrics holds per-component Prometheus collectors too
// specialised for the top-level observability package, mirroring the
// teacher's split between its general observability package and a
// dedicated metrics subpackage for its highest-churn subsystem.
package metrics

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SocialMetrics tracks engagement volume and reward-curve behaviour for
// the social graph (C6): engagement counts by kind, a count of accepted
// events whose discounted weight fell to zero, and the rounding dust
// left over from cashout distribution.
type SocialMetrics struct {
	engagement      *prometheus.CounterVec
	curationDecay   *prometheus.CounterVec
	cashoutSum      *prometheus.GaugeVec
	roundingDust    *prometheus.GaugeVec
	moderationFlags *prometheus.CounterVec
}

var (
	socialOnce     sync.Once
	socialRegistry *SocialMetrics
)

// Social returns the lazily-initialised metrics registry for the social graph.
func Social() *SocialMetrics {
	socialOnce.Do(func() {
		socialRegistry = &SocialMetrics{
			engagement: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "social",
				Name:      "engagement_total",
				Help:      "Count of accepted engagement actions by kind (vote, view, share).",
			}, []string{"kind"}),
			curationDecay: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "social",
				Name:      "curation_decay_exhausted_total",
				Help:      "Count of accepted engagement actions whose discounted weight fell to zero.",
			}, []string{"kind"}),
			cashoutSum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "chainforge",
				Subsystem: "social",
				Name:      "cashout_sum",
				Help:      "Total reward distributed at a post's cashout time, by permlink bucket.",
			}, []string{"post"}),
			roundingDust: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "chainforge",
				Subsystem: "social",
				Name:      "cashout_rounding_dust",
				Help:      "Remainder left by a cashout's payout-split percentages, which is paid to the author.",
			}, []string{"post"}),
			moderationFlags: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "chainforge",
				Subsystem: "social",
				Name:      "moderation_flags_total",
				Help:      "Count of moderation tags applied within a community, by tag.",
			}, []string{"community", "tag"}),
		}
		prometheus.MustRegister(
			socialRegistry.engagement,
			socialRegistry.curationDecay,
			socialRegistry.cashoutSum,
			socialRegistry.roundingDust,
			socialRegistry.moderationFlags,
		)
	})
	return socialRegistry
}

// ObserveEngagement increments the engagement counter for a kind of action.
func (m *SocialMetrics) ObserveEngagement(kind string) {
	if m == nil {
		return
	}
	m.engagement.WithLabelValues(normalise(kind)).Inc()
}

// ObserveCurationDecayExhausted increments the decay-exhaustion counter.
func (m *SocialMetrics) ObserveCurationDecayExhausted(kind string) {
	if m == nil {
		return
	}
	m.curationDecay.WithLabelValues(normalise(kind)).Inc()
}

// RecordCashout sets the cashout-sum and rounding-dust gauges for a post
// under the label "<height>:<permlink>"; Engine.Cashout passes its block
// time as height. Labels are not removed once set.
func (m *SocialMetrics) RecordCashout(height uint64, permlink string, total, dust float64) {
	if m == nil {
		return
	}
	label := fmt.Sprintf("%d:%s", height, permlink)
	m.cashoutSum.WithLabelValues(label).Set(total)
	m.roundingDust.WithLabelValues(label).Set(dust)
}

// ObserveModerationFlag increments the moderation-tag counter for a community.
func (m *SocialMetrics) ObserveModerationFlag(community, tag string) {
	if m == nil {
		return
	}
	m.moderationFlags.WithLabelValues(normalise(community), normalise(tag)).Inc()
}

func normalise(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
