// Package metrics 定义服务的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shortlink"

var (
	// HTTPRequests 按路由和状态码统计请求数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"route"})

	// RedirectDecisions 短码解析结果分布
	RedirectDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "redirect_decisions_total",
		Help:      "Resolver decisions by kind.",
	}, []string{"decision"})

	// RateLimited 被限流拒绝的请求数
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	// Clicks 点击追踪结果: recorded | orphaned | failed | dropped
	Clicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clicks_total",
		Help:      "Click tracking outcomes.",
	}, []string{"result"})

	TrackQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "track_queue_depth",
		Help:      "Click events waiting in the tracking queue.",
	})

	// AggregationRuns 汇总任务各阶段结果
	AggregationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregation_runs_total",
		Help:      "Aggregation stage outcomes.",
	}, []string{"stage", "result"})

	AggregationRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "aggregation_rows_total",
		Help:      "Rows written (rollup) or deleted (prune) by the aggregator.",
	}, []string{"stage"})

	// MetadataFetches 元数据抓取结果: cache_hit | fetched | failed
	MetadataFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "metadata_fetches_total",
		Help:      "Metadata lookups by outcome.",
	}, []string{"result"})
)
