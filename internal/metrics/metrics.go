package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 摄取指标
var (
	// IngestJobsTotal 摄取任务总数（按终态统计）
	IngestJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eduhub_rag_ingest_jobs_total",
			Help: "摄取任务总数",
		},
		[]string{"status"},
	)

	// IngestDuration 单次摄取耗时（秒）
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eduhub_rag_ingest_duration_seconds",
			Help:    "摄取任务耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ChunksIndexedTotal 已入库的知识片段总数
	ChunksIndexedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eduhub_rag_chunks_indexed_total",
			Help: "已入库的知识片段总数",
		},
	)
)

// 检索指标
var (
	// SearchesTotal 语义检索总数
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eduhub_rag_searches_total",
			Help: "语义检索总数",
		},
		[]string{"status"},
	)

	// SearchDuration 检索延迟（秒）
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eduhub_rag_search_duration_seconds",
			Help:    "语义检索延迟分布",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SearchResults 每次检索返回的片段数
	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eduhub_rag_search_results",
			Help:    "检索返回片段数分布",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 12, 20},
		},
	)
)
