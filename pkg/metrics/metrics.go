package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ==================== 导入 ====================

var (
	// ImportRuns 导入执行次数
	// Labels: status (success, aborted)
	ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "purbeurre",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Catalog import runs by final status",
	}, []string{"status"})

	// ImportProducts 商品导入结果
	// Labels: outcome (created, updated, unchanged, skipped, failed, deleted)
	ImportProducts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "purbeurre",
		Subsystem: "import",
		Name:      "products_total",
		Help:      "Imported product records by outcome",
	}, []string{"outcome"})

	// ImportCategories 分类拉取结果
	// Labels: status (selected, failed)
	ImportCategories = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "purbeurre",
		Subsystem: "import",
		Name:      "categories_total",
		Help:      "Selected categories and failed category fetches",
	}, []string{"status"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "purbeurre",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Wall time of a full catalog import",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})
)

// ==================== HTTP ====================

var (
	// HTTPRequests 请求计数
	// Labels: method, route (gin FullPath), status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "purbeurre",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "purbeurre",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SubstituteResults 每次替代品查询返回的条数
	SubstituteResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "purbeurre",
		Subsystem: "substitute",
		Name:      "results",
		Help:      "Number of substitutes returned per lookup",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)
