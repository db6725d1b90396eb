package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthorizationTotal 按结果统计下载授权，outcome 取 granted / rate_limited / expired 等
	AuthorizationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharelink",
		Name:      "download_authorizations_total",
		Help:      "Download authorization decisions by outcome.",
	}, []string{"outcome"})

	AuthorizationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sharelink",
		Name:      "download_authorization_seconds",
		Help:      "Latency of download authorization including the consume transaction.",
		Buckets:   prometheus.DefBuckets,
	})

	SignedURLFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sharelink",
		Name:      "signed_url_failures_total",
		Help:      "Signed URL issuance failures after a committed consume.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sharelink",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"route", "method", "status"})
)

// ObserveAuthorization 记录一次授权的结果和耗时
func ObserveAuthorization(outcome string, elapsed time.Duration) {
	AuthorizationTotal.WithLabelValues(outcome).Inc()
	AuthorizationDuration.Observe(elapsed.Seconds())
}
