// metrics.go — Prometheus HTTP метрики NFT Store.
// Регистрирует метрики: nft_http_requests_total, nft_http_request_duration_seconds.
// Бизнес-метрики (nft_records_total, nft_uploads_total) экспортируются
// отсюда и обновляются из сервисного слоя и main.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nft_http_requests_total",
			Help: "Общее количество HTTP-запросов к NFT Store",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nft_http_request_duration_seconds",
			Help:    "Длительность обработки HTTP-запросов",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики
var (
	// RecordsTotal — количество записей NFT в локальном индексе.
	RecordsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nft_records_total",
			Help: "Количество записей NFT в локальном индексе",
		},
	)

	// UploadsTotal — количество загрузок по результату (success, validation_error, backend_error, internal_error).
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nft_uploads_total",
			Help: "Количество обработанных загрузок по результату",
		},
		[]string{"result"},
	)
)

// Metrics возвращает middleware, записывающий Prometheus-метрики
// для каждого HTTP-запроса. Путь берётся из chi route pattern
// (/nft/{nft_id}, не конкретный id), чтобы не раздувать кардинальность.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			httpRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(wrapped.statusCode),
			).Inc()

			httpRequestDuration.WithLabelValues(r.Method, path).
				Observe(time.Since(start).Seconds())
		})
	}
}
