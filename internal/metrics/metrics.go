package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pensezy", Name: "http_requests_total", Help: "Processed HTTP requests",
	}, []string{"app", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pensezy", Name: "http_request_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"app", "route"})
	HandlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pensezy", Name: "handler_errors_total", Help: "Handler errors (5xx)",
	}, []string{"app"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pensezy", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	WalletCredits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pensezy", Name: "wallet_credits_total", Help: "Sale credits written to seller wallets",
	})
	JuryPreviews = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pensezy", Name: "jury_preview_proposals", Help: "Proposals per jury scheduling preview",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pensezy", Name: "notifications_total", Help: "Telegram notifications by outcome",
	}, []string{"kind", "outcome"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, HandlerErrors, DBPing, WalletCredits, JuryPreviews, Notifications)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveRequest(app, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(app, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(app, route).Observe(d.Seconds())
	if status >= http.StatusInternalServerError {
		HandlerErrors.WithLabelValues(app).Inc()
	}
}
