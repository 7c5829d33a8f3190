package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Total number of cart mutations",
	}, []string{"operation"})

	CheckoutQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_quotes_total",
		Help: "Total number of checkout quotes computed",
	}, []string{"payment_method"})

	CODOrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cod_orders_total",
		Help: "Total number of cash on delivery orders handed off to WhatsApp",
	})

	PaymentInitiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiations_total",
		Help: "Total number of payment initiations by result",
	}, []string{"result"})

	PaymentStatusChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_checks_total",
		Help: "Total number of payment status lookups by mapped outcome",
	}, []string{"outcome"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of gateway webhook deliveries",
	}, []string{"type", "result"})

	OrderLogAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_log_attempts_total",
		Help: "Total number of spreadsheet order log attempts",
	}, []string{"result"})

	OrderLogGiveUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_log_give_ups_total",
		Help: "Total number of order summaries dropped after exhausting retries",
	})

	PaymentOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_outcomes_total",
		Help: "Total number of payment outcomes applied to order records",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
