// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

var (
	// HTTPRequestDuration 按路由统计请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route, method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})

	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders created, labelled by initial status.",
	}, []string{"status"})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Order status transitions.",
	}, []string{"from", "to"})

	CouponsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupons_consumed_total",
		Help:      "Coupons marked as used, labelled by coupon type.",
	}, []string{"type"})

	CouponDiscountAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coupon_discount_amount_total",
		Help:      "Sum of discount amounts granted by consumed coupons.",
	})

	InquiriesTriaged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inquiries_triaged_total",
		Help:      "Support inquiries by computed priority.",
	}, []string{"priority"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_errors_total",
		Help:      "Failures returned by the external store, by operation.",
	}, []string{"op"})
)
