package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ScepterCode/Storemaster-sub002/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Tenant context metrics
	TenantContextMissingCounter prometheus.Counter

	// Sync metrics
	SyncOperationsCounter prometheus.CounterVec
	DrainDuration         prometheus.Histogram
	SyncQueueDepthGauge   prometheus.GaugeVec

	// Inventory metrics
	AllocationsCounter    prometheus.CounterVec
	ProductInventoryGauge prometheus.GaugeVec

	// Sale metrics
	SalesCounter    prometheus.CounterVec
	SaleAmountTotal prometheus.Counter

	initialized bool
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Tenant context metrics
	TenantContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_tenant_context_missing_total",
			Help: "Total number of requests without tenant context",
		},
	)

	// Sync operation outcomes, labeled by entity type and outcome
	// (success, validation, conflict, transient)
	SyncOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sync_operations_total",
			Help: "Total number of sync operation dispatches by outcome",
		},
		[]string{"entity_type", "outcome"},
	)

	DrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_sync_drain_duration_seconds",
			Help:    "Duration of queue drain cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncQueueDepthGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_sync_queue_depth",
			Help: "Number of operations awaiting sync per owner",
		},
		[]string{"owner_id"},
	)

	// Batch allocation outcomes (allocated, insufficient_stock, released)
	AllocationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_allocations_total",
			Help: "Total number of batch allocation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Product inventory metrics
	ProductInventoryGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Current inventory level for products",
		},
		[]string{"product_id", "product_name"},
	)

	// Sale outcomes (completed, aborted_conflict, aborted_validation)
	SalesCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sales_total",
			Help: "Total number of processed sales by outcome",
		},
		[]string{"outcome"},
	)

	SaleAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_sale_amount_total",
			Help: "Cumulative grand total of completed sales",
		},
	)

	initialized = true
}

// RecordTenantContextMissing increments the counter for requests lacking
// tenant context
func RecordTenantContextMissing() {
	if !initialized {
		return
	}
	TenantContextMissingCounter.Inc()
}

// RecordSyncOperation increments the counter for sync dispatch outcomes
func RecordSyncOperation(entityType, outcome string) {
	if !initialized {
		return
	}
	SyncOperationsCounter.WithLabelValues(entityType, outcome).Inc()
}

// ObserveDrainDuration records the duration of one drain cycle
func ObserveDrainDuration(d time.Duration) {
	if !initialized {
		return
	}
	DrainDuration.Observe(d.Seconds())
}

// SetQueueDepth updates the pending-operation gauge for an owner
func SetQueueDepth(ownerID string, depth int) {
	if !initialized {
		return
	}
	SyncQueueDepthGauge.WithLabelValues(ownerID).Set(float64(depth))
}

// RecordAllocation increments the counter for allocation outcomes
func RecordAllocation(outcome string) {
	if !initialized {
		return
	}
	AllocationsCounter.WithLabelValues(outcome).Inc()
}

// UpdateProductInventory updates the gauge for product inventory
func UpdateProductInventory(productID string, productName string, count float64) {
	if !initialized {
		return
	}
	ProductInventoryGauge.WithLabelValues(productID, productName).Set(count)
}

// RecordSale increments the counter for sale outcomes
func RecordSale(outcome string, amount float64) {
	if !initialized {
		return
	}
	SalesCounter.WithLabelValues(outcome).Inc()
	if outcome == "completed" {
		SaleAmountTotal.Add(amount)
	}
}
