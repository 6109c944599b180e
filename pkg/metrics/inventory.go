package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics tracks ledger and transfer throughput.
type InventoryMetrics struct {
	movementsRecorded *prometheus.CounterVec
	transfersCreated  *prometheus.CounterVec
	transfersClosed   *prometheus.CounterVec
	balanceDuration   *prometheus.HistogramVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	movementsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movements_recorded_total",
		Help: "Movement ledger entries recorded, by movement type.",
	}, []string{"type"})
	transfersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_created_total",
		Help: "Stock transfers created, by transfer type.",
	}, []string{"type"})
	transfersClosed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfers_closed_total",
		Help: "Stock transfers that reached a terminal status.",
	}, []string{"status"})
	balanceDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "balance_calculation_seconds",
		Help:    "Duration of daily balance calculations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tenant"})
	reg.MustRegister(movementsRecorded, transfersCreated, transfersClosed, balanceDuration)
	return &InventoryMetrics{
		movementsRecorded: movementsRecorded,
		transfersCreated:  transfersCreated,
		transfersClosed:   transfersClosed,
		balanceDuration:   balanceDuration,
	}
}

// IncMovementRecorded counts a ledger entry for the given movement type.
func (m *InventoryMetrics) IncMovementRecorded(movementType string) {
	if m == nil || m.movementsRecorded == nil {
		return
	}
	m.movementsRecorded.WithLabelValues(normalizeLabel(movementType)).Inc()
}

// IncTransferCreated counts a new transfer of the given type.
func (m *InventoryMetrics) IncTransferCreated(transferType string) {
	if m == nil || m.transfersCreated == nil {
		return
	}
	m.transfersCreated.WithLabelValues(normalizeLabel(transferType)).Inc()
}

// IncTransferClosed counts a transfer reaching a terminal status.
func (m *InventoryMetrics) IncTransferClosed(status string) {
	if m == nil || m.transfersClosed == nil {
		return
	}
	m.transfersClosed.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveBalanceDuration records a tenant's balance calculation duration.
func (m *InventoryMetrics) ObserveBalanceDuration(tenant string, duration time.Duration) {
	if m == nil || m.balanceDuration == nil {
		return
	}
	m.balanceDuration.WithLabelValues(normalizeLabel(tenant)).Observe(duration.Seconds())
}
