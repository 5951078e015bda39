// Package metrics exposes the Prometheus collectors for the key-value
// store and the TETRA protocol stack: scheduler occupancy, call state
// transitions, and fragmentation activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	// KV store metrics
	KVOperationsTotal   *prometheus.CounterVec
	KVOperationDuration *prometheus.HistogramVec
	KVKeysTotal         prometheus.Gauge
	KVExpiredKeysTotal  prometheus.Counter
	KVCleanupDuration   prometheus.Histogram

	// UMAC scheduler metrics
	SchedulerSlotsAllocatedTotal *prometheus.CounterVec
	SchedulerActiveCircuits      prometheus.Gauge
	SchedulerFragmentsPending    prometheus.Gauge
	SchedulerFragmentsDropped    *prometheus.CounterVec

	// CMCE call control metrics
	CallsSetupTotal     *prometheus.CounterVec
	CallsActive         prometheus.Gauge
	CallStateDuration   *prometheus.HistogramVec
	HangtimeReusesTotal prometheus.Counter

	// Voice bridge metrics
	VoiceBridgeFramesTotal  *prometheus.CounterVec
	VoiceBridgeJitterBuffer prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		KVOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kv_operations_total",
			Help: "The total number of KV operations performed",
		}, []string{"operation", "status"}),
		KVOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kv_operation_duration_seconds",
			Help:    "Duration of KV operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		KVKeysTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kv_keys_total",
			Help: "The current number of keys in the KV store",
		}),
		KVExpiredKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kv_expired_keys_total",
			Help: "The total number of expired keys cleaned up",
		}),
		KVCleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kv_cleanup_duration_seconds",
			Help:    "Duration of KV cleanup operations",
			Buckets: prometheus.DefBuckets,
		}),

		SchedulerSlotsAllocatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_slots_allocated_total",
			Help: "Total number of downlink timeslots allocated, by logical channel",
		}, []string{"logical_channel"}),
		SchedulerActiveCircuits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_active_circuits",
			Help: "Current number of circuits held by the scheduler's circuit table",
		}),
		SchedulerFragmentsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_fragments_pending",
			Help: "Current number of partially reassembled uplink fragment chains",
		}),
		SchedulerFragmentsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_fragments_dropped_total",
			Help: "Total number of fragment chains discarded, by reason",
		}, []string{"reason"}),

		CallsSetupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calls_setup_total",
			Help: "Total number of call setups attempted, by outcome",
		}, []string{"outcome"}),
		CallsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "calls_active",
			Help: "Current number of calls in CallActive or TxCeased state",
		}),
		CallStateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "call_state_duration_seconds",
			Help:    "Time spent in each call control state before transitioning",
			Buckets: prometheus.DefBuckets,
		}, []string{"state"}),
		HangtimeReusesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hangtime_reuses_total",
			Help: "Total number of times a circuit was reused during its hangtime window",
		}),

		VoiceBridgeFramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voice_bridge_frames_total",
			Help: "Total number of audio frames exchanged with the voice bridge, by direction",
		}, []string{"direction"}),
		VoiceBridgeJitterBuffer: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voice_bridge_jitter_buffer_depth",
			Help: "Current depth of the voice bridge jitter buffer, in frames",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.KVOperationsTotal)
	prometheus.MustRegister(m.KVOperationDuration)
	prometheus.MustRegister(m.KVKeysTotal)
	prometheus.MustRegister(m.KVExpiredKeysTotal)
	prometheus.MustRegister(m.KVCleanupDuration)
	prometheus.MustRegister(m.SchedulerSlotsAllocatedTotal)
	prometheus.MustRegister(m.SchedulerActiveCircuits)
	prometheus.MustRegister(m.SchedulerFragmentsPending)
	prometheus.MustRegister(m.SchedulerFragmentsDropped)
	prometheus.MustRegister(m.CallsSetupTotal)
	prometheus.MustRegister(m.CallsActive)
	prometheus.MustRegister(m.CallStateDuration)
	prometheus.MustRegister(m.HangtimeReusesTotal)
	prometheus.MustRegister(m.VoiceBridgeFramesTotal)
	prometheus.MustRegister(m.VoiceBridgeJitterBuffer)
}

// KV store metrics methods
func (m *Metrics) RecordKVOperation(operation, status string, duration float64) {
	m.KVOperationsTotal.WithLabelValues(operation, status).Inc()
	m.KVOperationDuration.WithLabelValues(operation).Observe(duration)
}

func (m *Metrics) SetKVKeysTotal(count float64) {
	m.KVKeysTotal.Set(count)
}

func (m *Metrics) IncrementKVExpiredKeys(count float64) {
	m.KVExpiredKeysTotal.Add(count)
}

func (m *Metrics) RecordKVCleanup(duration float64) {
	m.KVCleanupDuration.Observe(duration)
}

// Scheduler metrics methods
func (m *Metrics) RecordSlotAllocated(logicalChannel string) {
	m.SchedulerSlotsAllocatedTotal.WithLabelValues(logicalChannel).Inc()
}

func (m *Metrics) SetActiveCircuits(count float64) {
	m.SchedulerActiveCircuits.Set(count)
}

func (m *Metrics) SetFragmentsPending(count float64) {
	m.SchedulerFragmentsPending.Set(count)
}

func (m *Metrics) IncrementFragmentsDropped(reason string) {
	m.SchedulerFragmentsDropped.WithLabelValues(reason).Inc()
}

// Call control metrics methods
func (m *Metrics) RecordCallSetup(outcome string) {
	m.CallsSetupTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveCalls(count float64) {
	m.CallsActive.Set(count)
}

func (m *Metrics) RecordCallStateDuration(state string, seconds float64) {
	m.CallStateDuration.WithLabelValues(state).Observe(seconds)
}

func (m *Metrics) IncrementHangtimeReuses() {
	m.HangtimeReusesTotal.Inc()
}

// Voice bridge metrics methods
func (m *Metrics) RecordVoiceBridgeFrame(direction string) {
	m.VoiceBridgeFramesTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) SetVoiceBridgeJitterBufferDepth(depth float64) {
	m.VoiceBridgeJitterBuffer.Set(depth)
}
