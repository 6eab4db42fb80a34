package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// BridgeSubmissions 桥接提交相关
	BridgeSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_submissions_total",
			Help: "Total number of bridge deposit submissions by result.",
		},
		[]string{"chain_id", "result"},
	)
	BridgeSignerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_signer_duration_seconds",
			Help:    "Time spent waiting on the signer to sign and broadcast.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"chain_id"},
	)

	// DepositRecords 账本指标
	DepositRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deposit_ledger_records_total",
			Help: "Total number of deposit records created.",
		},
	)
	DepositTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_ledger_transitions_total",
			Help: "Total number of deposit status transitions.",
		},
		[]string{"status"},
	)
	DepositObserverChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_observer_checks_total",
			Help: "Total number of receipt checks done by the chain observer.",
		},
		[]string{"chain_id", "outcome"},
	)

	// AsyncWriterMessagesQueued AsyncWriter 指标
	AsyncWriterMessagesQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_queued_total",
			Help: "Total number of messages queued to async writer.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_batch_size",
			Help:    "Number of items in each batch submitted to the writer.",
			Buckets: []float64{1, 10, 50, 100, 200, 500},
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
	AsyncWriterItemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_items_written_total",
			Help: "Total number of items successfully written by the async writer.",
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		// 桥接指标
		BridgeSubmissions,
		BridgeSignerDuration,

		// 账本指标
		DepositRecords,
		DepositTransitions,
		DepositObserverChecks,

		// async 写入指标
		AsyncWriterMessagesQueued,
		AsyncWriterMessagesDropped,
		AsyncWriterBatchSize,
		AsyncWriterFlushDuration,
		AsyncWriterItemsWritten,
	)
}
