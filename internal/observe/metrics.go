// Package observe provides application-wide observability primitives for
// qilbeedb: OpenTelemetry metrics, distributed tracing, and structured
// logging. A Prometheus exporter bridge is available via [InitProvider] so
// metrics can be scraped via the standard /metrics endpoint by an embedding
// process. A package-level default [Metrics] instance ([DefaultMetrics]) is
// provided for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all qilbeedb metrics.
const meterName = "github.com/qilbeedb/qilbeedb"

// Metrics holds all OpenTelemetry metric instruments for the engine. All
// fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per component ---

	// StorageOpDuration tracks key-value engine operation latency. Use with
	// attribute.String("op", "get"|"put"|"delete"|"batch"|"iterate").
	StorageOpDuration metric.Float64Histogram

	// GraphOpDuration tracks graph-layer operation latency. Use with
	// attribute.String("graph_id", ...), attribute.String("op", "create_node"|...).
	GraphOpDuration metric.Float64Histogram

	// HNSWSearchDuration tracks vector-index search latency.
	HNSWSearchDuration metric.Float64Histogram

	// QueryDuration tracks parse+plan+execute latency for a single query.
	QueryDuration metric.Float64Histogram

	// ConsolidationDuration tracks a single consolidation run's latency. Use
	// with attribute.String("strategy", "summarize"|"extract_facts"|"merge").
	ConsolidationDuration metric.Float64Histogram

	// CollaboratorDuration tracks latency of calls to the LLM/embedding
	// collaborators. Use with attribute.String("collaborator", "llm"|"embedder").
	CollaboratorDuration metric.Float64Histogram

	// --- Counters ---

	// TransactionsCommitted counts committed transactions.
	TransactionsCommitted metric.Int64Counter

	// TransactionsAborted counts aborted/conflicted transactions. Use with
	// attribute.String("reason", "conflict"|"timeout"|"explicit").
	TransactionsAborted metric.Int64Counter

	// EpisodesConsolidated counts episodes folded into a consolidated memory.
	EpisodesConsolidated metric.Int64Counter

	// AuditEventsLogged counts audit events recorded, by type.
	AuditEventsLogged metric.Int64Counter

	// --- Error counters ---

	// StorageErrors counts storage-engine failures by op.
	StorageErrors metric.Int64Counter

	// QueryErrors counts query parse/plan/execute failures by stage.
	QueryErrors metric.Int64Counter

	// --- Gauges ---

	// OpenGraphs tracks the number of catalogued graphs.
	OpenGraphs metric.Int64UpDownCounter

	// AgentMemoriesActive tracks the number of in-process AgentMemory stores.
	AgentMemoriesActive metric.Int64UpDownCounter

	// HNSWIndexSize tracks the number of vectors held by an HNSW index.
	HNSWIndexSize metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) suited to
// storage and query-engine latencies.
var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StorageOpDuration, err = m.Float64Histogram("qilbeedb.storage.op.duration",
		metric.WithDescription("Latency of a single storage engine operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GraphOpDuration, err = m.Float64Histogram("qilbeedb.graph.op.duration",
		metric.WithDescription("Latency of a graph-layer operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HNSWSearchDuration, err = m.Float64Histogram("qilbeedb.hnsw.search.duration",
		metric.WithDescription("Latency of an HNSW vector search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryDuration, err = m.Float64Histogram("qilbeedb.query.duration",
		metric.WithDescription("End-to-end latency of parse+plan+execute for a query."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ConsolidationDuration, err = m.Float64Histogram("qilbeedb.consolidation.duration",
		metric.WithDescription("Latency of a single consolidation run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorDuration, err = m.Float64Histogram("qilbeedb.collaborator.duration",
		metric.WithDescription("Latency of calls to the text-completion or embedding collaborator."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TransactionsCommitted, err = m.Int64Counter("qilbeedb.txn.committed",
		metric.WithDescription("Total committed transactions."),
	); err != nil {
		return nil, err
	}
	if met.TransactionsAborted, err = m.Int64Counter("qilbeedb.txn.aborted",
		metric.WithDescription("Total aborted or conflicted transactions, by reason."),
	); err != nil {
		return nil, err
	}
	if met.EpisodesConsolidated, err = m.Int64Counter("qilbeedb.consolidation.episodes",
		metric.WithDescription("Total episodes folded into a consolidated memory."),
	); err != nil {
		return nil, err
	}
	if met.AuditEventsLogged, err = m.Int64Counter("qilbeedb.security.audit_events",
		metric.WithDescription("Total audit events recorded, by event type."),
	); err != nil {
		return nil, err
	}

	if met.StorageErrors, err = m.Int64Counter("qilbeedb.storage.errors",
		metric.WithDescription("Total storage engine operation failures, by op."),
	); err != nil {
		return nil, err
	}
	if met.QueryErrors, err = m.Int64Counter("qilbeedb.query.errors",
		metric.WithDescription("Total query failures, by stage (parse, plan, execute)."),
	); err != nil {
		return nil, err
	}

	if met.OpenGraphs, err = m.Int64UpDownCounter("qilbeedb.graph.open_count",
		metric.WithDescription("Number of catalogued graphs."),
	); err != nil {
		return nil, err
	}
	if met.AgentMemoriesActive, err = m.Int64UpDownCounter("qilbeedb.memory.active_count",
		metric.WithDescription("Number of in-process AgentMemory stores."),
	); err != nil {
		return nil, err
	}
	if met.HNSWIndexSize, err = m.Int64UpDownCounter("qilbeedb.hnsw.index_size",
		metric.WithDescription("Number of vectors held by an HNSW index."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStorageOp records a storage operation's duration and, on failure,
// increments StorageErrors.
func (m *Metrics) RecordStorageOp(ctx context.Context, op string, seconds float64, err error) {
	m.StorageOpDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
	if err != nil {
		m.StorageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// RecordGraphOp records a graph-layer operation's duration.
func (m *Metrics) RecordGraphOp(ctx context.Context, graphID, op string, seconds float64) {
	m.GraphOpDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("graph_id", graphID),
			attribute.String("op", op),
		),
	)
}

// RecordQuery records a query's end-to-end duration and, on failure,
// increments QueryErrors for the given stage.
func (m *Metrics) RecordQuery(ctx context.Context, seconds float64, failedStage string) {
	m.QueryDuration.Record(ctx, seconds)
	if failedStage != "" {
		m.QueryErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", failedStage)))
	}
}

// RecordConsolidation records a consolidation run's duration and the number
// of episodes it processed.
func (m *Metrics) RecordConsolidation(ctx context.Context, strategy string, seconds float64, episodes int) {
	m.ConsolidationDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("strategy", strategy)))
	m.EpisodesConsolidated.Add(ctx, int64(episodes), metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordAuditEvent increments AuditEventsLogged for the given event type.
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	m.AuditEventsLogged.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
