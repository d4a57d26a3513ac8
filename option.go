package strand

import (
	"github.com/viant/x"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/extension"
	"github.com/strandkit/strand/internal/clock"
	"github.com/strandkit/strand/policy"
	"github.com/strandkit/strand/progress"
	"github.com/strandkit/strand/store"
	"github.com/strandkit/strand/store/memory"
	"github.com/strandkit/strand/tracing"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithBridge replaces the default in-memory store bridge.
func WithBridge(bridge store.Bridge) Option {
	return func(s *Service) { s.bridge = bridge }
}

// WithInitialState seeds the default in-memory store. Ignored when a
// custom bridge is supplied.
func WithInitialState(state any) Option {
	return func(s *Service) { s.initialState = state }
}

// WithReducer sets the reducer of the default in-memory store. Ignored
// when a custom bridge is supplied.
func WithReducer(reducer memory.Reducer) Option {
	return func(s *Service) { s.reducer = reducer }
}

// WithOperations replaces the operation registry backing Call effects.
func WithOperations(ops *extension.Operations) Option {
	return func(s *Service) { s.operations = ops }
}

// WithOperation registers one named operation.
func WithOperation(name string, op effect.Op) Option {
	return func(s *Service) {
		s.operationEntries = append(s.operationEntries, operationEntry{name: name, op: op})
	}
}

// WithExtensionTypes registers data types with the operation registry.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = append(s.extensionTypes, types...)
	}
}

// WithClock swaps the timer source; tests use clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithJournalBaseURL enables persistent task lifecycle records under the
// given URL.
func WithJournalBaseURL(baseURL string) Option {
	return func(s *Service) { s.journalBaseURL = baseURL }
}

// WithRunID overrides the generated run identifier.
func WithRunID(runID string) Option {
	return func(s *Service) { s.runID = runID }
}

// WithPolicy attaches an operation policy to every run.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithProgressListener receives a snapshot after every task state change.
func WithProgressListener(listener func(progress.Progress)) Option {
	return func(s *Service) { s.onProgress = listener }
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used. Safe to call multiple times; the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom
// SpanExporter, for example OTLP or Jaeger.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
