package strand

import (
	"github.com/viant/x"

	"github.com/strandkit/strand/effect"
	"github.com/strandkit/strand/extension"
	"github.com/strandkit/strand/internal/clock"
	"github.com/strandkit/strand/internal/idgen"
	"github.com/strandkit/strand/policy"
	"github.com/strandkit/strand/progress"
	"github.com/strandkit/strand/runtime/scheduler"
	"github.com/strandkit/strand/service/journal"
	"github.com/strandkit/strand/store"
	"github.com/strandkit/strand/store/memory"
	"github.com/strandkit/strand/tracing"
)

func tracingInit(config TracingConfig) error {
	return tracing.Init(config.ServiceName, config.ServiceVersion, config.OutputFile)
}

type operationEntry struct {
	name string
	op   effect.Op
}

// Service assembles the engine: store bridge, operation registry, journal
// and the effect scheduler behind a Runtime handle.
type Service struct {
	config           *Config
	bridge           store.Bridge
	initialState     any
	reducer          memory.Reducer
	operations       *extension.Operations
	operationEntries []operationEntry
	extensionTypes   []*x.Type
	clock            clock.Clock
	journalBaseURL   string
	runID            string
	policy           *policy.Policy
	onProgress       func(progress.Progress)
	runtime          *Runtime
}

// New assembles a Service with the supplied options.
func New(options ...Option) *Service {
	s := &Service{runtime: &Runtime{}}
	s.init(options)
	return s
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	tracker := progress.NewTracker(s.runID, s.onProgress)
	s.runtime.core = scheduler.New(
		scheduler.WithBridge(s.bridge),
		scheduler.WithClock(s.clock),
		scheduler.WithOperations(s.operations),
		scheduler.WithJournal(journal.New(s.journalBaseURL, s.runID)),
		scheduler.WithRunID(s.runID),
		scheduler.WithTracker(tracker),
	)
	s.runtime.bridge = s.bridge
	s.runtime.config = s.config
	s.runtime.policy = s.policy
	s.runtime.tracker = tracker
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.runID == "" {
		s.runID = s.config.RunID
	}
	if s.runID == "" {
		s.runID = idgen.New()
	}
	if s.journalBaseURL == "" {
		s.journalBaseURL = s.config.Journal.BaseURL
	}
	if s.policy == nil {
		s.policy = s.config.Policy
	}
	if s.bridge == nil {
		var storeOptions []memory.Option
		if s.initialState != nil {
			storeOptions = append(storeOptions, memory.WithState(s.initialState))
		}
		if s.reducer != nil {
			storeOptions = append(storeOptions, memory.WithReducer(s.reducer))
		}
		s.bridge = memory.New(storeOptions...)
	}
	if s.operations == nil {
		s.operations = extension.New()
	}
	for _, entry := range s.operationEntries {
		_ = s.operations.Register(entry.name, entry.op)
	}
	for _, dataType := range s.extensionTypes {
		s.operations.RegisterType(dataType)
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
	if s.config.Tracing.Enabled {
		_ = tracingInit(s.config.Tracing)
	}
}

// Runtime returns the runtime handle used to start runs and schedule
// processes.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Operations returns the operation registry backing Call effects.
func (s *Service) Operations() *extension.Operations {
	return s.operations
}

// RegisterOperation adds a named operation after construction.
func (s *Service) RegisterOperation(name string, op effect.Op) error {
	return s.operations.Register(name, op)
}

// RegisterExtensionType registers a data type with the operation registry.
func (s *Service) RegisterExtensionType(dataType *x.Type) {
	s.operations.RegisterType(dataType)
}
