package cardinal

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// phase is the lifecycle state shared by every table of a Registry.
type phase int32

const (
	phaseIdle phase = iota
	phaseBootstrap
	phaseFreezing
	phaseFrozen
	phaseFailed
)

// String returns the string representation of the phase.
func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseBootstrap:
		return "bootstrap"
	case phaseFreezing:
		return "freezing"
	case phaseFrozen:
		return "frozen"
	case phaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Registry is the process-wide component registry.
//
// It starts idle, accepts registrations between BeginBootstrap and Freeze, and
// serves resolutions, descriptors and containers afterwards.
//
// Concurrency:
// Registration calls are serialized by a single mutex, so plugins may
// bootstrap concurrently. Once frozen the tables never change again and every
// read path is lock-free; resolutions and descriptors are computed at most
// once per owner type and safe for concurrent reads after publication.
type Registry struct {
	state atomic.Int32

	// mu guards every table below while bootstrapping. Owner types stay
	// guarded in every phase since they may be declared late.
	mu sync.RWMutex

	keys    map[string]*ComponentKey
	keyList []*ComponentKey

	owners    map[string]*OwnerType
	ownerList []*OwnerType

	static  map[*OwnerType]*staticTable
	dynamic []*registration
	direct  ordinalSource

	callbacks  map[callbackKey]callbackEntry
	strategies map[strategyKey]CopyStrategy

	// resolutions and descriptors cache per owner type results.
	resolutions sync.Map // map[*OwnerType]*resolveEntry
	descriptors sync.Map // map[*OwnerType]*specializeEntry

	// freezeMu is held for the whole of Freeze so concurrent callers observe
	// its final outcome.
	freezeMu  sync.Mutex
	freezeErr error

	config   Config
	log      *slog.Logger
	metrics  *Metrics
	warnings *warningLimiter
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by the registry and its containers.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics attaches prometheus collectors to the registry.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithConfig sets the registry configuration.
func WithConfig(cfg Config) Option {
	return func(r *Registry) {
		r.config = cfg
	}
}

// NewRegistry creates an idle registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		keys:       make(map[string]*ComponentKey),
		owners:     make(map[string]*OwnerType),
		static:     make(map[*OwnerType]*staticTable),
		callbacks:  make(map[callbackKey]callbackEntry),
		strategies: make(map[strategyKey]CopyStrategy),
		config:     DefaultConfig(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.warnings = newWarningLimiter(r.config.MaxDeserializationWarnings)
	return r
}

func (r *Registry) phase() phase {
	return phase(r.state.Load())
}

// serving reports whether the registration tables are closed for writes.
func (r *Registry) serving() bool {
	return r.phase() >= phaseFreezing
}

// Frozen reports whether the registry completed bootstrap successfully.
func (r *Registry) Frozen() bool {
	return r.phase() == phaseFrozen
}

// Config returns the registry configuration.
func (r *Registry) Config() Config {
	return r.config
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger {
	return r.log
}

// Metrics returns the registry metrics, which may be nil.
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// BeginBootstrap opens the registry for registrations.
// Calling it again while bootstrapping is a no-op.
func (r *Registry) BeginBootstrap() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase() {
	case phaseIdle:
		r.state.Store(int32(phaseBootstrap))
		r.log.Debug("cardinal: bootstrap started")
		return nil
	case phaseBootstrap:
		return nil
	default:
		return fmt.Errorf("begin bootstrap: %w", ErrRegistryFrozen)
	}
}

// checkRegistering returns the error for a registration attempted in the
// current phase. Callers must hold mu.
func (r *Registry) checkRegistering() error {
	switch p := r.phase(); {
	case p == phaseIdle:
		return ErrNotInitialized
	case p >= phaseFreezing:
		return ErrRegistryFrozen
	}
	return nil
}

// checkServing returns the error for a query attempted before Freeze.
func (r *Registry) checkServing() error {
	if !r.serving() {
		return ErrNotInitialized
	}
	return nil
}

// checkInstantiating returns the error for building containers in the
// current phase.
func (r *Registry) checkInstantiating() error {
	switch r.phase() {
	case phaseFrozen:
		return nil
	case phaseFailed:
		return ErrBootstrapFailed
	default:
		return ErrNotInitialized
	}
}

// Freeze ends the bootstrap phase.
//
// Registrations are refused from this point on. Every declared owner type is
// then resolved and specialized; if any of them fails, the registry moves to
// a failed state, refuses to instantiate containers and Freeze returns the
// joined errors. Freeze is one-way and idempotent.
func (r *Registry) Freeze() error {
	r.freezeMu.Lock()
	defer r.freezeMu.Unlock()

	r.mu.Lock()
	switch r.phase() {
	case phaseIdle:
		r.mu.Unlock()
		return fmt.Errorf("freeze: %w", ErrNotInitialized)
	case phaseFrozen:
		r.mu.Unlock()
		return nil
	case phaseFailed:
		r.mu.Unlock()
		return r.freezeErr
	}
	r.state.Store(int32(phaseFreezing))
	owners := slices.Clone(r.ownerList)
	r.mu.Unlock()

	var errs []error
	for _, t := range owners {
		if _, err := r.Specialize(t); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		r.freezeErr = fmt.Errorf("%w: %w", ErrBootstrapFailed, errors.Join(errs...))
		r.state.Store(int32(phaseFailed))
		r.log.Error("cardinal: bootstrap failed", "error", r.freezeErr)
		return r.freezeErr
	}

	r.state.Store(int32(phaseFrozen))
	r.log.Info("cardinal: registry frozen",
		"keys", len(r.keyList),
		"owner_types", len(owners),
		"dynamic_registrations", len(r.dynamic))
	return nil
}

// Err returns the error that failed bootstrap, if any.
func (r *Registry) Err() error {
	if r.phase() == phaseFailed {
		return r.freezeErr
	}
	return nil
}
