package cardinal

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the registry's prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	KeysInterned            prometheus.Counter
	Specializations         prometheus.Counter
	Instantiations          *prometheus.CounterVec
	InstantiationFailures   *prometheus.CounterVec
	SyncNotifications       *prometheus.CounterVec
	DeserializationWarnings *prometheus.CounterVec
}

// NewMetrics creates the registry collectors. They still need to be
// registered with Register.
func NewMetrics() *Metrics {
	return &Metrics{
		KeysInterned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cardinal",
				Subsystem: "registry",
				Name:      "keys_interned_total",
				Help:      "Total number of component keys interned",
			},
		),

		Specializations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "cardinal",
				Subsystem: "registry",
				Name:      "specializations_total",
				Help:      "Total number of owner types specialized",
			},
		),

		Instantiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardinal",
				Subsystem: "containers",
				Name:      "instantiated_total",
				Help:      "Total number of containers instantiated",
			},
			[]string{"owner"},
		),

		InstantiationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardinal",
				Subsystem: "containers",
				Name:      "failed_total",
				Help:      "Total number of container instantiations aborted by a factory",
			},
			[]string{"owner"},
		),

		SyncNotifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardinal",
				Subsystem: "components",
				Name:      "sync_notifications_total",
				Help:      "Total number of component sync notifications",
			},
			[]string{"component"},
		),

		DeserializationWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cardinal",
				Subsystem: "components",
				Name:      "deserialization_warnings_total",
				Help:      "Total number of components that could not be deserialized",
			},
			[]string{"component"},
		),
	}
}

// Collectors returns every collector.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.KeysInterned,
		m.Specializations,
		m.Instantiations,
		m.InstantiationFailures,
		m.SyncNotifications,
		m.DeserializationWarnings,
	}
}

// Register registers every collector with reg. Collectors that are already
// registered are skipped.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Metrics) keyInterned() {
	if m != nil {
		m.KeysInterned.Inc()
	}
}

func (m *Metrics) specialized() {
	if m != nil {
		m.Specializations.Inc()
	}
}

func (m *Metrics) instantiated(owner string) {
	if m != nil {
		m.Instantiations.WithLabelValues(owner).Inc()
	}
}

func (m *Metrics) instantiateFailed(owner string) {
	if m != nil {
		m.InstantiationFailures.WithLabelValues(owner).Inc()
	}
}

func (m *Metrics) synced(id string) {
	if m != nil {
		m.SyncNotifications.WithLabelValues(id).Inc()
	}
}

func (m *Metrics) deserializationWarning(id string) {
	if m != nil {
		m.DeserializationWarnings.WithLabelValues(id).Inc()
	}
}
