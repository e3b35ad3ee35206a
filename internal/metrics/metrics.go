// Package metrics exposes core's Prometheus gauges: the entity-population
// Snapshot (spec §4.10) and per-connector activation state, grounded on tomtom215-cartographus and snapetech-plexTuner's use
// of prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tcmaker/core/internal/snapshot"
)

// Registry bundles the gauges a Snapshot row updates, plus connector
// activation state. Construct once per process and register with a
// prometheus.Registerer.
type Registry struct {
	Series         prometheus.Gauge
	Episodes       prometheus.Gauge
	Cards          prometheus.Gauge
	Fonts          prometheus.Gauge
	Templates      prometheus.Gauge
	LoadedUploads  prometheus.Gauge
	Users          prometheus.Gauge
	Syncs          prometheus.Gauge
	Blueprints     prometheus.Gauge
	TotalCardBytes prometheus.Gauge
	ConnectorActive *prometheus.GaugeVec
}

// NewRegistry constructs and registers every gauge against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		Series:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "series_total", Help: "Number of tracked series."}),
		Episodes:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "episodes_total", Help: "Number of tracked episodes."}),
		Cards:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "cards_total", Help: "Number of built card artifacts."}),
		Fonts:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "fonts_total", Help: "Number of configured fonts."}),
		Templates:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "templates_total", Help: "Number of configured templates."}),
		LoadedUploads:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "loaded_uploads_total", Help: "Number of cards uploaded to a media server."}),
		Users:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "users_total", Help: "Number of configured users."}),
		Syncs:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "syncs_total", Help: "Number of recorded sync job runs."}),
		Blueprints:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "blueprints_total", Help: "Number of imported blueprints."}),
		TotalCardBytes:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcm", Name: "card_bytes_total", Help: "Total on-disk size of every built card."}),
		ConnectorActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "tcm", Name: "connector_active", Help: "1 if the connector's last activation probe succeeded."}, []string{"kind", "interface_id"}),
	}

	reg.MustRegister(
		m.Series, m.Episodes, m.Cards, m.Fonts, m.Templates,
		m.LoadedUploads, m.Users, m.Syncs, m.Blueprints, m.TotalCardBytes,
		m.ConnectorActive,
	)
	return m
}

// Observe mirrors a freshly taken Snapshot row into the gauges.
func (m *Registry) Observe(c snapshot.Counts) {
	m.Series.Set(float64(c.Series))
	m.Episodes.Set(float64(c.Episodes))
	m.Cards.Set(float64(c.Cards))
	m.Fonts.Set(float64(c.Fonts))
	m.Templates.Set(float64(c.Templates))
	m.LoadedUploads.Set(float64(c.LoadedUploads))
	m.Users.Set(float64(c.Users))
	m.Syncs.Set(float64(c.Syncs))
	m.Blueprints.Set(float64(c.Blueprints))
	m.TotalCardBytes.Set(float64(c.TotalCardBytes))
}

// SetConnectorActive mirrors one connector's activation state.
func (m *Registry) SetConnectorActive(kind string, interfaceID int, active bool) {
	value := 0.0
	if active {
		value = 1.0
	}
	m.ConnectorActive.WithLabelValues(kind, itoa(interfaceID)).Set(value)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
