package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tcmaker/core/internal/snapshot"
)

func TestObserveSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.Observe(snapshot.Counts{Series: 3, Episodes: 40, Cards: 35, LoadedUploads: 30})

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Series))
	assert.Equal(t, float64(40), testutil.ToFloat64(m.Episodes))
	assert.Equal(t, float64(35), testutil.ToFloat64(m.Cards))
	assert.Equal(t, float64(30), testutil.ToFloat64(m.LoadedUploads))
}

func TestSetConnectorActive(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRegistry(reg)

	m.SetConnectorActive("plex", 1, true)
	m.SetConnectorActive("emby", 2, false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConnectorActive.WithLabelValues("plex", "1")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ConnectorActive.WithLabelValues("emby", "2")))
}

func TestNewRegistryPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRegistry(reg)
	assert.Panics(t, func() { NewRegistry(reg) })
}
