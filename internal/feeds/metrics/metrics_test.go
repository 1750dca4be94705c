package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterRegistersEveryCollectorOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()

	require.NotPanics(t, func() { m.MustRegister(reg) })

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
