package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/maildelivery/pkg/config"
	"github.com/picogrid/maildelivery/pkg/driver"
)

type stubSimulation struct{ name string }

func (s *stubSimulation) Name() string        { return s.name }
func (s *stubSimulation) Description() string { return "stub" }
func (s *stubSimulation) Configure(*config.SimulationConfig, map[string]interface{}) error {
	return nil
}
func (s *stubSimulation) Scenario() string        { return "" }
func (s *stubSimulation) Driver() *driver.Driver { return nil }
func (s *stubSimulation) Run(context.Context, ...driver.Observer) (driver.Result, error) {
	return driver.Result{}, nil
}
func (s *stubSimulation) Stop() error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b", func() Simulation { return &stubSimulation{name: "b"} }))
	require.NoError(t, r.Register("a", func() Simulation { return &stubSimulation{name: "a"} }))
	assert.Error(t, r.Register("a", func() Simulation { return &stubSimulation{} }))

	assert.Equal(t, []string{"a", "b"}, r.List())

	sim, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", sim.Name())

	other, err := r.Get("b")
	require.NoError(t, err)
	assert.NotSame(t, sim, other)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestDescriptorValidate(t *testing.T) {
	d := Descriptor{Name: "x", Parameters: []Parameter{
		{Name: "scenario", Type: TypeScenario},
		{Name: "dt", Type: TypeFloat},
	}}
	require.NoError(t, d.Validate())

	p, ok := d.Parameter("dt")
	assert.True(t, ok)
	assert.Equal(t, TypeFloat, p.Type)

	d.Parameters = append(d.Parameters, Parameter{Name: "dt", Type: TypeFloat})
	assert.Error(t, d.Validate())

	d = Descriptor{Name: "x", Parameters: []Parameter{{Name: "d", Type: "duration"}}}
	assert.Error(t, d.Validate())

	assert.Error(t, (&Descriptor{}).Validate())
}
