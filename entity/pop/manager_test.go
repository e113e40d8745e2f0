package pop_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/pop"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/input"
)

func newSampleContext(t *testing.T) *testContext {
	t.Helper()
	catalog, err := input.NewCatalog()
	require.NoError(t, err)
	return &testContext{
		rc:      config.NewRuntimeConfig(config.Config{}),
		catalog: catalog,
		market:  input.NewMarket(),
		bus:     bus.NewBus(),
	}
}

func ids(pops []entity.IPop) []int32 {
	return lo.Map(pops, func(p entity.IPop, _ int) int32 { return p.ID() })
}

func TestPopManagerLifecycle(t *testing.T) {
	ctx := newSampleContext(t)
	m := pop.NewManager(ctx)
	m.Init([]input.PopSeed{
		{ID: 1, Cohort: map[string]float64{input.TemplateSpecies: 1}, Holdings: map[int32]float64{input.GoodGrain: 4}},
		{ID: 2, Cohort: map[string]float64{input.TemplateSpecies: 1, input.TemplateCulture: 1}},
	}, input.Templates())

	assert.ElementsMatch(t, []int32{1, 2}, ids(m.Pops()))
	assert.Len(t, m.Get(1).Property().Desires, 2)
	assert.Len(t, m.Get(2).Property().Desires, 4)
	assert.True(t, m.Get(1).Property().IsSifted)
	_, err := m.GetOrError(9)
	assert.Error(t, err)
	assert.Panics(t, func() { m.Get(9) })

	// 日间增删在Prepare之后生效
	_, err = m.Add(input.PopSeed{ID: 3, Cohort: map[string]float64{input.TemplateSpecies: 1}})
	require.NoError(t, err)
	_, err = m.Add(input.PopSeed{ID: 3})
	assert.Error(t, err)
	require.NoError(t, m.Remove(1))
	assert.Error(t, m.Remove(1))
	assert.ElementsMatch(t, []int32{1, 2}, ids(m.Pops()))
	m.Prepare()
	assert.ElementsMatch(t, []int32{2, 3}, ids(m.Pops()))

	require.NoError(t, m.SetCohort(2, map[string]float64{
		input.TemplateSpecies:  1,
		input.TemplateCulture:  1,
		input.TemplateIdeology: 1,
	}))
	assert.Len(t, m.Get(2).Property().Desires, 5)
	assert.Error(t, m.SetCohort(1, nil))
}

func TestPopManagerDuplicateIDPanics(t *testing.T) {
	ctx := newSampleContext(t)
	m := pop.NewManager(ctx)
	assert.Panics(t, func() {
		m.Init([]input.PopSeed{{ID: 1}, {ID: 1}}, input.Templates())
	})
}
