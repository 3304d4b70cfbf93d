package cascade_test

import (
	"carecore/internal/cascade"
	"carecore/internal/state/statetest"
	"carecore/pkg/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientPlanCoversOwnedGraph(t *testing.T) {
	s := statetest.Seed(statetest.Scenario())
	p := cascade.Planner{Registry: cascade.DefaultRegistry(), Source: s}

	plan, err := p.Plan(domain.EntityRecipient, []string{"r1", "r1"})
	require.NoError(t, err)
	assert.Equal(t, []cascade.Step{
		{Entity: domain.EntitySet, IDs: []string{"s1", "s2"}},
		{Entity: domain.EntityCollection, IDs: []string{"c1"}},
		{Entity: domain.EntityContact, IDs: []string{"ct1"}},
		{Entity: domain.EntityRecipient, IDs: []string{"r1"}},
	}, plan.Steps)
	assert.Equal(t, []string{
		"recipients/r1/set/image/s1.jpg",
		"recipients/r1/set/audio/s1.m4a",
		"recipients/r1/set/image/s2.jpg",
		"recipients/r1/set/audio/s2.m4a",
		"recipients/r1/cover/image/c1.jpg",
		"recipients/r1/avatar/image/avatar.jpg",
	}, plan.Assets)
	assert.Equal(t, 5, plan.Total())
}

func TestCollectionPlanOnlyTouchesItsSets(t *testing.T) {
	s := statetest.Seed(statetest.Scenario())
	p := cascade.Planner{Registry: cascade.DefaultRegistry(), Source: s}

	plan, err := p.Plan(domain.EntityCollection, []string{"c2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s3"}, plan.IDs(domain.EntitySet))
	assert.Equal(t, []string{"c2"}, plan.IDs(domain.EntityCollection))
	assert.Nil(t, plan.IDs(domain.EntityRecipient))
	assert.Nil(t, plan.IDs(domain.EntityContact))
}

func TestPlanFiltersEmptyAssetPaths(t *testing.T) {
	g := statetest.Scenario()
	g.Recipients[0].Avatar = domain.Asset{}
	g.Sets[0].Audio.Path = "   "
	p := cascade.Planner{Registry: cascade.DefaultRegistry(), Source: statetest.Seed(g)}

	plan, err := p.Plan(domain.EntityRecipient, []string{"r1"})
	require.NoError(t, err)
	assert.Len(t, plan.Assets, 4)
	for _, a := range plan.Assets {
		assert.NotEmpty(t, a)
		assert.NotEqual(t, "   ", a)
	}
}

func TestPlanEmptyAndUnknownIDs(t *testing.T) {
	p := cascade.Planner{Registry: cascade.DefaultRegistry(), Source: statetest.Seed(statetest.Scenario())}

	plan, err := p.Plan(domain.EntityRecipient, nil)
	require.NoError(t, err)
	assert.True(t, plan.Empty())

	plan, err = p.Plan(domain.EntityRecipient, []string{"ghost"})
	require.NoError(t, err)
	assert.Equal(t, []cascade.Step{{Entity: domain.EntityRecipient, IDs: []string{"ghost"}}}, plan.Steps)
	assert.Empty(t, plan.Assets)
}

func TestPlanLeafRoot(t *testing.T) {
	p := cascade.Planner{Registry: cascade.DefaultRegistry(), Source: statetest.Seed(statetest.Scenario())}
	plan, err := p.Plan(domain.EntityContact, []string{"ct2"})
	require.NoError(t, err)
	assert.Equal(t, []cascade.Step{{Entity: domain.EntityContact, IDs: []string{"ct2"}}}, plan.Steps)
}
