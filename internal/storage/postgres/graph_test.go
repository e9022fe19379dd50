package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/pkg/types"
)

func TestTraverseFollowsLinksBothDirectionsBoundedByHops(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "root event", types.TypeEvent, nil)
	b := types.NewMemory("agent-1", "caused event", types.TypeEvent, nil)
	c := types.NewMemory("agent-1", "two hops away", types.TypeEvent, nil)
	for _, m := range []*types.Memory{a, b, c} {
		_, err := s.CreateMemory(ctx, m)
		require.NoError(t, err)
	}

	require.NoError(t, s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: a.ID, TargetID: b.ID, Relation: types.RelCaused}))
	require.NoError(t, s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: c.ID, TargetID: b.ID, Relation: types.RelRelated}))

	oneHop, err := s.Traverse(ctx, "agent-1", a.ID, 1)
	require.NoError(t, err)
	require.Len(t, oneHop, 1)
	require.Equal(t, b.ID, oneHop[0].ID)
	require.Equal(t, 1, oneHop[0].Hop)

	twoHops, err := s.Traverse(ctx, "agent-1", a.ID, 2)
	require.NoError(t, err)
	require.Len(t, twoHops, 2)

	var foundC bool
	for _, r := range twoHops {
		if r.ID == c.ID {
			foundC = true
			require.Equal(t, 2, r.Hop)
		}
	}
	require.True(t, foundC)
}

func TestTraverseVisitsEachNodeOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "hub", types.TypeEvent, nil)
	b := types.NewMemory("agent-1", "leaf one", types.TypeEvent, nil)
	c := types.NewMemory("agent-1", "leaf two", types.TypeEvent, nil)
	for _, m := range []*types.Memory{a, b, c} {
		_, err := s.CreateMemory(ctx, m)
		require.NoError(t, err)
	}
	require.NoError(t, s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: a.ID, TargetID: b.ID, Relation: types.RelRelated}))
	require.NoError(t, s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: a.ID, TargetID: c.ID, Relation: types.RelRelated}))
	require.NoError(t, s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: b.ID, TargetID: c.ID, Relation: types.RelRelated}))

	result, err := s.Traverse(ctx, "agent-1", a.ID, 3)
	require.NoError(t, err)
	require.Len(t, result, 2)
}

func TestCreateLinkRejectsCrossAgent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "mine", types.TypeEvent, nil)
	b := types.NewMemory("agent-2", "theirs", types.TypeEvent, nil)
	_, err := s.CreateMemory(ctx, a)
	require.NoError(t, err)
	_, err = s.CreateMemory(ctx, b)
	require.NoError(t, err)

	err = s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: a.ID, TargetID: b.ID, Relation: types.RelRelated})
	require.Error(t, err)
}
