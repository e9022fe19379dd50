package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/pkg/types"
)

func TestStatsCountsByTypeAndPriority(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p0 := 0
	a := types.NewMemory("agent-1", "identity fact", types.TypeIdentity, &p0)
	b := types.NewMemory("agent-1", "knowledge fact one", types.TypeKnowledge, nil)
	c := types.NewMemory("agent-1", "knowledge fact two", types.TypeKnowledge, nil)
	for _, m := range []*types.Memory{a, b, c} {
		_, err := s.CreateMemory(ctx, m)
		require.NoError(t, err)
	}

	report, err := s.Stats(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.CountsByType[types.TypeIdentity])
	require.Equal(t, 2, report.CountsByType[types.TypeKnowledge])
	require.Equal(t, 1, report.CountsByPriority[0])
}

func TestStatsLowVitalityCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	low := types.NewMemory("agent-1", "nearly forgotten", types.TypeEvent, nil)
	_, err := s.CreateMemory(ctx, low)
	require.NoError(t, err)
	require.NoError(t, s.SetVitality(ctx, "agent-1", low.ID, 0.01))

	healthy := types.NewMemory("agent-1", "vivid memory", types.TypeEvent, nil)
	_, err = s.CreateMemory(ctx, healthy)
	require.NoError(t, err)

	report, err := s.Stats(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.LowVitalityCount)
}

func TestStatsTotalsPathsLinksSnapshots(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "source memory", types.TypeKnowledge, nil)
	b := types.NewMemory("agent-1", "target memory", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, a)
	require.NoError(t, err)
	_, err = s.CreateMemory(ctx, b)
	require.NoError(t, err)

	require.NoError(t, s.CreatePath(ctx, &types.Path{MemoryID: a.ID, AgentID: "agent-1", URI: "knowledge://source", Domain: "knowledge"}))
	require.NoError(t, s.CreateLink(ctx, &types.Link{AgentID: "agent-1", SourceID: a.ID, TargetID: b.ID, Relation: types.RelRelated, Weight: 1.0}))
	require.NoError(t, s.CreateSnapshot(ctx, &types.Snapshot{MemoryID: a.ID, Content: "old", ChangedBy: "test", Action: types.SnapshotUpdate}))

	report, err := s.Stats(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalPaths)
	require.Equal(t, 1, report.TotalLinks)
	require.Equal(t, 1, report.TotalSnapshots)
}

func TestStatsIsScopedToAgent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := types.NewMemory("agent-1", "mine", types.TypeKnowledge, nil)
	b := types.NewMemory("agent-2", "theirs", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, a)
	require.NoError(t, err)
	_, err = s.CreateMemory(ctx, b)
	require.NoError(t, err)

	report, err := s.Stats(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.CountsByType[types.TypeKnowledge])
}
