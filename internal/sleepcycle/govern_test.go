package sleepcycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/pkg/types"
)

func TestGovernDeletesEmptyContentMemories(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	mem := types.NewMemory("agent-1", "placeholder", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)
	require.NoError(t, s.UpdateContent(ctx, "agent-1", mem.ID, "   "))

	report, err := e.Govern(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.EmptyMemories)

	_, err = s.GetMemory(ctx, "agent-1", mem.ID)
	require.Error(t, err)
}

func TestGovernReportsNoOrphansInCleanStore(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	survivor := types.NewMemory("agent-1", "survives governance", types.TypeEvent, nil)
	_, err := s.CreateMemory(ctx, survivor)
	require.NoError(t, err)

	report, err := e.Govern(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 0, report.OrphanPaths)
	require.Equal(t, 0, report.OrphanLinks)
	require.Equal(t, 0, report.EmptyMemories)

	_, err = s.GetMemory(ctx, "agent-1", survivor.ID)
	require.NoError(t, err)
}

func TestGovernIsScopedToAgent(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	memA := types.NewMemory("agent-1", "agent one content", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, memA)
	require.NoError(t, err)
	require.NoError(t, s.UpdateContent(ctx, "agent-1", memA.ID, ""))

	memB := types.NewMemory("agent-2", "agent two content stays intact", types.TypeKnowledge, nil)
	_, err = s.CreateMemory(ctx, memB)
	require.NoError(t, err)

	report, err := e.Govern(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1, report.EmptyMemories)

	got, err := s.GetMemory(ctx, "agent-2", memB.ID)
	require.NoError(t, err)
	require.Equal(t, "agent two content stays intact", got.Content)
}
