package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/internal/storage/sqlite"
	"github.com/agentmem/engine/pkg/types"
)

func newTestGuard(t *testing.T) (*Guard, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestClassifyExactDuplicateSkips(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGuard(t)

	mem := types.NewMemory("agent-1", "the rocket launched at dawn", types.TypeEvent, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-1", Content: "the rocket launched at dawn", Type: types.TypeEvent,
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionSkip, decision.Action)
	require.Equal(t, mem.ID, decision.ExistingID)
}

func TestClassifyURIConflictUpdates(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGuard(t)

	mem := types.NewMemory("agent-1", "first version of the note", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)
	require.NoError(t, s.CreatePath(ctx, &types.Path{
		MemoryID: mem.ID, AgentID: "agent-1", URI: "knowledge://note", Domain: "knowledge",
	}))

	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-1", Content: "a brand new unrelated body of text", Type: types.TypeKnowledge,
		URI: "knowledge://note",
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionUpdate, decision.Action)
	require.Equal(t, mem.ID, decision.ExistingID)
}

func TestClassifyQualityGateRejectsTooShort(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	p2 := 2
	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-1", Content: "hi", Type: types.TypeKnowledge, Priority: &p2,
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionSkip, decision.Action)
	require.Contains(t, decision.FailedCriteria, "specificity")
}

func TestClassifyQualityGateRejectsAllCapsMonolith(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-1",
		Content: "THISISANALLCAPSRUNWITHNOSPACESORPUNCT",
		Type:    types.TypeKnowledge,
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionSkip, decision.Action)
	require.Contains(t, decision.FailedCriteria, "coherence")
}

func TestClassifyAddsWellFormedContent(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-1",
		Content: "Learned that the Go scheduler uses work-stealing across Ps.",
		Type:    types.TypeKnowledge,
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionAdd, decision.Action)
}

func TestClassifyHighlySimilarSameTypeContentMergesOrAdds(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGuard(t)

	mem := types.NewMemory("agent-1", "The quarterly roadmap review covers backend infrastructure migration timelines.", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-1",
		Content: "The quarterly roadmap review covers backend infrastructure migration timelines and costs.",
		Type:    types.TypeKnowledge,
	})
	require.NoError(t, err)
	require.Contains(t, []types.GuardAction{types.ActionMerge, types.ActionAdd}, decision.Action)
}

func TestClassifyDifferentAgentDoesNotDedupe(t *testing.T) {
	ctx := context.Background()
	g, s := newTestGuard(t)

	mem := types.NewMemory("agent-1", "isolated tenant content here", types.TypeKnowledge, nil)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)

	decision, err := g.Classify(ctx, types.WriteRequest{
		AgentID: "agent-2", Content: "isolated tenant content here", Type: types.TypeKnowledge,
	})
	require.NoError(t, err)
	require.Equal(t, types.ActionAdd, decision.Action)
}
