package sleepcycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentmem/engine/pkg/types"
)

func mustCreatePathedMemory(t *testing.T, ctx context.Context, e *Engine, s interface {
	CreateMemory(ctx context.Context, mem *types.Memory) (bool, error)
	CreatePath(ctx context.Context, p *types.Path) error
}, agentID, uri, content string, memType types.MemoryType, priority *int) *types.Memory {
	t.Helper()
	mem := types.NewMemory(agentID, content, memType, priority)
	_, err := s.CreateMemory(ctx, mem)
	require.NoError(t, err)
	require.NoError(t, s.CreatePath(ctx, &types.Path{MemoryID: mem.ID, AgentID: agentID, URI: uri, Domain: "core"}))
	return mem
}

func TestBootReturnsPriorityZeroMemories(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	p0 := 0
	identity := types.NewMemory("agent-1", "Noah is a succubus who journals in Discord", types.TypeIdentity, &p0)
	_, err := s.CreateMemory(ctx, identity)
	require.NoError(t, err)

	knowledge := types.NewMemory("agent-1", "unrelated fact about Go channels", types.TypeKnowledge, nil)
	_, err = s.CreateMemory(ctx, knowledge)
	require.NoError(t, err)

	result, _, err := e.Boot(ctx, "agent-1")
	require.NoError(t, err)

	var ids []string
	for _, m := range result {
		ids = append(ids, m.ID)
	}
	require.Contains(t, ids, identity.ID)
	require.NotContains(t, ids, knowledge.ID)
}

func TestBootHonorsDefaultCoreURIs(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	mustCreatePathedMemory(t, ctx, e, s, "agent-1", "core://agent/persona", "playful and a little chaotic", types.TypeIdentity, nil)

	result, honored, err := e.Boot(ctx, "agent-1")
	require.NoError(t, err)
	require.Contains(t, honored, "core://agent/persona")
	require.Len(t, result, 1)
}

func TestBootFollowsAdditionalURIsFromSystemBoot(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	extra := mustCreatePathedMemory(t, ctx, e, s, "agent-1", "event://onboarding/day-one", "first conversation notes", types.TypeEvent, nil)
	mustCreatePathedMemory(t, ctx, e, s, "agent-1", "system://boot", "event://onboarding/day-one\n", types.TypeKnowledge, nil)

	result, honored, err := e.Boot(ctx, "agent-1")
	require.NoError(t, err)
	require.Contains(t, honored, "event://onboarding/day-one")

	var ids []string
	for _, m := range result {
		ids = append(ids, m.ID)
	}
	require.Contains(t, ids, extra.ID)
}

func TestBootSkipsMissingURIsWithoutError(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	result, honored, err := e.Boot(ctx, "agent-1")
	require.NoError(t, err)
	require.Empty(t, result)
	require.Empty(t, honored)
}

func TestBootAccessStrengthensSurfacedMemories(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	p0 := 0
	identity := types.NewMemory("agent-1", "Noah's core identity", types.TypeIdentity, &p0)
	_, err := s.CreateMemory(ctx, identity)
	require.NoError(t, err)
	initialCount := identity.AccessCount

	_, _, err = e.Boot(ctx, "agent-1")
	require.NoError(t, err)

	got, err := s.GetMemory(ctx, "agent-1", identity.ID)
	require.NoError(t, err)
	require.Greater(t, got.AccessCount, initialCount)
}

func TestBootDedupesMemoryAppearingAsBothIdentityAndCoreURI(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)

	p0 := 0
	identity := mustCreatePathedMemory(t, ctx, e, s, "agent-1", "core://agent/identity", "dual-listed identity", types.TypeIdentity, &p0)

	result, _, err := e.Boot(ctx, "agent-1")
	require.NoError(t, err)

	count := 0
	for _, m := range result {
		if m.ID == identity.ID {
			count++
		}
	}
	require.Equal(t, 1, count)
}
