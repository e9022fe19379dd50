package sleepcycle

import (
	"context"
	"strings"

	"github.com/agentmem/engine/internal/storage"
	"github.com/agentmem/engine/pkg/types"
)

// defaultCoreURIs is the fixed list of identity-bearing URIs boot always
// tries to resolve, beyond whatever additional URIs a caller supplies
// (spec §4.10.5; the spec leaves the concrete list open — this is the
// Open Question decision recorded in DESIGN.md).
var defaultCoreURIs = []string{
	"core://agent/identity",
	"core://agent/persona",
	"core://agent/values",
}

// bootAccessGrowth is the recordAccess growth factor boot applies to every
// memory it surfaces (spec §4.10.5).
const bootAccessGrowth = 1.1

// Boot returns every priority-0 (identity) memory in scope plus every
// memory reachable from the fixed default core URIs and any additional
// URIs listed, one per line, in the content of the memory pathed at
// system://boot. Each surfaced memory is access-strengthened.
func (e *Engine) Boot(ctx context.Context, agentID string) ([]types.Memory, []string, error) {
	var result []types.Memory
	var honored []string
	seen := make(map[string]bool)

	zero := 0
	identities, err := e.store.ListMemories(ctx, storage.ListOptions{
		AgentID: agentID, Priority: &zero, Limit: 1000,
	})
	if err != nil {
		return nil, nil, err
	}
	for _, mem := range identities.Items {
		if !seen[mem.ID] {
			seen[mem.ID] = true
			result = append(result, mem)
		}
	}

	uris := append([]string{}, defaultCoreURIs...)
	if bootPath, err := e.store.GetPathByURI(ctx, agentID, "system://boot"); err == nil {
		if bootMem, err := e.store.GetMemory(ctx, agentID, bootPath.MemoryID); err == nil {
			for _, line := range strings.Split(bootMem.Content, "\n") {
				line = strings.TrimSpace(line)
				if line != "" {
					uris = append(uris, line)
				}
			}
		}
	}

	for _, uri := range uris {
		path, err := e.store.GetPathByURI(ctx, agentID, uri)
		if err != nil {
			continue
		}
		mem, err := e.store.GetMemory(ctx, agentID, path.MemoryID)
		if err != nil {
			continue
		}
		honored = append(honored, uri)
		if !seen[mem.ID] {
			seen[mem.ID] = true
			result = append(result, *mem)
		}
	}

	for i, mem := range result {
		if err := e.store.RecordAccess(ctx, agentID, mem.ID, bootAccessGrowth); err == nil {
			if refreshed, err := e.store.GetMemory(ctx, agentID, mem.ID); err == nil {
				result[i] = *refreshed
			}
		}
	}

	return result, honored, nil
}
