package toolsurface

import "github.com/mark3labs/mcp-go/mcp"

func rememberTool() mcp.Tool {
	return mcp.NewTool("remember",
		mcp.WithDescription("Admit a new piece of content through the write guard: dedup, merge, or store it."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The text to remember")),
		mcp.WithString("type", mcp.Required(), mcp.Enum("identity", "emotion", "knowledge", "event"), mcp.Description("Memory type, determines default priority and decay stability")),
		mcp.WithString("uri", mcp.Description("Optional URI to anchor this memory at (scheme://path)")),
		mcp.WithNumber("emotion_val", mcp.Description("Optional emotional valence, -1.0 to 1.0")),
		mcp.WithString("source", mcp.Description("Optional provenance tag")),
	)
}

func recallTool() mcp.Tool {
	return mcp.NewTool("recall",
		mcp.WithDescription("Hybrid BM25+semantic search, reranked by query intent. Strengthens every hit it returns."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language query")),
		mcp.WithNumber("limit", mcp.Description("Max hits to return (default 10)")),
	)
}

func recallPathTool() mcp.Tool {
	return mcp.NewTool("recall_path",
		mcp.WithDescription("Resolve a memory by its exact URI, or list every memory under a URI prefix."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Exact URI or hierarchical prefix")),
		mcp.WithNumber("traverse_hops", mcp.Description("When the URI resolves exactly, also expand this many link hops (default 1)")),
	)
}

func bootTool() mcp.Tool {
	return mcp.NewTool("boot",
		mcp.WithDescription("Load identity memories and the engine's default core URIs for session startup."),
	)
}

func forgetTool() mcp.Tool {
	return mcp.NewTool("forget",
		mcp.WithDescription("Soft-forget (vitality decay) or hard-delete (with snapshot) a memory."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memory id")),
		mcp.WithBoolean("hard", mcp.Description("If true, permanently delete with a snapshot; otherwise vitality *= 0.1")),
	)
}

func linkTool() mcp.Tool {
	return mcp.NewTool("link",
		mcp.WithDescription("Create, list, or traverse directed relations between memories."),
		mcp.WithString("action", mcp.Required(), mcp.Enum("create", "query", "traverse"), mcp.Description("Which link operation to run")),
		mcp.WithString("source_id", mcp.Description("create: the edge's source memory id")),
		mcp.WithString("target_id", mcp.Description("create: the edge's target memory id")),
		mcp.WithString("relation", mcp.Enum("related", "caused", "reminds", "evolved", "contradicts"), mcp.Description("create: the edge's relation type")),
		mcp.WithNumber("weight", mcp.Description("create: edge weight (default 1.0)")),
		mcp.WithString("memory_id", mcp.Description("query/traverse: the memory to inspect")),
		mcp.WithNumber("max_hops", mcp.Description("traverse: bound on BFS depth (default 1)")),
	)
}

func snapshotTool() mcp.Tool {
	return mcp.NewTool("snapshot",
		mcp.WithDescription("List a memory's content history, or roll it back to a prior snapshot."),
		mcp.WithString("action", mcp.Required(), mcp.Enum("list", "rollback"), mcp.Description("Which snapshot operation to run")),
		mcp.WithString("memory_id", mcp.Description("list: the memory whose history to list")),
		mcp.WithString("snapshot_id", mcp.Description("rollback: the snapshot to restore")),
	)
}

func reflectTool() mcp.Tool {
	return mcp.NewTool("reflect",
		mcp.WithDescription("Run one or all sleep-cycle maintenance phases on demand."),
		mcp.WithString("phase", mcp.Required(), mcp.Enum("decay", "tidy", "govern", "all"), mcp.Description("Which maintenance phase to run")),
	)
}

func statusTool() mcp.Tool {
	return mcp.NewTool("status",
		mcp.WithDescription("Report counts by type/priority, path/link/snapshot totals, and low-vitality count."),
	)
}
