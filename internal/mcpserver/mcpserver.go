// Package mcpserver exposes a RagDag as an MCP tool server, one tool per
// library operation, using github.com/modelcontextprotocol/go-sdk. Tool
// shapes mirror internal/httpapi's request/response DTOs, but results are
// rendered as human-readable text (numbered search hits, markdown-style
// sources, arrow-list neighbors, an indented provenance tree) rather than
// raw JSON, since that's what an LLM client reads back.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kxddry/ragdag/internal/ask"
	"github.com/kxddry/ragdag/internal/graph"
	"github.com/kxddry/ragdag/internal/maintenance"
	"github.com/kxddry/ragdag/internal/search"
	"github.com/kxddry/ragdag/pkg/ragdag"
)

// New builds an MCP server named "ragdag" with one tool registered per
// operation r supports.
func New(r *ragdag.RagDag) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "ragdag", Version: "1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{Name: "add", Description: "Ingest a file or directory into the store"}, addHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "search", Description: "Search chunks by keyword, vector, or hybrid mode"}, searchHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "ask", Description: "Retrieve context and optionally answer a question with an LLM"}, askHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "graph", Description: "Summarize domain/document/chunk/edge counts"}, graphHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "neighbors", Description: "List a node's outgoing and incoming edges"}, neighborsHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "trace", Description: "Walk a chunk's provenance chain back to its origin"}, traceHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "relate", Description: "Compute related_to edges above a cosine threshold"}, relateHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "link", Description: "Append a trusted edge between two nodes"}, linkHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "verify", Description: "Report the store's invariant violations"}, verifyHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "repair", Description: "Drop orphaned edges"}, repairHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "gc", Description: "Drop orphaned edges and stale processed records"}, gcHandler(r))
	mcp.AddTool(server, &mcp.Tool{Name: "reindex", Description: "Rebuild a domain's (or every domain's) embeddings"}, reindexHandler(r))

	return server
}

// jsonResult is for the one tool (add) whose original shape is a raw JSON
// summary rather than prose.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil, nil
}

// textResult wraps preformatted prose, unquoted.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
}

func errResult(err error) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil, nil
}

type addArgs struct {
	Path   string `json:"path" jsonschema:"path to a file or directory to ingest"`
	Domain string `json:"domain,omitempty" jsonschema:"domain name, or \"auto\" to apply domain rules"`
	Embed  bool   `json:"embed,omitempty" jsonschema:"embed newly ingested chunks immediately"`
}

func addHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[addArgs, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args addArgs) (*mcp.CallToolResult, any, error) {
		res, err := r.Add(ctx, args.Path, args.Domain, args.Embed)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(res)
	}
}

type searchArgs struct {
	Query  string `json:"query" jsonschema:"search query text"`
	Mode   string `json:"mode,omitempty" jsonschema:"keyword, vector, or hybrid"`
	Domain string `json:"domain,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

func searchHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[searchArgs, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
		results, err := r.Search(ctx, args.Mode, args.Query, args.Domain, args.TopK)
		if err != nil {
			return errResult(err)
		}
		return textResult(formatSearchResults(results, r.StoreRoot()))
	}
}

func formatSearchResults(results []search.Result, storeRoot string) string {
	if len(results) == 0 {
		return "No results found."
	}
	parts := make([]string, 0, len(results))
	for i, res := range results {
		content, _ := search.LoadChunkContent(storeRoot, res.ChunkRelPath)
		preview := strings.ReplaceAll(content, "\n", " ")
		if len(preview) > 200 {
			preview = preview[:200]
		}
		parts = append(parts, fmt.Sprintf("%d. **%s** (score: %.4f)\n   %s", i+1, res.ChunkRelPath, res.Score, preview))
	}
	return strings.Join(parts, "\n\n")
}

type askArgs struct {
	Question string `json:"question"`
	Domain   string `json:"domain,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	UseLLM   bool   `json:"use_llm,omitempty"`
}

func askHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[askArgs, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args askArgs) (*mcp.CallToolResult, any, error) {
		res, err := r.Ask(ctx, args.Question, args.Domain, args.TopK, args.UseLLM)
		if err != nil {
			return errResult(err)
		}
		return textResult(formatAsk(res))
	}
}

func formatAsk(res ask.Result) string {
	answer := res.Answer
	if answer == "" {
		answer = res.Context
	}
	if len(res.Sources) == 0 {
		return answer
	}
	sources := make([]string, len(res.Sources))
	for i, s := range res.Sources {
		sources[i] = "- " + s
	}
	return fmt.Sprintf("%s\n\n**Sources:**\n%s", answer, strings.Join(sources, "\n"))
}

type graphArgs struct {
	Domain string `json:"domain,omitempty"`
}

func graphHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[graphArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, args graphArgs) (*mcp.CallToolResult, any, error) {
		sum, err := r.Graph(args.Domain)
		if err != nil {
			return errResult(err)
		}
		return textResult(formatGraph(sum))
	}
}

func formatGraph(sum graph.Summary) string {
	edgeTypes, _ := json.MarshalIndent(sum.EdgesByType, "", "  ")
	return fmt.Sprintf("Domains: %d\nDocuments: %d\nChunks: %d\nEdges: %d\nEdge types: %s",
		sum.Domains, sum.Documents, sum.Chunks, sum.Edges, edgeTypes)
}

type nodeArgs struct {
	Node string `json:"node" jsonschema:"store-root-relative chunk path or synthetic node id"`
}

func neighborsHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[nodeArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, args nodeArgs) (*mcp.CallToolResult, any, error) {
		edges, err := r.Neighbors(args.Node)
		if err != nil {
			return errResult(err)
		}
		return textResult(formatNeighbors(args.Node, edges))
	}
}

func formatNeighbors(node string, edges []graph.NeighborEdge) string {
	if len(edges) == 0 {
		return "No neighbors found for: " + node
	}
	lines := make([]string, len(edges))
	for i, e := range edges {
		lines[i] = fmt.Sprintf("  %s %s [%s]", e.Direction, e.Other, e.Type)
	}
	return fmt.Sprintf("Neighbors of %s:\n%s", node, strings.Join(lines, "\n"))
}

func traceHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[nodeArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, args nodeArgs) (*mcp.CallToolResult, any, error) {
		hops, err := r.Trace(args.Node)
		if err != nil {
			return errResult(err)
		}
		return textResult(formatTrace(args.Node, hops))
	}
}

func formatTrace(node string, hops []graph.TraceHop) string {
	if len(hops) == 0 {
		return "No provenance found for: " + node
	}
	lines := make([]string, len(hops))
	for i, h := range hops {
		indent := strings.Repeat("  ", i)
		if h.Parent != "" {
			lines[i] = fmt.Sprintf("%s├── %s [%s]", indent, h.Node, h.EdgeType)
		} else {
			lines[i] = fmt.Sprintf("%s└── %s (origin)", indent, h.Node)
		}
	}
	return fmt.Sprintf("Provenance of %s:\n%s", node, strings.Join(lines, "\n"))
}

type relateArgs struct {
	Domain    string  `json:"domain,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

func relateHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[relateArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, args relateArgs) (*mcp.CallToolResult, any, error) {
		threshold := args.Threshold
		if threshold == 0 {
			threshold = 0.8
		}
		n, err := r.Relate(args.Domain, threshold)
		if err != nil {
			return errResult(err)
		}
		return textResult(fmt.Sprintf("Added %d related_to edges.", n))
	}
}

type linkArgs struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	EdgeType string `json:"edge_type,omitempty"`
}

func linkHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[linkArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, args linkArgs) (*mcp.CallToolResult, any, error) {
		edgeType := args.EdgeType
		if edgeType == "" {
			edgeType = "references"
		}
		if err := r.Link(args.Source, args.Target, edgeType); err != nil {
			return errResult(err)
		}
		return textResult(fmt.Sprintf("Linked %s -> %s [%s].", args.Source, args.Target, edgeType))
	}
}

type emptyArgs struct{}

func verifyHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[emptyArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
		rpt, err := r.Verify()
		if err != nil {
			return errResult(err)
		}
		return textResult(formatVerify(rpt))
	}
}

func formatVerify(rpt maintenance.Report) string {
	if len(rpt.OrphanEdges) == 0 && len(rpt.StaleProcessed) == 0 && len(rpt.EmbeddingMismatches) == 0 {
		return "No invariant violations found."
	}
	lines := []string{
		fmt.Sprintf("Orphaned edges: %d", len(rpt.OrphanEdges)),
		fmt.Sprintf("Stale processed records: %d", len(rpt.StaleProcessed)),
	}
	if len(rpt.EmbeddingMismatches) > 0 {
		lines = append(lines, "Embedding mismatches: "+strings.Join(rpt.EmbeddingMismatches, ", "))
	}
	return strings.Join(lines, "\n")
}

func repairHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[emptyArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
		n, err := r.Repair()
		if err != nil {
			return errResult(err)
		}
		return textResult(fmt.Sprintf("Removed %d orphaned edges.", n))
	}
}

func gcHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[emptyArgs, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ emptyArgs) (*mcp.CallToolResult, any, error) {
		rpt, err := r.GC()
		if err != nil {
			return errResult(err)
		}
		return textResult(fmt.Sprintf("Removed %d orphaned edges and %d stale processed records.",
			rpt.OrphanEdgesRemoved, rpt.StaleProcessedRemoved))
	}
}

type reindexArgs struct {
	Domain string `json:"domain,omitempty"`
}

func reindexHandler(r *ragdag.RagDag) mcp.ToolHandlerFor[reindexArgs, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args reindexArgs) (*mcp.CallToolResult, any, error) {
		if err := r.Reindex(ctx, args.Domain); err != nil {
			return errResult(err)
		}
		domain := args.Domain
		if domain == "" {
			domain = "all domains"
		}
		return textResult(fmt.Sprintf("Reindexed %s.", domain))
	}
}
