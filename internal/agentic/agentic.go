// Package agentic implements AgenticSearch: the five-phase retrieval
// pipeline that sits above keyword search, directory scanning, cluster
// reuse, and the ReAct fallback agent.
package agentic

import (
	"context"
	"fmt"

	"sirchmunk/internal/cluster"
	"sirchmunk/internal/grepretriever"
	"sirchmunk/internal/knowledge"
	"sirchmunk/internal/llm"
	"sirchmunk/internal/react"
	"sirchmunk/internal/scanner"
	"sirchmunk/internal/searchctx"
	"sirchmunk/internal/speccache"
	"sirchmunk/internal/tools"
)

// Mode selects between the full five-phase pipeline and the LLM-free
// filename-pattern fast path.
type Mode string

const (
	ModeDeep         Mode = "deep"
	ModeFilenameOnly Mode = "filename_only"
)

const (
	defaultTopKFiles      = 12
	defaultTopKClusters   = 3
	defaultClusterThreshold = 0.84
	defaultMaxTokenBudget = 50_000
	defaultMaxLoops       = 8
	defaultSpecCacheHours = speccache.DefaultStaleHours
)

// Options configures one Search/SearchDeep call.
type Options struct {
	Mode                 Mode
	Paths                []string
	TopKFiles            int
	TopKClusters         int
	ClusterThreshold     float64
	MaxTokenBudget       uint32
	MaxLoops             uint32
	MaxQueriesPerCluster int
	ReturnCluster        bool
	EmbeddingEnabled     bool
}

// Result is what a search call returns to its caller: the synthesized
// answer, whether it came from a reused cluster, and the session's resource
// accounting. Files is populated only by FILENAME_ONLY mode; neither the
// DocQA branch nor the five-phase pipeline sets it.
type Result struct {
	Answer     string
	ClusterID  string
	FromReuse  bool
	ShouldSave bool
	Files      []FileDescriptor
	Cluster    *cluster.Cluster
	Context    *searchctx.Context
}

// FileDescriptor is one file result from the LLM-free retrieval paths.
type FileDescriptor struct {
	Path     string
	Filename string
	Score    float64
}

// Engine bundles every collaborator AgenticSearch orchestrates. The deep
// pipeline uses Provider, Store, Scanner, Retriever and Builder without nil
// checks; Embedder and SpecCache may be nil, which turns off embedding-based
// cluster reuse and the spec-cache hint. FILENAME_ONLY mode uses no field and
// searches Options.Paths.
type Engine struct {
	Provider    llm.Provider
	Embedder    llm.Embedder
	Model       string
	EmbedModel  string
	Store       *cluster.Store
	Scanner     *scanner.Scanner
	Retriever   *grepretriever.Retriever
	SpecCache   *speccache.Cache
	Builder     *knowledge.Builder
	ToolBinary  string
	ToolWorkDir string
}

// Search runs the single-level pipeline: FILENAME_ONLY bypasses the LLM
// entirely; DEEP mode runs one pass of multi-level keyword extraction
// followed by the same merge/build/answer machinery SearchDeep uses.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (Result, error) {
	opts = e.withDefaults(opts)
	if opts.Mode == ModeFilenameOnly {
		return e.searchFilenameOnly(query, opts)
	}
	return e.SearchDeep(ctx, query, opts)
}

// SearchDeep runs the full five-phase pipeline.
func (e *Engine) SearchDeep(ctx context.Context, query string, opts Options) (Result, error) {
	opts = e.withDefaults(opts)
	sctx := searchctx.New(opts.MaxTokenBudget, opts.MaxLoops)
	sctx.AddSearch(query)

	if isDoc, files := e.detectDocIntent(ctx, query, opts); isDoc {
		answer, err := e.answerDocQuery(ctx, query, files, sctx)
		if err == nil {
			return Result{Answer: answer, Context: sctx}, nil
		}
		// DocQA degraded; fall through to the regular pipeline.
	}

	if opts.EmbeddingEnabled && e.Embedder != nil && e.Store != nil {
		if res, hit, err := e.phase0(ctx, query, opts); err == nil && hit {
			res.Context = sctx
			return res, nil
		}
	}

	p1 := e.phase1(ctx, query, opts, sctx)
	p2 := e.phase2(ctx, query, opts, p1, sctx)

	merged := mergeRetrievalPaths(
		[][]string{p2.keywordPaths, p1.clusterPaths, p2.dirScanPaths},
		[]float64{1.0, 0.7, 0.4},
		opts.TopKFiles,
	)

	var kc *cluster.Cluster
	if len(merged) > 0 && !sctx.IsBudgetExceeded() {
		built, usage, err := e.Builder.Build(ctx, knowledge.Request{
			UserInput: query,
			FilePaths: merged,
			IDF:       p1.idf,
			TopKFiles: opts.TopKFiles,
		})
		sctx.AddLLMTokens(searchctx.Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		})
		if err == nil {
			kc = built
		}
	}

	result, finalCluster, err := e.phase4(ctx, query, p1, kc, sctx, opts)
	if err != nil {
		return Result{}, fmt.Errorf("agentic: phase4 answer generation: %w", err)
	}
	result.Context = sctx

	e.phase5(query, finalCluster, opts)
	return result, nil
}

func (e *Engine) withDefaults(opts Options) Options {
	if opts.Mode == "" {
		opts.Mode = ModeDeep
	}
	if opts.TopKFiles <= 0 {
		opts.TopKFiles = defaultTopKFiles
	}
	if opts.TopKClusters <= 0 {
		opts.TopKClusters = defaultTopKClusters
	}
	if opts.ClusterThreshold <= 0 {
		opts.ClusterThreshold = defaultClusterThreshold
	}
	if opts.MaxTokenBudget == 0 {
		opts.MaxTokenBudget = defaultMaxTokenBudget
	}
	if opts.MaxLoops == 0 {
		opts.MaxLoops = defaultMaxLoops
	}
	if opts.MaxQueriesPerCluster <= 0 {
		opts.MaxQueriesPerCluster = cluster.MaxQueriesPerCluster
	}
	return opts
}

// buildFallbackRegistry assembles the tool registry the ReAct fallback agent
// uses in phase 4 — keyword_search, dir_scan and file_read, plus
// knowledge_query when both Embedder and Store are set — so the agent can
// keep digging past what phases 1-3 merged.
func (e *Engine) buildFallbackRegistry(sctx *searchctx.Context, opts Options) tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(&tools.KeywordSearch{
		Retriever: e.Retriever,
		Paths:     opts.Paths,
		Ctx:       sctx,
	})
	reg.Register(&tools.DirScan{
		Scanner: e.Scanner,
		Paths:   opts.Paths,
	})
	reg.Register(&tools.FileRead{Ctx: sctx})
	if e.Embedder != nil && e.Store != nil {
		reg.Register(&tools.KnowledgeQuery{
			Store:    e.Store,
			Embedder: e.Embedder,
			Model:    e.EmbedModel,
		})
	}
	return reg
}

func (e *Engine) newReActEngine(sctx *searchctx.Context, registry tools.Registry) *react.Engine {
	return &react.Engine{
		LLM:    e.Provider,
		Tools:  registry,
		Ctx:    sctx,
		Model:  e.Model,
		System: "You are a local-document search agent. Use the available tools to gather evidence before answering.",
	}
}
