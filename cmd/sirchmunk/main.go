// Command sirchmunk runs one AgenticSearch query against a set of local
// search paths from the command line, printing the synthesized answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"sirchmunk/internal/agentic"
	"sirchmunk/internal/cluster"
	"sirchmunk/internal/config"
	"sirchmunk/internal/grepretriever"
	"sirchmunk/internal/knowledge"
	"sirchmunk/internal/llm"
	"sirchmunk/internal/obslog"
	"sirchmunk/internal/sampler"
	"sirchmunk/internal/scanner"
	"sirchmunk/internal/speccache"
)

func main() {
	var (
		filenameOnly = flag.Bool("filenames", false, "run the LLM-free filename-pattern fast path instead of the full pipeline")
		pathsFlag    = flag.String("paths", "", "comma-separated search roots (overrides SIRCHMUNK_SEARCH_PATHS)")
		verbose      = flag.Bool("verbose", false, "enable human-readable console logging")
	)
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: sirchmunk [-filenames] [-paths p1,p2] <query>")
		os.Exit(2)
	}

	cfg := config.Load()
	if *verbose {
		cfg.Verbose = true
	}
	if *pathsFlag != "" {
		cfg.SearchPaths = strings.Split(*pathsFlag, ",")
	}
	if len(cfg.SearchPaths) == 0 {
		cfg.SearchPaths = []string{"."}
	}

	logger := obslog.New("info", cfg.Verbose)
	log.Logger = logger

	if cfg.LLMBaseURL == "" {
		logger.Fatal().Msg("LLM_BASE_URL is required")
	}

	provider := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey)
	embedder := llm.NewHTTPEmbedder(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	workDir := cfg.WorkPath
	if workDir == "" {
		workDir = "."
	}
	cacheDir := filepath.Join(workDir, ".sirchmunk")

	store, err := cluster.Open(filepath.Join(cacheDir, "clusters.db"), filepath.Join(cacheDir, "clusters.idx"))
	if err != nil {
		logger.Warn().Err(err).Msg("cluster store unavailable, reuse/persistence disabled")
		store = nil
	}

	engine := &agentic.Engine{
		Provider:   provider,
		Embedder:   embedder,
		Model:      cfg.LLMModelName,
		EmbedModel: cfg.LLMModelName,
		Store:      store,
		Scanner:    scanner.New(provider, cfg.LLMModelName),
		Retriever:  grepretriever.New("rga", workDir, cfg.GrepConcurrentLimit),
		SpecCache:  speccache.New(filepath.Join(cacheDir, "speccache"), logger),
		Builder:    knowledge.New(provider, cfg.LLMModelName, sampler.New(nil)),
		ToolWorkDir: workDir,
	}

	opts := agentic.Options{
		Paths:                cfg.SearchPaths,
		TopKFiles:            cfg.DefaultTopKFiles,
		ClusterThreshold:     cfg.ClusterSimThreshold,
		TopKClusters:         cfg.ClusterSimTopK,
		MaxQueriesPerCluster: cfg.MaxQueriesPerCluster,
		EmbeddingEnabled:     cfg.EnableClusterReuse && store != nil,
	}
	if *filenameOnly {
		opts.Mode = agentic.ModeFilenameOnly
	}

	ctx := obslog.WithLogger(context.Background(), logger)
	result, err := engine.Search(ctx, query, opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("search failed")
	}

	if opts.Mode == agentic.ModeFilenameOnly {
		for _, f := range result.Files {
			fmt.Printf("%.3f\t%s\n", f.Score, f.Path)
		}
		return
	}

	fmt.Println(result.Answer)
	if result.Context != nil {
		logger.Info().
			Uint32("llm_tokens", result.Context.TotalLLMTokens()).
			Uint32("loops", result.Context.LoopCount()).
			Bool("from_reuse", result.FromReuse).
			Msg("search complete")
	}
}
