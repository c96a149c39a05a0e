// Package config loads sirchmunk's runtime settings from environment
// variables (optionally backed by a .env file), grounded on the env-var-first
// loading idiom used throughout the teacher codebase.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-variable-driven setting sirchmunk
// recognizes (spec.md §6.5 plus the ambient verbosity switch).
type Config struct {
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModelName string

	WorkPath    string
	SearchPaths []string
	Verbose     bool

	EnableClusterReuse bool
	ClusterSimThreshold float64
	ClusterSimTopK       int
	MaxQueriesPerCluster int

	DefaultMaxDepth       int
	DefaultTopKFiles      int
	DefaultKeywordLevels  int

	GrepTimeoutSeconds  int
	GrepConcurrentLimit int
}

// defaults mirror the spec's stated numeric defaults (§4.2–§4.5, §6.5).
func defaults() Config {
	return Config{
		WorkPath:             ".",
		EnableClusterReuse:   true,
		ClusterSimThreshold:  0.82,
		ClusterSimTopK:       3,
		MaxQueriesPerCluster: 20,
		DefaultMaxDepth:      8,
		DefaultTopKFiles:     20,
		DefaultKeywordLevels: 2,
		GrepTimeoutSeconds:   15,
		GrepConcurrentLimit:  5,
	}
}

// Load reads configuration from the process environment. A .env file in the
// current directory, if present, is loaded first via godotenv.Overload so
// local development configuration takes precedence over a stale shell
// environment — the same discipline the teacher's loader applies.
func Load() Config {
	_ = godotenv.Overload()

	cfg := defaults()

	cfg.LLMBaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	cfg.LLMAPIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	cfg.LLMModelName = strings.TrimSpace(os.Getenv("LLM_MODEL_NAME"))

	if v := strings.TrimSpace(os.Getenv("SIRCHMUNK_WORK_PATH")); v != "" {
		cfg.WorkPath = v
	}
	cfg.SearchPaths = splitSearchPaths(os.Getenv("SIRCHMUNK_SEARCH_PATHS"))
	cfg.Verbose = parseBool(os.Getenv("SIRCHMUNK_VERBOSE"), false)

	if v := os.Getenv("SIRCHMUNK_ENABLE_CLUSTER_REUSE"); v != "" {
		cfg.EnableClusterReuse = parseBool(v, cfg.EnableClusterReuse)
	}
	if v, ok := parseFloat(os.Getenv("CLUSTER_SIM_THRESHOLD")); ok {
		cfg.ClusterSimThreshold = v
	}
	if v, ok := parseInt(os.Getenv("CLUSTER_SIM_TOP_K")); ok {
		cfg.ClusterSimTopK = v
	}
	if v, ok := parseInt(os.Getenv("MAX_QUERIES_PER_CLUSTER")); ok {
		cfg.MaxQueriesPerCluster = v
	}
	if v, ok := parseInt(os.Getenv("DEFAULT_MAX_DEPTH")); ok {
		cfg.DefaultMaxDepth = v
	}
	if v, ok := parseInt(os.Getenv("DEFAULT_TOP_K_FILES")); ok {
		cfg.DefaultTopKFiles = v
	}
	if v, ok := parseInt(os.Getenv("DEFAULT_KEYWORD_LEVELS")); ok {
		cfg.DefaultKeywordLevels = v
	}
	if v, ok := parseInt(os.Getenv("GREP_TIMEOUT")); ok {
		cfg.GrepTimeoutSeconds = v
	}
	if v, ok := parseInt(os.Getenv("GREP_CONCURRENT_LIMIT")); ok {
		cfg.GrepConcurrentLimit = v
	}

	return cfg
}

// splitSearchPaths honors the three delimiters spec.md §6.5 calls out: ASCII
// comma, full-width comma, and the OS path-list separator.
func splitSearchPaths(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, "，", ",")
	raw = strings.ReplaceAll(raw, string(os.PathListSeparator), ",")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string, fallback bool) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseInt(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloat(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
