package agentic

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sirchmunk/internal/cluster"
	"sirchmunk/internal/llm"
	"sirchmunk/internal/searchctx"
)

var (
	summaryTag    = regexp.MustCompile(`(?s)<SUMMARY>(.*?)</SUMMARY>`)
	shouldSaveTag = regexp.MustCompile(`(?s)<SHOULD_SAVE>(.*?)</SHOULD_SAVE>`)
)

// phase4 generates the final answer: either summarize the cluster phase 3
// built, or fall back to the ReAct agent (pre-seeded with phase 1's
// keywords and the SpecCache hint text) and synthesize a best-effort
// cluster from whatever it read. Returns the final cluster alongside the
// Result so phase5 can persist it.
func (e *Engine) phase4(ctx context.Context, query string, p1 phase1Result, kc *cluster.Cluster, sctx *searchctx.Context, opts Options) (Result, *cluster.Cluster, error) {
	if kc != nil && len(kc.Content) > 0 && !sctx.IsBudgetExceeded() {
		summary, shouldSave, err := e.summarizeCluster(ctx, sctx, query, strings.Join(kc.Content, "\n"))
		if err != nil {
			return Result{}, nil, err
		}
		kc.AppendSearchResult(summary)
		return Result{
			Answer:     summary,
			ClusterID:  kc.ID,
			ShouldSave: shouldSave,
		}, kc, nil
	}

	injectedQuery := query
	if p1.hint != "" {
		injectedQuery = fmt.Sprintf("%s\n\nPrior context:\n%s", query, p1.hint)
	}

	registry := e.buildFallbackRegistry(sctx, opts)
	agent := e.newReActEngine(sctx, registry)
	answer, err := agent.Run(ctx, injectedQuery, p1.keywords)
	if err != nil {
		return Result{}, nil, fmt.Errorf("react fallback: %w", err)
	}

	final := synthesizeFallbackCluster(kc, sctx, answer)
	return Result{
		Answer:     answer,
		ClusterID:  final.ID,
		ShouldSave: true,
	}, final, nil
}

// synthesizeFallbackCluster builds a minimal cluster from whatever files
// the ReAct agent read this session, reusing an existing phase-3 cluster
// shell if one was built (even without content), otherwise minting a fresh
// one carrying only the answer.
func synthesizeFallbackCluster(kc *cluster.Cluster, sctx *searchctx.Context, answer string) *cluster.Cluster {
	c := kc
	if c == nil {
		c = cluster.NewCluster(uuid.NewString())
	}
	c.Content = []string{answer}
	for _, p := range sctx.FilesRead() {
		found := false
		for _, ev := range c.Evidences {
			if ev.FileOrURL == p {
				found = true
				break
			}
		}
		if !found {
			c.Evidences = append(c.Evidences, cluster.EvidenceUnit{FileOrURL: p, IsFound: true})
		}
	}
	return c
}

func (e *Engine) summarizeCluster(ctx context.Context, sctx *searchctx.Context, userInput, content string) (string, bool, error) {
	prompt := fmt.Sprintf(
		"User asked: %s\n\nGathered content:\n%s\n\n"+
			"Respond with <SUMMARY>a direct answer to the user's question</SUMMARY> and "+
			"<SHOULD_SAVE>true or false, whether this is durable reusable knowledge</SHOULD_SAVE>.",
		userInput, content,
	)
	resp, err := e.Provider.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.ChatOptions{Model: e.Model})
	sctx.AddLLMTokens(searchctx.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})
	if err != nil {
		return "", false, fmt.Errorf("agentic: summarize cluster: %w", err)
	}

	summary := strings.TrimSpace(firstMatch(summaryTag, resp.Content))
	if summary == "" {
		summary = resp.Content
	}
	shouldSave, _ := strconv.ParseBool(strings.TrimSpace(firstMatch(shouldSaveTag, resp.Content)))
	return summary, shouldSave, nil
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
