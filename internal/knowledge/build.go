// Package knowledge implements KnowledgeBase.build: fan out an evidence
// sampler over a shortlist of files, then synthesize the results into one
// persisted KnowledgeCluster.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sirchmunk/internal/cluster"
	"sirchmunk/internal/extract"
	"sirchmunk/internal/llm"
	"sirchmunk/internal/sampler"
)

const (
	defaultTopKFiles           = 20
	defaultTopKSnippets        = 5
	defaultConfidenceThreshold = 0.5
)

// Request carries the inputs to Build: a shortlist of candidate file paths
// (already deduplicated and priority-merged by the caller), an optional
// keyword→IDF weighting map for query-term emphasis, and the size knobs
// spec.md §4.9 names.
type Request struct {
	UserInput           string
	FilePaths           []string
	IDF                 map[string]float64
	TopKFiles           int
	TopKSnippets        int
	ConfidenceThreshold float64
}

// Builder implements KnowledgeBase.build.
type Builder struct {
	Provider llm.Provider
	Model    string
	Sampler  *sampler.Sampler
}

// New constructs a Builder with spec-stated defaults.
func New(provider llm.Provider, model string, s *sampler.Sampler) *Builder {
	if s == nil {
		s = sampler.New(nil)
	}
	return &Builder{Provider: provider, Model: model, Sampler: s}
}

// Build extracts each shortlisted file, samples evidence-guided regions of
// interest from it, and — if any evidence was found — asks the LLM to
// synthesize a named, described cluster from the combined summaries. The
// returned Usage is zero-valued unless synthesis actually made an LLM call;
// callers charge it against their own session accounting.
func (b *Builder) Build(ctx context.Context, req Request) (*cluster.Cluster, llm.Usage, error) {
	topK := req.TopKFiles
	if topK <= 0 {
		topK = defaultTopKFiles
	}
	topKSnippets := req.TopKSnippets
	if topKSnippets <= 0 {
		topKSnippets = defaultTopKSnippets
	}
	confidence := req.ConfidenceThreshold
	if confidence <= 0 {
		confidence = defaultConfidenceThreshold
	}

	paths := req.FilePaths
	if len(paths) > topK {
		paths = paths[:topK]
	}

	evidenceQueries := evidenceQueriesFor(req.UserInput, req.IDF)
	evidence := b.sampleEvidence(ctx, evidenceQueries, paths, topKSnippets)

	c := cluster.NewCluster(uuid.NewString())
	c.Confidence = confidence
	c.Evidences = evidence

	var found []EvidenceSummary
	for _, e := range evidence {
		if e.IsFound {
			found = append(found, EvidenceSummary{unit: e})
		}
	}
	if len(found) == 0 {
		return c, llm.Usage{}, nil
	}

	name, description, content, usage, err := b.synthesize(ctx, req.UserInput, found)
	if err != nil {
		return c, usage, fmt.Errorf("knowledge: synthesize cluster: %w", err)
	}
	c.Name = name
	c.Description = description
	c.Content = content
	return c, usage, nil
}

// EvidenceSummary wraps an EvidenceUnit that was actually found, for the
// synthesis prompt-building step.
type EvidenceSummary struct {
	unit cluster.EvidenceUnit
}

func (b *Builder) sampleEvidence(ctx context.Context, evidenceQueries []string, paths []string, topKSnippets int) []cluster.EvidenceUnit {
	type result struct {
		idx  int
		unit cluster.EvidenceUnit
	}
	out := make([]cluster.EvidenceUnit, len(paths))
	var wg sync.WaitGroup

	results := make(chan result, len(paths))
	for i, p := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			results <- result{idx: i, unit: b.sampleOneFile(ctx, evidenceQueries, path, topKSnippets)}
		}(i, p)
	}
	wg.Wait()
	close(results)
	for r := range results {
		out[r.idx] = r.unit
	}
	return out
}

// evidenceQueriesFor builds the sampler's evidence-anchor set: the raw user
// query plus its highest-IDF keywords, so anchors drawn from rarer terms are
// weighted into the sampling pool alongside the query text itself.
func evidenceQueriesFor(userInput string, idf map[string]float64) []string {
	queries := []string{userInput}
	type kv struct {
		term string
		idf  float64
	}
	kvs := make([]kv, 0, len(idf))
	for term, weight := range idf {
		kvs = append(kvs, kv{term, weight})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].idf > kvs[j].idf })
	const maxKeywords = 8
	for i, k := range kvs {
		if i >= maxKeywords {
			break
		}
		queries = append(queries, k.term)
	}
	return queries
}

func (b *Builder) sampleOneFile(ctx context.Context, evidenceQueries []string, path string, topKSnippets int) cluster.EvidenceUnit {
	unit := cluster.EvidenceUnit{
		DocID:     docID(path),
		FileOrURL: path,
	}

	res, err := extract.Extract(ctx, path)
	if err != nil {
		return unit
	}
	unit.ExtractedAt = time.Now()

	rois := b.Sampler.Sample(res.Text, evidenceQueries, topKSnippets)
	if len(rois) == 0 {
		unit.Summary = preview(res.Text, 200)
		return unit
	}

	unit.IsFound = true
	unit.Summary = preview(rois[0].Content, 200)
	unit.Snippets = make([]cluster.Snippet, 0, len(rois))
	for _, r := range rois {
		unit.Snippets = append(unit.Snippets, cluster.Snippet{
			Content: r.Content,
			Score:   r.Score,
			Meta:    cluster.SnippetMeta{Range: [2]int{r.Start, r.End}, HitCount: r.HitCount},
		})
	}
	return unit
}

func docID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}

func preview(text string, maxChars int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= maxChars {
		return string(r)
	}
	return string(r[:maxChars])
}

var (
	descriptionTag = regexp.MustCompile(`(?s)<DESCRIPTION>(.*?)</DESCRIPTION>`)
	nameTag        = regexp.MustCompile(`(?s)<NAME>(.*?)</NAME>`)
	contentTag     = regexp.MustCompile(`(?s)<CONTENT>(.*?)</CONTENT>`)
)

// synthesize asks the LLM to name, describe, and summarize the combined
// evidence into a cluster's fields.
func (b *Builder) synthesize(ctx context.Context, userInput string, found []EvidenceSummary) (name string, description []string, content []string, usage llm.Usage, err error) {
	var summaries strings.Builder
	for _, f := range found {
		fmt.Fprintf(&summaries, "[%s]\n%s\n\n", f.unit.FileOrURL, f.unit.Summary)
	}

	prompt := fmt.Sprintf(
		"User asked: %s\n\nEvidence gathered from files:\n%s\n"+
			"Respond with <NAME>a short cluster name</NAME>, "+
			"<DESCRIPTION>one or two sentences describing this knowledge</DESCRIPTION>, and "+
			"<CONTENT>the synthesized answer, citing files where relevant</CONTENT>.",
		userInput, summaries.String(),
	)

	var full strings.Builder
	resp, streamErr := b.Provider.ChatStream(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.ChatOptions{Model: b.Model}, func(delta string) {
		full.WriteString(delta)
	})
	if streamErr != nil {
		return "", nil, nil, resp.Usage, streamErr
	}
	text := resp.Content
	if text == "" {
		text = full.String()
	}

	name = strings.TrimSpace(firstMatch(nameTag, text))
	description = splitNonEmpty(firstMatch(descriptionTag, text))
	content = splitNonEmpty(firstMatch(contentTag, text))
	if name == "" {
		name = userInput
	}
	return name, description, content, resp.Usage, nil
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func splitNonEmpty(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
