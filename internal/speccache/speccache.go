// Package speccache implements a per-search-path scratch cache that
// warm-starts ReAct sessions with a summary of the last time a path was
// searched, so a repeated query over the same directory doesn't pay for
// re-discovering what was already found.
package speccache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStaleHours is the TTL applied when a caller does not override it.
const DefaultStaleHours = 72

// Entry is one search path's cached session summary.
type Entry struct {
	SearchPath    string    `json:"search_path"`
	CachedAt      time.Time `json:"cached_at"`
	TotalLLMTokens uint32   `json:"total_llm_tokens"`
	LoopCount     uint32    `json:"loop_count"`
	FilesRead     []string  `json:"files_read"`
	SearchHistory []string  `json:"search_history"`
	Summary       string    `json:"summary"`
	RetrievalLogs []string  `json:"retrieval_logs"`
}

// Cache is a directory of JSON scratch files keyed by the canonical search
// path's content hash. Reads and writes never fail the calling session:
// errors are logged and the caller falls back to an empty result.
type Cache struct {
	dir    string
	log    zerolog.Logger
	locks  sync.Map // path key -> *sync.Mutex
}

// New constructs a Cache rooted at dir, creating it if necessary.
func New(dir string, log zerolog.Logger) *Cache {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("speccache: could not create cache directory")
	}
	return &Cache{dir: dir, log: log}
}

// keyFor returns the first 16 hex chars of SHA-256 of the canonicalized
// path, matching ClusterStore's content-hash convention.
func keyFor(path string) string {
	canonical := filepath.ToSlash(filepath.Clean(path))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *Cache) entryPath(path string) string {
	return filepath.Join(c.dir, keyFor(path)+".json")
}

func (c *Cache) lockFor(path string) *sync.Mutex {
	key := keyFor(path)
	l, _ := c.locks.LoadOrStore(key, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// LoadContext reads one entry per path, skips entries older than
// staleHours (0 uses DefaultStaleHours), and concatenates their summary
// text with blank-line separation. Read errors are logged and skipped.
func (c *Cache) LoadContext(paths []string, staleHours int) string {
	if staleHours <= 0 {
		staleHours = DefaultStaleHours
	}
	ttl := time.Duration(staleHours) * time.Hour
	now := time.Now()

	var summaries []string
	for _, p := range paths {
		entry, ok := c.readEntry(p)
		if !ok {
			continue
		}
		if now.Sub(entry.CachedAt) > ttl {
			continue
		}
		if strings.TrimSpace(entry.Summary) == "" {
			continue
		}
		summaries = append(summaries, entry.Summary)
	}
	return strings.Join(summaries, "\n\n")
}

func (c *Cache) readEntry(path string) (Entry, bool) {
	mu := c.lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	raw, err := os.ReadFile(c.entryPath(path))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Debug().Err(err).Str("path", path).Msg("speccache: read failed")
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("speccache: decode failed")
		return Entry{}, false
	}
	return entry, true
}

// SaveContext writes one entry per path (sharing the same summary and
// counters) via temp-file-then-rename under that path's lock. Write errors
// are logged and ignored — the session is never failed by cache I/O.
func (c *Cache) SaveContext(paths []string, entry Entry) {
	entry.CachedAt = time.Now()
	for _, p := range paths {
		e := entry
		e.SearchPath = p
		c.writeEntry(p, e)
	}
}

func (c *Cache) writeEntry(path string, entry Entry) {
	mu := c.lockFor(path)
	mu.Lock()
	defer mu.Unlock()

	raw, err := json.Marshal(entry)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("speccache: marshal failed")
		return
	}
	target := c.entryPath(path)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("speccache: write failed")
		return
	}
	if err := os.Rename(tmp, target); err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("speccache: rename failed")
	}
}
