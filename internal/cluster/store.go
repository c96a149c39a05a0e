package cluster

import (
	"fmt"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// offsetEntry is one index record: where a cluster's bytes live in the data
// file and how long the record is (including the trailing 0x00).
type offsetEntry struct {
	Offset uint64
	Length uint64
}

const recordTerminator = 0x00

// Store implements ClusterStore. index mutations (insert/delete/rebuild)
// are serialized by mu; get() may run concurrently with any number of other
// get() calls and at most one writer between append and index replace.
type Store struct {
	dataPath  string
	indexPath string

	mu    sync.RWMutex
	index map[string]offsetEntry
	data  *os.File

	embeddings map[string]EmbeddingRecord
}

// Open opens (or creates) the store at dataPath/indexPath, loading the
// index file if present, or attempting Repair if it is missing but the
// data file exists.
func Open(dataPath, indexPath string) (*Store, error) {
	f, err := os.OpenFile(dataPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cluster: open data file: %w", err)
	}
	s := &Store{
		dataPath:   dataPath,
		indexPath:  indexPath,
		index:      make(map[string]offsetEntry),
		data:       f,
		embeddings: make(map[string]EmbeddingRecord),
	}

	if idx, err := loadIndex(indexPath); err == nil {
		s.index = idx
	} else if err := s.Repair(); err != nil {
		return nil, fmt.Errorf("cluster: repair after missing index: %w", err)
	}
	return s, nil
}

// Close releases the data file handle.
func (s *Store) Close() error {
	return s.data.Close()
}

func loadIndex(path string) (map[string]offsetEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx map[string]offsetEntry
	if err := msgpack.Unmarshal(raw, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// writeIndexAtomic serializes idx and replaces the index file via
// temp-then-rename, so a crash mid-write never leaves a partial index.
func writeIndexAtomic(path string, idx map[string]offsetEntry) error {
	raw, err := msgpack.Marshal(idx)
	if err != nil {
		return fmt.Errorf("cluster: marshal index: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("cluster: write temp index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cluster: rename temp index: %w", err)
	}
	return nil
}

// Insert appends cluster to the data file and updates the index. Inserting
// an id that already exists overwrites it in the index (later reads return
// the new record; old bytes remain in the data file until Rebuild).
func (s *Store) Insert(c Cluster) error {
	return s.InsertBatch([]Cluster{c})
}

// InsertBatch appends every cluster, then performs one fsync and one atomic
// index replace for the whole batch.
func (s *Store) InsertBatch(clusters []Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	preImage := make(map[string]offsetEntry, len(s.index))
	for k, v := range s.index {
		preImage[k] = v
	}

	info, err := s.data.Stat()
	if err != nil {
		return fmt.Errorf("cluster: stat data file: %w", err)
	}
	offset := uint64(info.Size())

	for _, c := range clusters {
		packed, err := msgpack.Marshal(c)
		if err != nil {
			s.index = preImage
			return fmt.Errorf("cluster: marshal cluster %s: %w", c.ID, err)
		}
		record := append(packed, recordTerminator)
		n, err := s.data.WriteAt(record, int64(offset))
		if err != nil || n != len(record) {
			s.index = preImage
			return fmt.Errorf("cluster: append record for %s: %w", c.ID, err)
		}
		s.index[c.ID] = offsetEntry{Offset: offset, Length: uint64(len(record))}
		offset += uint64(len(record))
	}

	if err := s.data.Sync(); err != nil {
		s.index = preImage
		return fmt.Errorf("cluster: fsync data file: %w", err)
	}
	if err := writeIndexAtomic(s.indexPath, s.index); err != nil {
		s.index = preImage
		return fmt.Errorf("cluster: replace index: %w", err)
	}
	return nil
}

// Get looks up id and decodes its record. A reader observing id in the
// in-memory index is guaranteed the corresponding bytes exist on disk.
func (s *Store) Get(id string) (Cluster, bool, error) {
	s.mu.RLock()
	entry, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return Cluster{}, false, nil
	}

	buf := make([]byte, entry.Length-1)
	n, err := s.data.ReadAt(buf, int64(entry.Offset))
	if err != nil && n != len(buf) {
		return Cluster{}, false, fmt.Errorf("cluster: read record %s: %w", id, err)
	}

	var c Cluster
	if err := msgpack.Unmarshal(buf, &c); err != nil {
		return Cluster{}, false, fmt.Errorf("cluster: decode record %s: %w", id, err)
	}
	return c, true, nil
}

// DeleteBatch removes ids from the index only; the data file is not
// rewritten. Space is reclaimed by Rebuild.
func (s *Store) DeleteBatch(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.index, id)
		delete(s.embeddings, id)
	}
	return writeIndexAtomic(s.indexPath, s.index)
}

// Len returns the number of live (indexed) clusters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Rebuild reads every live cluster, truncates both files, and rewrites them
// via InsertBatch — the compaction path that reclaims space left by
// DeleteBatch.
func (s *Store) Rebuild() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	live := make([]Cluster, 0, len(ids))
	for _, id := range ids {
		c, ok, err := s.Get(id)
		if err != nil {
			return err
		}
		if ok {
			live = append(live, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.data.Truncate(0); err != nil {
		return fmt.Errorf("cluster: truncate data file for rebuild: %w", err)
	}
	s.index = make(map[string]offsetEntry)
	s.mu.Unlock()

	if err := s.InsertBatch(live); err != nil {
		return err
	}
	s.mu.Lock()
	return nil
}

// Repair reconstructs the index from the data file alone, splitting records
// on the 0x00 terminator and decoding each to recover its id, per §4.5's
// repair algorithm. A MessagePack-encoded cluster can itself contain 0x00
// bytes (a zero float, an empty length prefix, ...), so the first 0x00 after
// start isn't necessarily the real terminator: when decoding the candidate
// record fails, this walks forward to the next 0x00 and retries against the
// longer slice instead of giving up on the record, so embedded nulls don't
// desynchronize the rest of the scan.
func (s *Store) Repair() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.dataPath)
	if err != nil {
		return fmt.Errorf("cluster: read data file for repair: %w", err)
	}

	newIndex := make(map[string]offsetEntry)
	start := 0
	for start < len(raw) {
		end := start
		var c Cluster
		decoded := false
		for end < len(raw) {
			for end < len(raw) && raw[end] != recordTerminator {
				end++
			}
			if end >= len(raw) {
				break
			}
			c = Cluster{}
			if err := msgpack.Unmarshal(raw[start:end], &c); err == nil && c.ID != "" {
				decoded = true
				break
			}
			end++ // this 0x00 was embedded data, not the terminator; keep scanning
		}
		if !decoded {
			break
		}
		newIndex[c.ID] = offsetEntry{Offset: uint64(start), Length: uint64(end - start + 1)}
		start = end + 1
	}

	s.index = newIndex
	return writeIndexAtomic(s.indexPath, s.index)
}
