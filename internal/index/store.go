// Package index holds the inverted index and term-frequency table in memory
// and owns their persistence. Both structures are loaded fully at startup and
// written back atomically after every mutation, so a crash mid-write never
// leaves a corrupt file on disk.
//
// Mutation follows single-writer discipline: the write lock is held across
// the full mutate-and-persist sequence, so concurrent readers never observe
// a half-applied document. A failed persist rolls the in-memory structures
// back to their pre-call state.
package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	apperrors "github.com/Dsipek/nj-search-engine/pkg/errors"
	"github.com/Dsipek/nj-search-engine/pkg/logger"
)

// InvertedIndex maps a token to the ordered list of document IDs containing
// it. Duplicate IDs are allowed and meaningful: incremental ingestion appends
// the document ID once per occurrence of the token.
type InvertedIndex map[string][]int

// TermFrequencies maps a document ID to its per-token frequency values.
// Batch-built entries hold normalised frequencies (count / total tokens),
// incrementally-added entries hold raw counts; the scorer accepts both.
type TermFrequencies map[int]map[string]float64

// MarshalJSON serialises the table with string document-ID keys, matching
// the on-disk format expected by existing term_frequencies.json files.
func (t TermFrequencies) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]float64, len(t))
	for docID, freqs := range t {
		out[strconv.Itoa(docID)] = freqs
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses string document-ID keys back into integers.
func (t *TermFrequencies) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(TermFrequencies, len(raw))
	for key, freqs := range raw {
		docID, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("invalid document id key %q: %w", key, err)
		}
		parsed[docID] = freqs
	}
	*t = parsed
	return nil
}

// Store owns the in-memory index structures and their durable files.
type Store struct {
	mu              sync.RWMutex
	invertedPath    string
	frequenciesPath string
	inverted        InvertedIndex
	frequencies     TermFrequencies
	logger          *slog.Logger
}

// New creates an empty Store bound to the given file paths. Nothing is
// written until the first mutation.
func New(invertedPath, frequenciesPath string) *Store {
	return &Store{
		invertedPath:    invertedPath,
		frequenciesPath: frequenciesPath,
		inverted:        make(InvertedIndex),
		frequencies:     make(TermFrequencies),
		logger:          logger.WithComponent("index-store"),
	}
}

// Open loads both persisted structures from disk. A missing or malformed
// file is an error wrapping ErrIndexUnavailable; there is no fallback to an
// empty index, the process is expected to refuse to start.
func Open(invertedPath, frequenciesPath string) (*Store, error) {
	s := New(invertedPath, frequenciesPath)

	data, err := os.ReadFile(invertedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrIndexUnavailable, invertedPath, err)
	}
	if err := json.Unmarshal(data, &s.inverted); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrIndexUnavailable, invertedPath, err)
	}

	data, err = os.ReadFile(frequenciesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrIndexUnavailable, frequenciesPath, err)
	}
	if err := json.Unmarshal(data, &s.frequencies); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrIndexUnavailable, frequenciesPath, err)
	}

	s.logger.Info("index loaded",
		"documents", len(s.frequencies),
		"terms", len(s.inverted),
	)
	return s, nil
}

// DocCount returns the number of documents in the term-frequency table.
func (s *Store) DocCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frequencies)
}

// Postings returns the posting list for token, or nil if the token is not
// indexed. The returned slice must not be modified.
func (s *Store) Postings(token string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inverted[token]
}

// Frequency returns the stored frequency value of token in the given
// document, or 0 if absent.
func (s *Store) Frequency(docID int, token string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frequencies[docID][token]
}

// AddDocument appends one document with the given token sequence using the
// incremental representation: raw occurrence counts in the term-frequency
// table, and the new document ID appended to each token's posting list once
// per occurrence. The new ID is the current table length, keeping IDs dense
// and sequential. Both structures are persisted before the call returns; on
// persistence failure the in-memory mutation is rolled back and the error is
// returned.
func (s *Store) AddDocument(tokens []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docID := len(s.frequencies)
	counts := make(map[string]float64, len(tokens))
	priorLens := make(map[string]int, len(tokens))
	for _, token := range tokens {
		if _, seen := priorLens[token]; !seen {
			priorLens[token] = len(s.inverted[token])
		}
		counts[token]++
		s.inverted[token] = append(s.inverted[token], docID)
	}
	s.frequencies[docID] = counts

	if err := s.persistLocked(); err != nil {
		delete(s.frequencies, docID)
		for token, n := range priorLens {
			if n == 0 {
				delete(s.inverted, token)
			} else {
				s.inverted[token] = s.inverted[token][:n]
			}
		}
		return 0, err
	}

	s.logger.Info("document added",
		"doc_id", docID,
		"token_count", len(tokens),
		"distinct_terms", len(counts),
	)
	return docID, nil
}

// Rebuild replaces the entire index with one built from the given documents,
// in order: document i receives ID i. Frequencies use the batch
// representation (occurrence count / total tokens in the document). Both
// structures are persisted once at the end; on failure the previous contents
// are restored.
func (s *Store) Rebuild(docs [][]string) error {
	inverted := make(InvertedIndex)
	frequencies := make(TermFrequencies, len(docs))
	for docID, tokens := range docs {
		counts := make(map[string]float64, len(tokens))
		for _, token := range tokens {
			counts[token]++
		}
		total := float64(len(tokens))
		entry := make(map[string]float64, len(counts))
		for token, count := range counts {
			inverted[token] = append(inverted[token], docID)
			entry[token] = count / total
		}
		frequencies[docID] = entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevInverted, prevFrequencies := s.inverted, s.frequencies
	s.inverted, s.frequencies = inverted, frequencies
	if err := s.persistLocked(); err != nil {
		s.inverted, s.frequencies = prevInverted, prevFrequencies
		return err
	}

	s.logger.Info("index rebuilt",
		"documents", len(frequencies),
		"terms", len(inverted),
	)
	return nil
}

// persistLocked writes both structures to their canonical files. The caller
// must hold the write lock.
func (s *Store) persistLocked() error {
	if err := writeJSONAtomic(s.invertedPath, s.inverted); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	if err := writeJSONAtomic(s.frequenciesPath, s.frequencies); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}
	return nil
}

// writeJSONAtomic writes v as JSON to a temporary file next to path and
// renames it over the canonical file, so a reader never observes a partial
// write. The temporary file is removed on every failure path.
func writeJSONAtomic(path string, v any) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file %s: %w", tmpPath, err)
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
