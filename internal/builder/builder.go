// Package builder feeds documents into the index store, either as a
// from-scratch batch rebuild over a corpus directory or as single incremental
// additions submitted at runtime.
package builder

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Dsipek/nj-search-engine/internal/index"
	"github.com/Dsipek/nj-search-engine/internal/tokenizer"
	apperrors "github.com/Dsipek/nj-search-engine/pkg/errors"
	"github.com/Dsipek/nj-search-engine/pkg/logger"
)

// Builder constructs and extends the index held by a Store.
type Builder struct {
	store  *index.Store
	logger *slog.Logger
}

// New creates a Builder over the given store.
func New(store *index.Store) *Builder {
	return &Builder{
		store:  store,
		logger: logger.WithComponent("index-builder"),
	}
}

// BuildFromDirectory rebuilds the index from every regular file under root,
// recursively. filepath.WalkDir visits entries in lexical order, so document
// IDs are assigned deterministically: the i-th file visited becomes document
// i. Any prior index contents are replaced. Returns the number of documents
// indexed.
func (b *Builder) BuildFromDirectory(root string) (int, error) {
	var docs [][]string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading corpus file %s: %w", path, err)
		}
		docs = append(docs, tokenizer.Tokenize(string(content)))
		b.logger.Debug("corpus file read", "path", path, "doc_id", len(docs)-1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking corpus directory %s: %w", root, err)
	}

	if err := b.store.Rebuild(docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// AddDocument validates an uploaded document and adds it to the index. Only
// .txt-named uploads with valid UTF-8 content are accepted; anything else
// fails with ErrInvalidDocument before any state is touched. Returns the
// newly assigned document ID.
func (b *Builder) AddDocument(filename string, content []byte) (int, error) {
	if !strings.HasSuffix(filename, ".txt") {
		return 0, apperrors.Newf(apperrors.ErrInvalidDocument, http.StatusBadRequest,
			"only .txt files are allowed, got %q", filename)
	}
	if !utf8.Valid(content) {
		return 0, apperrors.New(apperrors.ErrInvalidDocument, http.StatusBadRequest,
			"file content is not valid UTF-8 text")
	}

	tokens := tokenizer.Tokenize(string(content))
	return b.store.AddDocument(tokens)
}
