// Command indexbuild rebuilds the persisted index from a corpus directory.
// It walks the corpus tree in lexical order, assigns dense sequential
// document IDs starting at 0, and writes both index files once at the end,
// replacing any previous index.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Dsipek/nj-search-engine/internal/builder"
	"github.com/Dsipek/nj-search-engine/internal/index"
	"github.com/Dsipek/nj-search-engine/pkg/config"
	"github.com/Dsipek/nj-search-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusDir := flag.String("corpus", "", "corpus directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	root := cfg.Index.CorpusDir
	if *corpusDir != "" {
		root = *corpusDir
	}

	if err := os.MkdirAll(cfg.Index.DataDir, 0755); err != nil {
		slog.Error("failed to create data directory", "dir", cfg.Index.DataDir, "error", err)
		os.Exit(1)
	}

	store := index.New(cfg.Index.InvertedIndexPath(), cfg.Index.TermFrequenciesPath())
	b := builder.New(store)

	slog.Info("building index", "corpus", root, "data_dir", cfg.Index.DataDir)
	count, err := b.BuildFromDirectory(root)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	slog.Info("index build complete",
		"documents", count,
		"inverted_index", cfg.Index.InvertedIndexPath(),
		"term_frequencies", cfg.Index.TermFrequenciesPath(),
	)
}
