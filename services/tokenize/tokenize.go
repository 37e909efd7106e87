// Package tokenize turns raw text into normalized terms. The same Tokenizer is
// used on the ingestion and query paths so both produce identical terms.
package tokenize

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/meghashyamc/linkindex/config"
	"github.com/meghashyamc/linkindex/logger"
)

const (
	BackendBleve   = "bleve"
	BackendSudachi = "sudachi"
)

// MaxTermLength is the longest term, in runes, that is kept. Longer runs of
// word characters are dropped; terms are stored as snapshot keys.
const MaxTermLength = 256

type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]string, error)
}

// New builds the configured backend, wrapped in a cache when one is configured.
func New(logger logger.Logger, cfg *config.Config) (Tokenizer, error) {
	var backend Tokenizer
	switch strings.ToLower(cfg.GetTokenizerBackend()) {
	case BackendBleve, "":
		bleveTokenizer, err := NewBleve(cfg.GetTokenizerAnalyzer())
		if err != nil {
			logger.Error("failed to create bleve tokenizer", "analyzer", cfg.GetTokenizerAnalyzer(), "err", err.Error())
			return nil, err
		}
		backend = bleveTokenizer
	case BackendSudachi:
		backend = NewSudachi(logger, SudachiOptions{
			Command:   cfg.GetSudachiCommand(),
			Mode:      cfg.GetSudachiMode(),
			ChunkSize: cfg.GetTokenizerChunkSize(),
			Timeout:   cfg.GetTokenizerTimeout(),
		})
	default:
		return nil, fmt.Errorf("unknown tokenizer backend '%s'", cfg.GetTokenizerBackend())
	}

	logger.Info("tokenizer ready", "backend", cfg.GetTokenizerBackend(), "cache_size", cfg.GetTokenizerCacheSize())
	if cfg.GetTokenizerCacheSize() <= 0 {
		return backend, nil
	}

	return NewCached(backend, cfg.GetTokenizerCacheSize()), nil
}

// TermCounts folds a term sequence into per-term frequencies.
func TermCounts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return counts
}

// normalize case folds a raw token and reports whether it carries any content
// and fits within MaxTermLength.
func normalize(token string) (string, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" || utf8.RuneCountInString(token) > MaxTermLength {
		return "", false
	}
	for _, r := range token {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return token, true
		}
	}

	return "", false
}
