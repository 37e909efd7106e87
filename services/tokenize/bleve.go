package tokenize

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// AnalyzerLinkIndex splits on unicode word boundaries, lowercases and drops
// terms longer than MaxTermLength, without stop word removal or stemming.
const AnalyzerLinkIndex = "linkindex"

const lengthFilterName = "linkindex_length"

type BleveTokenizer struct {
	name     string
	analyzer analysis.Analyzer
}

var _ Tokenizer = (*BleveTokenizer)(nil)

func NewBleve(analyzerName string) (*BleveTokenizer, error) {
	if analyzerName == "" {
		analyzerName = AnalyzerLinkIndex
	}

	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomTokenFilter(lengthFilterName, map[string]interface{}{
		"type": length.Name,
		"max":  float64(MaxTermLength),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register token filter %s: %w", lengthFilterName, err)
	}
	err = indexMapping.AddCustomAnalyzer(AnalyzerLinkIndex, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, lengthFilterName},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer %s: %w", AnalyzerLinkIndex, err)
	}

	analyzer := indexMapping.AnalyzerNamed(analyzerName)
	if analyzer == nil {
		return nil, fmt.Errorf("unknown analyzer '%s'", analyzerName)
	}

	return &BleveTokenizer{name: analyzerName, analyzer: analyzer}, nil
}

func (b *BleveTokenizer) Tokenize(_ context.Context, text string) ([]string, error) {
	tokenStream := b.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(tokenStream))
	for _, token := range tokenStream {
		if term, ok := normalize(string(token.Term)); ok {
			terms = append(terms, term)
		}
	}

	return terms, nil
}

func (b *BleveTokenizer) Name() string {
	return b.name
}
