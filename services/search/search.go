// Package search answers ranked keyword queries over the index.
package search

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/services/scoring"
	"github.com/meghashyamc/linkindex/services/tokenize"
)

type Options struct {
	DefaultAlgorithm scoring.Algorithm
	DefaultPageSize  int
	MaxPageWidth     int
}

type Service struct {
	logger    logger.Logger
	db        searchdb.DB
	tokenizer tokenize.Tokenizer
	options   Options
}

// Query is one search request. Blank Algorithm and Range fields take the configured defaults.
type Query struct {
	Text         string
	Algorithm    string
	Range        string
	Tags         string
	TagExclusive bool
}

type Result struct {
	ID          int           `json:"id"`
	IndexID     uint64        `json:"index_id"`
	URL         string        `json:"url"`
	Title       *string       `json:"title"`
	Favicon     *string       `json:"favicon"`
	Description *string       `json:"description"`
	Tags        searchdb.Tags `json:"tags"`
	Score       float64       `json:"score"`
	Length      int           `json:"length"`
}

type Response struct {
	Query          string       `json:"query"`
	TokenizedQuery []string     `json:"tokenized_query"`
	Algorithm      string       `json:"algorithm"`
	AlgorithmKind  scoring.Kind `json:"-"`
	Range          Range        `json:"range"`
	Total          int          `json:"total"`
	Results        []Result     `json:"results"`
}

type candidate struct {
	docID uint64
	score float64
}

func New(logger logger.Logger, db searchdb.DB, tokenizer tokenize.Tokenizer, options Options) *Service {
	if options.DefaultPageSize <= 0 {
		options.DefaultPageSize = DefaultPageSize
	}
	if options.MaxPageWidth <= 0 {
		options.MaxPageWidth = MaxPageWidth
	}

	return &Service{
		logger:    logger,
		db:        db,
		tokenizer: tokenizer,
		options:   options,
	}
}

// Search tokenizes the query, scores every document holding at least one query
// term, filters by tags, orders by score and then document id, and slices the range.
func (s *Service) Search(ctx context.Context, query Query) (*Response, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, apperrors.New(apperrors.ErrEmptyQuery, "query cannot be empty")
	}

	algorithm := s.options.DefaultAlgorithm
	if strings.TrimSpace(query.Algorithm) != "" {
		var err error
		if algorithm, err = scoring.Parse(query.Algorithm); err != nil {
			return nil, err
		}
	}

	resultRange, err := ParseRange(query.Range, s.options.DefaultPageSize, s.options.MaxPageWidth)
	if err != nil {
		return nil, err
	}

	tags, err := searchdb.ParseTagList(query.Tags)
	if err != nil {
		return nil, err
	}

	terms, err := s.tokenizer.Tokenize(ctx, query.Text)
	if err != nil {
		s.logger.Error("failed to tokenize query", "query", query.Text, "err", err.Error())
		return nil, err
	}

	response := &Response{
		Query:          query.Text,
		TokenizedQuery: terms,
		Algorithm:      algorithm.String(),
		AlgorithmKind:  algorithm.Kind,
		Range:          resultRange,
		Results:        []Result{},
	}
	if len(terms) == 0 {
		return response, nil
	}

	queryTerms := tokenize.TermCounts(terms)
	err = s.db.Read(func(reader searchdb.Reader) error {
		candidates := s.score(reader, algorithm, queryTerms, tags, query.TagExclusive)
		response.Total = len(candidates)
		response.Results = s.page(reader, candidates, resultRange)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to read index", "err", err.Error())
		return nil, err
	}

	return response, nil
}

func (s *Service) score(reader searchdb.Reader, algorithm scoring.Algorithm, queryTerms map[string]int, tags searchdb.Tags, tagExclusive bool) []candidate {
	matched := make(map[uint64]struct{})
	for term := range queryTerms {
		for _, posting := range reader.Postings(term) {
			matched[posting.DocID] = struct{}{}
		}
	}

	candidates := make([]candidate, 0, len(matched))
	for docID := range matched {
		doc, ok := reader.Document(docID)
		if !ok {
			continue
		}
		if !matchesTags(doc.Tags, tags, tagExclusive) {
			continue
		}

		score := scoring.Score(algorithm, queryTerms, scoring.Document{
			TermFreqs: reader.TermFreqs(docID),
			Length:    doc.Length,
		}, reader)
		candidates = append(candidates, candidate{docID: docID, score: score})
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.docID, b.docID)
	})

	return candidates
}

func (s *Service) page(reader searchdb.Reader, candidates []candidate, resultRange Range) []Result {
	start := min(resultRange.Start, len(candidates))
	end := min(resultRange.End, len(candidates))

	results := make([]Result, 0, end-start)
	for rank, c := range candidates[start:end] {
		doc, _ := reader.Document(c.docID)
		results = append(results, Result{
			ID:          rank,
			IndexID:     doc.ID,
			URL:         doc.URL,
			Title:       doc.Title,
			Favicon:     doc.Favicon,
			Description: doc.Description,
			Tags:        doc.Tags,
			Score:       c.score,
			Length:      doc.Length,
		})
	}

	return results
}

// matchesTags keeps documents sharing any requested tag, or all of them when exclusive.
func matchesTags(docTags searchdb.Tags, requested searchdb.Tags, exclusive bool) bool {
	if requested.IsEmpty() {
		return true
	}
	if exclusive {
		return docTags.ContainsAll(requested)
	}
	return docTags.ContainsAny(requested)
}
