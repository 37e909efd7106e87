// Package index is the ingestion pipeline: it validates a submitted link,
// backfills missing metadata, tokenizes the text and upserts the document.
package index

import (
	"context"
	"net/url"
	"strings"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/services/enrich"
	"github.com/meghashyamc/linkindex/services/tokenize"
)

const (
	DefaultMaxTitleLength       = 100
	DefaultMaxDescriptionLength = 100
)

type Options struct {
	MaxTitleLength       int
	MaxDescriptionLength int
}

type Service struct {
	logger    logger.Logger
	db        searchdb.DB
	tokenizer tokenize.Tokenizer
	enricher  enrich.Enricher
	options   Options
}

type Request struct {
	URL         string
	Title       *string
	Favicon     *string
	Description *string
	Tags        []string
}

type Result struct {
	Document searchdb.Document
	Created  bool
}

func New(logger logger.Logger, db searchdb.DB, tokenizer tokenize.Tokenizer, enricher enrich.Enricher, options Options) *Service {
	if enricher == nil {
		enricher = enrich.Noop{}
	}
	if options.MaxTitleLength <= 0 {
		options.MaxTitleLength = DefaultMaxTitleLength
	}
	if options.MaxDescriptionLength <= 0 {
		options.MaxDescriptionLength = DefaultMaxDescriptionLength
	}

	return &Service{
		logger:    logger,
		db:        db,
		tokenizer: tokenizer,
		enricher:  enricher,
		options:   options,
	}
}

// Add ingests one link. Re-adding a known URL replaces its metadata, tags and
// postings while keeping its id. Enrichment failures leave fields nil; a
// tokenizer failure aborts the add without touching the index.
func (s *Service) Add(ctx context.Context, request Request) (*Result, error) {
	canonicalURL, err := CanonicalURL(request.URL)
	if err != nil {
		return nil, err
	}

	tags, err := searchdb.ParseTags(request.Tags)
	if err != nil {
		return nil, err
	}

	title := nonBlank(request.Title)
	description := nonBlank(request.Description)
	favicon := nonBlank(request.Favicon)

	if title == nil || description == nil {
		metadata, err := s.enricher.Enrich(ctx, canonicalURL)
		if err != nil {
			s.logger.Warn("enrichment failed, continuing without it", "url", canonicalURL, "err", err.Error())
		} else if metadata != nil {
			title = fallback(title, metadata.Title)
			description = fallback(description, metadata.Description)
			favicon = fallback(favicon, metadata.Favicon)
		}
	}

	terms, err := s.tokenizer.Tokenize(ctx, indexableText(title, description))
	if err != nil {
		s.logger.Error("failed to tokenize document", "url", canonicalURL, "err", err.Error())
		return nil, err
	}

	doc, created, err := s.db.Upsert(searchdb.Document{
		URL:         canonicalURL,
		Title:       truncate(title, s.options.MaxTitleLength),
		Favicon:     favicon,
		Description: truncate(description, s.options.MaxDescriptionLength),
		Tags:        tags,
	}, tokenize.TermCounts(terms))
	if err != nil {
		s.logger.Error("failed to upsert document", "url", canonicalURL, "err", err.Error())
		return nil, err
	}

	s.logger.Info("added document", "id", doc.ID, "url", doc.URL, "created", created, "length", doc.Length)
	return &Result{Document: doc, Created: created}, nil
}

// CanonicalURL accepts absolute http(s) URLs, lowercases scheme and host and
// drops the fragment.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.New(apperrors.ErrInvalidDocument, "url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrInvalidDocument, "malformed url '%s': %s", raw, err.Error())
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", apperrors.Newf(apperrors.ErrInvalidDocument, "url '%s' must use http or https", raw)
	}
	if parsed.Host == "" {
		return "", apperrors.Newf(apperrors.ErrInvalidDocument, "url '%s' has no host", raw)
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}

func indexableText(title *string, description *string) string {
	var parts []string
	if title != nil {
		parts = append(parts, *title)
	}
	if description != nil {
		parts = append(parts, *description)
	}
	return strings.Join(parts, "\n")
}

func nonBlank(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func fallback(value *string, alternative *string) *string {
	if value != nil {
		return value
	}
	return nonBlank(alternative)
}

// truncate cuts value to at most limit runes.
func truncate(value *string, limit int) *string {
	if value == nil {
		return nil
	}
	runes := []rune(*value)
	if len(runes) <= limit {
		return value
	}
	truncated := string(runes[:limit])
	return &truncated
}
