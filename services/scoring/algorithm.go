// Package scoring ranks a document against a tokenized query.
package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/meghashyamc/linkindex/apperrors"
)

type Kind int

const (
	KindTFIDF Kind = iota
	KindBM25
	KindBM25Plus
	KindCosine
)

// String is the bare algorithm name, without parameters.
func (k Kind) String() string {
	switch k {
	case KindTFIDF:
		return "TFIDF"
	case KindBM25:
		return "BM25"
	case KindBM25Plus:
		return "BM25plus"
	case KindCosine:
		return "Cosine"
	default:
		return "unknown"
	}
}

const (
	DefaultK1    = 1.2
	DefaultB     = 0.75
	DefaultDelta = 0.5
)

// Algorithm is a parsed scoring spec. K1 and B apply to the BM25 kinds, Delta to BM25plus.
type Algorithm struct {
	Kind  Kind
	K1    float64
	B     float64
	Delta float64
}

func Default() Algorithm {
	return Algorithm{Kind: KindBM25, K1: DefaultK1, B: DefaultB}
}

var kindsByName = map[string]Kind{
	"tfidf":            KindTFIDF,
	"tf-idf":           KindTFIDF,
	"tf_idf":           KindTFIDF,
	"bm25":             KindBM25,
	"bm25plus":         KindBM25Plus,
	"bm25+":            KindBM25Plus,
	"cosine":           KindCosine,
	"cosinesimilarity": KindCosine,
}

// Parse reads specs such as "BM25(1.2,0.75)", "BM25plus()", "Cosine" or "TFIDF".
// Names are case-insensitive and omitted trailing parameters take their defaults.
// A blank spec resolves to Default.
func Parse(spec string) (Algorithm, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Default(), nil
	}

	name, rawParams, hasParams := strings.Cut(spec, "(")
	name = strings.ToLower(strings.TrimSpace(name))
	kind, ok := kindsByName[name]
	if !ok {
		return Algorithm{}, apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "unknown algorithm '%s', expected one of TFIDF, BM25, BM25plus, Cosine", spec)
	}

	var params []float64
	if hasParams {
		var err error
		if params, err = parseParams(spec, rawParams); err != nil {
			return Algorithm{}, err
		}
	}

	algorithm := Algorithm{Kind: kind}
	switch kind {
	case KindTFIDF, KindCosine:
		if len(params) > 0 {
			return Algorithm{}, apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "%s takes no parameters", algorithm)
		}
	case KindBM25:
		if len(params) > 2 {
			return Algorithm{}, apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "BM25 takes at most 2 parameters (k1, b), got %d", len(params))
		}
		algorithm.K1 = paramOr(params, 0, DefaultK1)
		algorithm.B = paramOr(params, 1, DefaultB)
	case KindBM25Plus:
		if len(params) > 3 {
			return Algorithm{}, apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "BM25plus takes at most 3 parameters (k1, b, delta), got %d", len(params))
		}
		algorithm.K1 = paramOr(params, 0, DefaultK1)
		algorithm.B = paramOr(params, 1, DefaultB)
		algorithm.Delta = paramOr(params, 2, DefaultDelta)
	}

	if err := algorithm.validate(); err != nil {
		return Algorithm{}, err
	}

	return algorithm, nil
}

func parseParams(spec string, rawParams string) ([]float64, error) {
	inner, ok := strings.CutSuffix(strings.TrimSpace(rawParams), ")")
	if !ok || strings.ContainsAny(inner, "()") {
		return nil, apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "malformed parameter list in '%s'", spec)
	}
	if strings.TrimSpace(inner) == "" {
		return nil, nil
	}

	parts := strings.Split(inner, ",")
	params := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "parameter '%s' in '%s' is not a number", strings.TrimSpace(part), spec)
		}
		params = append(params, value)
	}

	return params, nil
}

func paramOr(params []float64, i int, fallback float64) float64 {
	if i < len(params) {
		return params[i]
	}
	return fallback
}

func (a Algorithm) validate() error {
	if a.Kind != KindBM25 && a.Kind != KindBM25Plus {
		return nil
	}
	if a.K1 < 0 {
		return apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "k1 must be >= 0, got %g", a.K1)
	}
	if a.B < 0 || a.B > 1 {
		return apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "b must be within [0, 1], got %g", a.B)
	}
	if a.Delta < 0 {
		return apperrors.Newf(apperrors.ErrInvalidAlgorithmSpec, "delta must be >= 0, got %g", a.Delta)
	}
	return nil
}

// String renders the canonical spec, which Parse accepts.
func (a Algorithm) String() string {
	switch a.Kind {
	case KindTFIDF:
		return "TFIDF"
	case KindBM25:
		return "BM25(" + formatParams(a.K1, a.B) + ")"
	case KindBM25Plus:
		return "BM25plus(" + formatParams(a.K1, a.B, a.Delta) + ")"
	case KindCosine:
		return "Cosine"
	default:
		return "unknown"
	}
}

func formatParams(values ...float64) string {
	formatted := make([]string, len(values))
	for i, value := range values {
		formatted[i] = strconv.FormatFloat(value, 'g', -1, 64)
	}
	return strings.Join(formatted, ",")
}
