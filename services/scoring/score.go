package scoring

import (
	"maps"
	"math"
	"slices"
)

// Statistics are the corpus-wide figures a score depends on.
type Statistics interface {
	DocCount() int
	AvgDocLength() float64
	DocFreq(term string) int
}

// Document is the per-document input to a score: its full term vector and length.
type Document struct {
	TermFreqs map[string]int
	Length    int
}

// Score evaluates the algorithm for one document. query maps each distinct
// query term to its frequency in the query. The result is always finite and >= 0.
// Terms are summed in sorted order, so equal inputs give bit-identical scores.
func Score(algorithm Algorithm, query map[string]int, doc Document, stats Statistics) float64 {
	var score float64
	switch algorithm.Kind {
	case KindTFIDF:
		score = tfidf(query, doc, stats)
	case KindBM25:
		score = bm25(algorithm, query, doc, stats, 0)
	case KindBM25Plus:
		score = bm25(algorithm, query, doc, stats, algorithm.Delta)
	case KindCosine:
		score = cosine(query, doc, stats)
	}

	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	return score
}

// smoothedIDF is ln((1+N)/(1+df)) + 1. Unseen terms weigh nothing.
func smoothedIDF(docCount int, docFreq int) float64 {
	if docFreq <= 0 {
		return 0
	}
	return math.Log(float64(1+docCount)/float64(1+docFreq)) + 1
}

// probabilisticIDF is the non-negative BM25 idf ln(1 + (N-df+0.5)/(df+0.5)).
func probabilisticIDF(docCount int, docFreq int) float64 {
	if docFreq <= 0 {
		return 0
	}
	n := float64(docCount)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func tfidf(query map[string]int, doc Document, stats Statistics) float64 {
	var score float64
	docCount := stats.DocCount()
	for _, term := range sortedTerms(query) {
		tf := doc.TermFreqs[term]
		if tf <= 0 {
			continue
		}
		score += float64(tf) * smoothedIDF(docCount, stats.DocFreq(term))
	}
	return score
}

func bm25(algorithm Algorithm, query map[string]int, doc Document, stats Statistics, delta float64) float64 {
	docCount := stats.DocCount()
	lengthRatio := 1.0
	if avgDocLength := stats.AvgDocLength(); avgDocLength > 0 {
		lengthRatio = float64(doc.Length) / avgDocLength
	}
	norm := algorithm.K1 * (1 - algorithm.B + algorithm.B*lengthRatio)

	var score float64
	for _, term := range sortedTerms(query) {
		tf := float64(doc.TermFreqs[term])
		if tf <= 0 {
			continue
		}
		idf := probabilisticIDF(docCount, stats.DocFreq(term))
		score += idf * (tf*(algorithm.K1+1)/(tf+norm) + delta)
	}
	return score
}

// cosine compares idf weighted term vectors of the query and the whole document.
func cosine(query map[string]int, doc Document, stats Statistics) float64 {
	docCount := stats.DocCount()
	idfs := make(map[string]float64, len(doc.TermFreqs)+len(query))
	idf := func(term string) float64 {
		if value, ok := idfs[term]; ok {
			return value
		}
		value := smoothedIDF(docCount, stats.DocFreq(term))
		idfs[term] = value
		return value
	}

	var dot, queryNorm, docNorm float64
	for _, term := range sortedTerms(query) {
		weight := float64(query[term]) * idf(term)
		queryNorm += weight * weight
		if tf := doc.TermFreqs[term]; tf > 0 {
			dot += weight * float64(tf) * idf(term)
		}
	}
	for _, term := range sortedTerms(doc.TermFreqs) {
		weight := float64(doc.TermFreqs[term]) * idf(term)
		docNorm += weight * weight
	}

	if dot == 0 || queryNorm == 0 || docNorm == 0 {
		return 0
	}
	return min(dot/(math.Sqrt(queryNorm)*math.Sqrt(docNorm)), 1)
}

func sortedTerms(termFreqs map[string]int) []string {
	return slices.Sorted(maps.Keys(termFreqs))
}
