package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/meghashyamc/linkindex/apperrors"
)

const (
	DefaultPageSize = 20
	MaxPageWidth    = 1000
)

// Range is a half-open interval of ranks.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) Width() int {
	return r.End - r.Start
}

// ParseRange resolves the range grammar:
//
//	a..b  explicit
//	..b   0..b
//	a..   a..a+pageSize
//	v     v..v+pageSize
//	""    0..pageSize
//
// Reversed bounds are swapped and the width is capped at maxWidth.
func ParseRange(raw string, pageSize int, maxWidth int) (Range, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxWidth <= 0 {
		maxWidth = MaxPageWidth
	}

	raw = strings.TrimSpace(raw)
	var r Range
	switch left, right, isInterval := strings.Cut(raw, ".."); {
	case raw == "":
		r = Range{Start: 0, End: pageSize}
	case !isInterval:
		v, err := parseBound(raw, raw)
		if err != nil {
			return Range{}, err
		}
		r = Range{Start: v, End: saturatingAdd(v, pageSize)}
	default:
		start := 0
		if left != "" {
			var err error
			if start, err = parseBound(raw, left); err != nil {
				return Range{}, err
			}
		}
		if right == "" {
			if left == "" {
				return Range{}, apperrors.Newf(apperrors.ErrInvalidRange, "range '%s' has no bounds", raw)
			}
			r = Range{Start: start, End: saturatingAdd(start, pageSize)}
			break
		}
		end, err := parseBound(raw, right)
		if err != nil {
			return Range{}, err
		}
		r = Range{Start: start, End: end}
	}

	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	if r.Width() > maxWidth {
		r.End = saturatingAdd(r.Start, maxWidth)
	}

	return r, nil
}

func parseBound(raw string, bound string) (int, error) {
	value, err := strconv.ParseUint(bound, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return math.MaxInt, nil
		}
		return 0, apperrors.Newf(apperrors.ErrInvalidRange, "range '%s' must look like a..b, ..b, a.. or a with non-negative integers", raw)
	}
	if value > math.MaxInt {
		return math.MaxInt, nil
	}

	return int(value), nil
}

func saturatingAdd(a int, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
