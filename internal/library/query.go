package library

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// PageSize is the fixed number of archives on a library page.
const PageSize = 24

// Params is the flattened query string of a library request.
type Params map[string]string

// ParamsFromValues keeps the first value of every key.
func ParamsFromValues(v url.Values) Params {
	out := make(Params, len(v))
	for key, values := range v {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

// SearchQuery is a fully resolved library search.
type SearchQuery struct {
	Value string
	Page  int
	Sort  Sorting
	Order Ordering
}

// Offset is the number of rows skipped before the current page. It
// saturates at math.MaxInt for pages too large to address.
func (q SearchQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * PageSize
}

// ParseOr looks key up in params and parses it, returning fallback when the
// key is absent or parse fails.
func ParseOr[T any](params Params, key string, parse func(string) (T, error), fallback T) T {
	raw, ok := params[key]
	if !ok {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

// ParsePage accepts a base-10 integer of at least 1.
func ParsePage(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid page value '%s': %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid page value '%s': must be positive", s)
	}
	return n, nil
}

func parseValue(s string) (string, error) { return s, nil }

// Resolver turns request parameters into a SearchQuery. Invalid values never
// fail the request; OnInvalid, when set, is told about each one.
type Resolver struct {
	OnInvalid func(key, raw string, err error)
}

func (r Resolver) Resolve(params Params) SearchQuery {
	return SearchQuery{
		Value: ParseOr(params, "q", parseValue, ""),
		Page:  ParseOr(params, "page", observe(r, "page", ParsePage), 1),
		Sort:  ParseOr(params, "sort", observe(r, "sort", ParseSorting), DefaultSorting),
		Order: ParseOr(params, "order", observe(r, "order", ParseOrdering), DefaultOrdering),
	}
}

// ResolveSearchQuery resolves params without reporting invalid values.
func ResolveSearchQuery(params Params) SearchQuery {
	return Resolver{}.Resolve(params)
}

func observe[T any](r Resolver, key string, parse func(string) (T, error)) func(string) (T, error) {
	if r.OnInvalid == nil {
		return parse
	}
	return func(raw string) (T, error) {
		v, err := parse(raw)
		if err != nil {
			r.OnInvalid(key, raw, err)
		}
		return v, err
	}
}
