package library

import (
	"fmt"
	"strings"
)

// Sorting is the field a library page is ordered by.
type Sorting int

const (
	ReleasedAt Sorting = iota
	Relevance
	CreatedAt
	Title
	Pages
)

// DefaultSorting is used when the client sends no sort or an unknown one.
const DefaultSorting = ReleasedAt

var sortingTokens = map[string]Sorting{
	"relevance":   Relevance,
	"released_at": ReleasedAt,
	"created_at":  CreatedAt,
	"title":       Title,
	"pages":       Pages,
}

// ParseSorting matches s case-insensitively against the known sort tokens.
func ParseSorting(s string) (Sorting, error) {
	token := strings.ToLower(s)
	if v, ok := sortingTokens[token]; ok {
		return v, nil
	}
	return DefaultSorting, fmt.Errorf("invalid sort value '%s'", token)
}

func (s Sorting) String() string {
	switch s {
	case Relevance:
		return "relevance"
	case CreatedAt:
		return "created_at"
	case Title:
		return "title"
	case Pages:
		return "pages"
	default:
		return "released_at"
	}
}

// Ordering is the sort direction.
type Ordering int

const (
	Desc Ordering = iota
	Asc
)

const DefaultOrdering = Desc

// ParseOrdering accepts "asc" or "desc" in any case.
func ParseOrdering(s string) (Ordering, error) {
	token := strings.ToLower(s)
	switch token {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	}
	return DefaultOrdering, fmt.Errorf("invalid ordering value '%s'", token)
}

// String renders the direction as an SQL keyword.
func (o Ordering) String() string {
	if o == Asc {
		return "ASC"
	}
	return "DESC"
}
