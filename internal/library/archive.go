package library

import (
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Taxonomy kinds stored alongside an archive.
const (
	KindArtist   = "artist"
	KindCircle   = "circle"
	KindMagazine = "magazine"
	KindParody   = "parody"
	KindTag      = "tag"
)

// Tag is a namespaced tag, e.g. {"Glasses", "female"}.
type Tag struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Archive is the stored record, including fields never shown to clients.
type Archive struct {
	ID          int64
	Hash        string
	Title       string
	Slug        string
	Description string
	Path        string
	Pages       int
	Size        int64
	Thumbnail   int
	Language    string
	ReleasedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
	HasMetadata bool

	Artists   []string
	Circles   []string
	Magazines []string
	Parodies  []string
	Tags      []Tag
	Sources   []Source
}

// ArchiveListItem is one entry of a library page.
type ArchiveListItem struct {
	ID         int64      `json:"id"`
	Hash       string     `json:"hash"`
	Title      string     `json:"title"`
	Pages      int        `json:"pages"`
	Thumbnail  int        `json:"thumbnail"`
	ReleasedAt *time.Time `json:"released_at"`
	Artists    []string   `json:"artists"`
	Circles    []string   `json:"circles"`
	Magazines  []string   `json:"magazines"`
	Parodies   []string   `json:"parodies"`
	Tags       []Tag      `json:"tags"`
}

// LibraryPage is the pagination envelope returned by GET /library.
type LibraryPage struct {
	Archives []ArchiveListItem `json:"archives"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
	Total    int               `json:"total"`
}

// NewLibraryPage wraps one page of results. Archives is never nil so the
// envelope always encodes a JSON array.
func NewLibraryPage(archives []ArchiveListItem, page, total int) LibraryPage {
	if archives == nil {
		archives = []ArchiveListItem{}
	}
	return LibraryPage{Archives: archives, Page: page, Limit: PageSize, Total: total}
}

// ArchiveData is the public shape of a single archive.
type ArchiveData struct {
	ID          int64      `json:"id"`
	Hash        string     `json:"hash"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Pages       int        `json:"pages"`
	Size        int64      `json:"size"`
	Thumbnail   int        `json:"thumbnail"`
	Language    string     `json:"language,omitempty"`
	ReleasedAt  *time.Time `json:"released_at"`
	CreatedAt   time.Time  `json:"created_at"`
	HasMetadata bool       `json:"has_metadata"`
	Artists     []string   `json:"artists"`
	Circles     []string   `json:"circles"`
	Magazines   []string   `json:"magazines"`
	Parodies    []string   `json:"parodies"`
	Tags        []Tag      `json:"tags"`
	Sources     []Source   `json:"sources"`
}

var descriptionPolicy = bluemonday.UGCPolicy()

// ToArchiveData maps a stored archive to its public representation. The
// description is user supplied and is sanitized here.
func ToArchiveData(a Archive) ArchiveData {
	return ArchiveData{
		ID:          a.ID,
		Hash:        a.Hash,
		Title:       a.Title,
		Slug:        a.Slug,
		Description: descriptionPolicy.Sanitize(a.Description),
		Pages:       a.Pages,
		Size:        a.Size,
		Thumbnail:   a.Thumbnail,
		Language:    a.Language,
		ReleasedAt:  a.ReleasedAt,
		CreatedAt:   a.CreatedAt,
		HasMetadata: a.HasMetadata,
		Artists:     nonNil(a.Artists),
		Circles:     nonNil(a.Circles),
		Magazines:   nonNil(a.Magazines),
		Parodies:    nonNil(a.Parodies),
		Tags:        nonNil(a.Tags),
		Sources:     nonNil(a.Sources),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
