package sqlite

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/library"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archivist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(d int) *time.Time {
	t := time.Date(2020, 1, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func seed(t *testing.T, s *Store, archives ...library.Archive) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(archives))
	for i := range archives {
		a := archives[i]
		if a.Hash == "" {
			a.Hash = fmt.Sprintf("hash-%d", i)
		}
		if a.Path == "" {
			a.Path = "/data/" + a.Hash + ".cbz"
		}
		id, err := s.SaveArchive(context.Background(), &a)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func titles(items []library.ArchiveListItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func search(t *testing.T, s *Store, q library.SearchQuery) ([]library.ArchiveListItem, int) {
	t.Helper()
	if q.Page == 0 {
		q.Page = 1
	}
	items, total, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	return items, total
}

func TestSearchDefaultOrderIsReleasedAtDesc(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		library.Archive{Title: "Old", ReleasedAt: day(1)},
		library.Archive{Title: "Unreleased"},
		library.Archive{Title: "New", ReleasedAt: day(9)},
	)

	items, total := search(t, s, library.ResolveSearchQuery(library.Params{}))
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"New", "Old", "Unreleased"}, titles(items))

	items, _ = search(t, s, library.SearchQuery{Sort: library.ReleasedAt, Order: library.Asc})
	assert.Equal(t, []string{"Old", "New", "Unreleased"}, titles(items))
}

func TestSearchSortFields(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		library.Archive{Title: "banana", Pages: 10},
		library.Archive{Title: "Apple", Pages: 30},
		library.Archive{Title: "cherry", Pages: 20},
	)

	items, _ := search(t, s, library.SearchQuery{Sort: library.Title, Order: library.Asc})
	assert.Equal(t, []string{"Apple", "banana", "cherry"}, titles(items))

	items, _ = search(t, s, library.SearchQuery{Sort: library.Pages, Order: library.Desc})
	assert.Equal(t, []string{"Apple", "cherry", "banana"}, titles(items))

	items, _ = search(t, s, library.SearchQuery{Sort: library.CreatedAt, Order: library.Asc})
	assert.Len(t, items, 3)
}

func TestSearchPagination(t *testing.T) {
	s := newTestStore(t)
	var archives []library.Archive
	for i := 0; i < library.PageSize+5; i++ {
		archives = append(archives, library.Archive{Title: fmt.Sprintf("A%02d", i), Pages: i})
	}
	seed(t, s, archives...)

	items, total := search(t, s, library.SearchQuery{Page: 1, Sort: library.Pages, Order: library.Asc})
	assert.Equal(t, library.PageSize+5, total)
	assert.Len(t, items, library.PageSize)
	assert.Equal(t, "A00", items[0].Title)

	items, total = search(t, s, library.SearchQuery{Page: 2, Sort: library.Pages, Order: library.Asc})
	assert.Equal(t, library.PageSize+5, total)
	assert.Equal(t, []string{"A24", "A25", "A26", "A27", "A28"}, titles(items))

	items, total = search(t, s, library.SearchQuery{Page: 50})
	assert.Equal(t, library.PageSize+5, total)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	for _, page := range []int{math.MaxInt / library.PageSize, math.MaxInt/library.PageSize + 2, 500000000000000000, math.MaxInt} {
		items, total = search(t, s, library.SearchQuery{Page: page})
		assert.Equal(t, library.PageSize+5, total, page)
		assert.Empty(t, items, page)
	}
}

func TestSearchTerms(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		library.Archive{
			Title:   "Summer Festival",
			Artists: []string{"Kana"},
			Tags:    []library.Tag{{Name: "Swimsuit", Namespace: "female"}},
		},
		library.Archive{
			Title:    "Winter Story",
			Artists:  []string{"Yuki"},
			Parodies: []string{"Original"},
			Tags:     []library.Tag{{Name: "Glasses", Namespace: "female"}},
			Sources:  []library.Source{{Name: "Example", URL: "https://example.org/g/1"}},
			Language: "english",
		},
		library.Archive{Title: "100% Summer_Sale", Circles: []string{"Circle One"}},
	)

	cases := []struct {
		q    string
		want []string
	}{
		{"summer", []string{"100% Summer_Sale", "Summer Festival"}},
		{"SUMMER festival", []string{"Summer Festival"}},
		{"kana", []string{"Summer Festival"}},
		{"artist:yuki", []string{"Winter Story"}},
		{"-artist:yuki", []string{"100% Summer_Sale", "Summer Festival"}},
		{"female:glasses", []string{"Winter Story"}},
		{"male:glasses", nil},
		{"tag:swim", []string{"Summer Festival"}},
		{`circle:"circle one"`, []string{"100% Summer_Sale"}},
		{"parody:original", []string{"Winter Story"}},
		{"language:english", []string{"Winter Story"}},
		{"source:example.org", []string{"Winter Story"}},
		{"title:story", []string{"Winter Story"}},
		{"100%", []string{"100% Summer_Sale"}},
		{"r_s", []string{"100% Summer_Sale"}},
		{"nothing-matches", nil},
	}
	for _, tc := range cases {
		t.Run(tc.q, func(t *testing.T) {
			items, total := search(t, s, library.SearchQuery{Value: tc.q, Sort: library.Title, Order: library.Asc})
			assert.Equal(t, len(tc.want), total)
			if tc.want == nil {
				assert.Empty(t, items)
				return
			}
			assert.Equal(t, tc.want, titles(items))
		})
	}
}

func TestSearchRelevance(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		library.Archive{Title: "Plain", Tags: []library.Tag{{Name: "Cat", Namespace: "misc"}}},
		library.Archive{Title: "Cat Cafe", Tags: []library.Tag{{Name: "Cat", Namespace: "misc"}}},
		library.Archive{Title: "Cat Only"},
	)

	items, _ := search(t, s, library.SearchQuery{Value: "cat", Sort: library.Relevance, Order: library.Desc})
	assert.Equal(t, []string{"Cat Cafe", "Cat Only", "Plain"}, titles(items))
}

func TestSearchLoadsTaxonomies(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, library.Archive{
		Title:     "Full",
		Artists:   []string{"A1", "A2"},
		Circles:   []string{"C"},
		Magazines: []string{"M"},
		Parodies:  []string{"P"},
		Tags:      []library.Tag{{Name: "T", Namespace: "misc"}},
	}, library.Archive{Title: "Bare"})

	items, _ := search(t, s, library.SearchQuery{Sort: library.Title, Order: library.Asc})
	require.Len(t, items, 2)

	assert.Equal(t, []string{}, items[0].Artists)
	assert.Equal(t, []library.Tag{}, items[0].Tags)
	assert.Equal(t, []string{"A1", "A2"}, items[1].Artists)
	assert.Equal(t, []string{"C"}, items[1].Circles)
	assert.Equal(t, []string{"M"}, items[1].Magazines)
	assert.Equal(t, []string{"P"}, items[1].Parodies)
	assert.Equal(t, []library.Tag{{Name: "T", Namespace: "misc"}}, items[1].Tags)
}

func TestFetchArchiveData(t *testing.T) {
	s := newTestStore(t)
	ids := seed(t, s, library.Archive{
		Hash:        "deadbeef",
		Title:       "Fetched",
		Slug:        "fetched",
		Description: "desc",
		Pages:       12,
		Size:        2048,
		Thumbnail:   2,
		Language:    "japanese",
		ReleasedAt:  day(3),
		HasMetadata: true,
		Artists:     []string{"X"},
		Sources:     []library.Source{{Name: "Site", URL: "https://site.test/1"}},
	})

	a, err := s.FetchArchiveData(context.Background(), ids[0])
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "deadbeef", a.Hash)
	assert.Equal(t, "Fetched", a.Title)
	assert.Equal(t, "desc", a.Description)
	assert.Equal(t, 12, a.Pages)
	assert.Equal(t, int64(2048), a.Size)
	assert.Equal(t, "japanese", a.Language)
	assert.True(t, a.HasMetadata)
	assert.True(t, a.ReleasedAt.Equal(*day(3)))
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, []string{"X"}, a.Artists)
	assert.Equal(t, []library.Source{{Name: "Site", URL: "https://site.test/1"}}, a.Sources)
}

func TestFetchArchiveDataMissing(t *testing.T) {
	s := newTestStore(t)

	a, err := s.FetchArchiveData(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestDeletedArchivesAreHidden(t *testing.T) {
	s := newTestStore(t)
	ids := seed(t, s, library.Archive{Title: "Gone"}, library.Archive{Title: "Kept"})
	require.NoError(t, s.DeleteArchive(context.Background(), ids[0]))

	a, err := s.FetchArchiveData(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Nil(t, a)

	items, total := search(t, s, library.SearchQuery{})
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"Kept"}, titles(items))
}

func TestSaveArchiveUpsertsByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := library.Archive{Hash: "same", Title: "First", Path: "/a", Artists: []string{"Old"}}
	id1, err := s.SaveArchive(ctx, &first)
	require.NoError(t, err)
	require.NoError(t, s.DeleteArchive(ctx, id1))

	second := library.Archive{Hash: "same", Title: "Second", Path: "/b", Artists: []string{"New"}}
	id2, err := s.SaveArchive(ctx, &second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	a, err := s.FetchArchiveData(ctx, id2)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Second", a.Title)
	assert.Equal(t, []string{"New"}, a.Artists)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	seed(t, s, library.Archive{Title: "Mem"})
	_, total := search(t, s, library.SearchQuery{})
	assert.Equal(t, 1, total)
}
