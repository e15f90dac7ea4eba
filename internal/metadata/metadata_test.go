package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/library"
)

func TestDetect(t *testing.T) {
	tests := map[string]Format{
		"info.yaml":          GalleryDL,
		"INFO.YAML":          GalleryDL,
		"gallery/info.yaml":  GalleryDL,
		"info.eze.yaml":      Eze,
		"dir\\metadata.yaml": Eze,
		"ComicInfo.xml":      Unknown,
		"001.png":            Unknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, Detect(name), name)
	}
}

const galleryDLContent = `
title: "[Circle] Great Title [English]"
language: english
date: "2021-3-4 05:06:07"
tags:
  - artist:john doe
  - group:the circle
  - parody:original
  - female:glasses
  - male:muscle
  - language:english
  - other:full color
  - lonely
category: e-hentai
gallery_id: 12345
gallery_token: abcdef
`

func TestApplyGalleryDL(t *testing.T) {
	a := library.Archive{Title: "fallback", Path: "/x.cbz"}
	err := Apply(GalleryDL, []byte(galleryDLContent), &a, Options{CapitalizeTags: true, ParseFilenameAsTitle: true})
	require.NoError(t, err)

	assert.Equal(t, "Great Title", a.Title)
	assert.Equal(t, "great-title", a.Slug)
	assert.Equal(t, "english", a.Language)
	require.NotNil(t, a.ReleasedAt)
	assert.Equal(t, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), *a.ReleasedAt)
	assert.Equal(t, []string{"John Doe"}, a.Artists)
	assert.Equal(t, []string{"The Circle"}, a.Circles)
	assert.Equal(t, []string{"Original"}, a.Parodies)
	assert.Equal(t, []library.Tag{
		{Name: "Glasses", Namespace: "female"},
		{Name: "Muscle", Namespace: "male"},
		{Name: "Full Color", Namespace: "misc"},
		{Name: "Lonely", Namespace: "misc"},
	}, a.Tags)
	assert.Equal(t, []library.Source{{Name: "E-Hentai", URL: "https://e-hentai.org/g/12345/abcdef"}}, a.Sources)
	assert.True(t, a.HasMetadata)
	assert.Equal(t, "/x.cbz", a.Path)
}

func TestApplyGalleryDLRawTitle(t *testing.T) {
	var a library.Archive
	content := "title: \"[Circle] Kept As Is\"\ncategory: nhentai\ngallery_id: 1\n"
	require.NoError(t, Apply(GalleryDL, []byte(content), &a, Options{}))

	assert.Equal(t, "[Circle] Kept As Is", a.Title)
	assert.Equal(t, "circle-kept-as-is", a.Slug)
	assert.Nil(t, a.ReleasedAt)
	assert.Empty(t, a.Sources)
}

func TestApplyGalleryDLExtraColons(t *testing.T) {
	var a library.Archive
	content := "title: x\ntags:\n  - female:cat:ears\n  - artist:someone:else\n  - language:english:translated\n"
	require.NoError(t, Apply(GalleryDL, []byte(content), &a, Options{}))

	assert.Equal(t, []string{"someone"}, a.Artists)
	assert.Equal(t, []library.Tag{{Name: "cat", Namespace: "female"}}, a.Tags)
}

func TestSplitTag(t *testing.T) {
	tests := []struct{ raw, namespace, value string }{
		{"female:glasses", "female", "glasses"},
		{"lonely", "lonely", ""},
		{"a:b:c", "a", "b"},
		{"group:", "group", ""},
	}
	for _, tt := range tests {
		ns, v := splitTag(tt.raw)
		assert.Equal(t, tt.namespace, ns, tt.raw)
		assert.Equal(t, tt.value, v, tt.raw)
	}
}

const ezeContent = `
title: Eze Title
language: japanese
upload_date: [2020, 4, 15, 10, 20, 30]
tags:
  artist: [someone]
  group: [crew]
  female: [stockings]
  misc: [uncensored]
source:
  site: exhentai
  gid: 999
  token: tok
`

func TestApplyEze(t *testing.T) {
	var a library.Archive
	require.NoError(t, Apply(Eze, []byte(ezeContent), &a, Options{}))

	assert.Equal(t, "Eze Title", a.Title)
	assert.Equal(t, "eze-title", a.Slug)
	assert.Equal(t, "japanese", a.Language)
	require.NotNil(t, a.ReleasedAt)
	assert.Equal(t, time.Date(2020, 5, 15, 10, 20, 30, 0, time.UTC), *a.ReleasedAt)
	assert.Equal(t, []string{"someone"}, a.Artists)
	assert.Equal(t, []string{"crew"}, a.Circles)
	assert.Nil(t, a.Parodies)
	assert.Equal(t, []library.Tag{
		{Name: "stockings", Namespace: "female"},
		{Name: "uncensored", Namespace: "misc"},
	}, a.Tags)
	assert.Equal(t, []library.Source{{Name: "ExHentai", URL: "https://exhentai.org/g/999/tok"}}, a.Sources)
	assert.True(t, a.HasMetadata)
}

func TestApplyEzeIncompleteDate(t *testing.T) {
	prev := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	a := library.Archive{ReleasedAt: &prev}
	require.NoError(t, Apply(Eze, []byte("title: x\nupload_date: [2020, 0, 1, 0, 0, 0]\n"), &a, Options{}))

	assert.Equal(t, prev, *a.ReleasedAt)
}

func TestApplyInvalid(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		content string
	}{
		{"missing title", GalleryDL, "language: english\n"},
		{"tags not a list", GalleryDL, "title: x\ntags: nope\n"},
		{"gallery id not a number", GalleryDL, "title: x\ngallery_id: abc\n"},
		{"empty document", Eze, ""},
		{"broken yaml", Eze, "title: [unclosed\n"},
		{"source without gid", Eze, "title: x\nsource:\n  site: exhentai\n  token: t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := library.Archive{Title: "untouched"}
			err := Apply(tt.format, []byte(tt.content), &a, Options{})
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Equal(t, "untouched", a.Title)
			assert.False(t, a.HasMetadata)
		})
	}
}

func TestApplyUnknownFormat(t *testing.T) {
	var a library.Archive
	assert.ErrorIs(t, Apply(Unknown, []byte("title: x"), &a, Options{}), ErrUnknownFormat)
}
