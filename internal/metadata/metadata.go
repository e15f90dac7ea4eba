// Package metadata turns sidecar YAML files written by gallery downloaders
// into archive fields.
package metadata

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"archivist/internal/config"
	"archivist/internal/library"
)

type Format string

const (
	Unknown   Format = ""
	GalleryDL Format = "gallery-dl"
	Eze       Format = "eze"
)

var (
	ErrInvalid       = errors.New("invalid metadata")
	ErrUnknownFormat = errors.New("unknown metadata format")
)

// Options is the metadata section of the configuration.
type Options = config.MetadataConfig

// Detect picks a format from a file name. Directories are ignored.
func Detect(name string) Format {
	switch strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/"))) {
	case "info.yaml":
		return GalleryDL
	case "info.eze.yaml", "metadata.yaml":
		return Eze
	}
	return Unknown
}

// Apply parses content in the given format and writes the result into a.
// a is left untouched when parsing fails.
func Apply(format Format, content []byte, a *library.Archive, opts Options) error {
	next := *a
	var err error
	switch format {
	case GalleryDL:
		err = applyGalleryDL(content, &next, opts)
	case Eze:
		err = applyEze(content, &next, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", format, err)
	}

	next.HasMetadata = true
	*a = next
	return nil
}

func setTitle(a *library.Archive, title string, opts Options) {
	if opts.ParseFilenameAsTitle {
		title = ParseFilename(title)
	}
	a.Title = title
	a.Slug = Slugify(title)
}

func name(s string, opts Options) string {
	if opts.CapitalizeTags {
		return Capitalize(s)
	}
	return s
}

func names(values []string, opts Options) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = name(v, opts)
	}
	return out
}

// galleryURL returns the gallery page of an e-hentai family site, or "".
func galleryURL(site string, id int64, token string) string {
	switch site {
	case "e-hentai", "exhentai":
		return fmt.Sprintf("https://%s.org/g/%d/%s", site, id, token)
	}
	return ""
}

func setSource(a *library.Archive, url string) {
	if url == "" {
		return
	}
	a.Sources = []library.Source{{Name: SourceName(url), URL: url}}
}
