package metadata

import (
	"strings"
	"time"

	"archivist/internal/library"
)

const galleryDLDate = "2006-1-2 15:04:05"

type galleryDLInfo struct {
	Title        string   `yaml:"title"`
	Language     string   `yaml:"language"`
	Date         string   `yaml:"date"`
	Tags         []string `yaml:"tags"`
	Category     string   `yaml:"category"`
	GalleryID    int64    `yaml:"gallery_id"`
	GalleryToken string   `yaml:"gallery_token"`
}

func applyGalleryDL(content []byte, a *library.Archive, opts Options) error {
	var info galleryDLInfo
	if err := decodeValid(GalleryDL, content, &info); err != nil {
		return err
	}

	setTitle(a, info.Title, opts)
	a.Language = info.Language
	a.ReleasedAt = nil
	if info.Date != "" {
		if t, err := time.ParseInLocation(galleryDLDate, info.Date, time.UTC); err == nil {
			a.ReleasedAt = &t
		}
	}

	if len(info.Tags) > 0 {
		var artists, circles, parodies []string
		var tags []library.Tag
		for _, raw := range info.Tags {
			namespace, value := splitTag(raw)
			if namespace == "language" {
				continue
			}
			if value == "" {
				tags = append(tags, library.Tag{Name: name(namespace, opts), Namespace: "misc"})
				continue
			}
			switch namespace {
			case "artist":
				artists = append(artists, name(value, opts))
			case "group":
				circles = append(circles, name(value, opts))
			case "parody":
				parodies = append(parodies, name(value, opts))
			case "male", "female":
				tags = append(tags, library.Tag{Name: name(value, opts), Namespace: namespace})
			default:
				tags = append(tags, library.Tag{Name: name(value, opts), Namespace: "misc"})
			}
		}
		if len(artists) > 0 {
			a.Artists = artists
		}
		if len(circles) > 0 {
			a.Circles = circles
		}
		if len(parodies) > 0 {
			a.Parodies = parodies
		}
		if len(tags) > 0 {
			a.Tags = tags
		}
	}

	setSource(a, galleryURL(info.Category, info.GalleryID, info.GalleryToken))
	return nil
}

// splitTag splits "namespace:name". Only the first two segments count, so
// "a:b:c" yields ("a", "b").
func splitTag(raw string) (namespace, value string) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) > 1 {
		value = parts[1]
	}
	return parts[0], value
}
