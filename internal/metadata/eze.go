package metadata

import (
	"time"

	"archivist/internal/library"
)

type ezeSource struct {
	Site  string `yaml:"site"`
	GID   int64  `yaml:"gid"`
	Token string `yaml:"token"`
}

type ezeInfo struct {
	Title      string              `yaml:"title"`
	Language   string              `yaml:"language"`
	UploadDate []int               `yaml:"upload_date"`
	Tags       map[string][]string `yaml:"tags"`
	Source     *ezeSource          `yaml:"source"`
}

// releasedAt converts [year, month0, day, hour, minute, second]. Any zero
// component means the date is unknown.
func (i ezeInfo) releasedAt() *time.Time {
	if len(i.UploadDate) != 6 {
		return nil
	}
	for _, v := range i.UploadDate {
		if v == 0 {
			return nil
		}
	}
	d := i.UploadDate
	t := time.Date(d[0], time.Month(d[1]+1), d[2], d[3], d[4], d[5], 0, time.UTC)
	return &t
}

func applyEze(content []byte, a *library.Archive, opts Options) error {
	var info ezeInfo
	if err := decodeValid(Eze, content, &info); err != nil {
		return err
	}

	setTitle(a, info.Title, opts)
	a.Language = info.Language
	if t := info.releasedAt(); t != nil {
		a.ReleasedAt = t
	}

	if info.Tags != nil {
		a.Artists = names(info.Tags["artist"], opts)
		a.Circles = names(info.Tags["group"], opts)
		a.Parodies = names(info.Tags["parody"], opts)

		var tags []library.Tag
		for _, ns := range []string{"male", "female", "misc"} {
			for _, v := range info.Tags[ns] {
				tags = append(tags, library.Tag{Name: name(v, opts), Namespace: ns})
			}
		}
		if len(tags) > 0 {
			a.Tags = tags
		}
	}

	if info.Source != nil {
		setSource(a, galleryURL(info.Source.Site, info.Source.GID, info.Source.Token))
	}
	return nil
}
