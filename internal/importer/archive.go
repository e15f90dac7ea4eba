package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"archivist/internal/metadata"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".avif": true, ".bmp": true, ".jxl": true,
}

// maxMetadataSize caps how much of an embedded sidecar is read.
const maxMetadataSize = 1 << 20

type archiveContents struct {
	images         []string
	metadata       []byte
	metadataFormat metadata.Format
}

// entryName returns the UTF-8 name of a zip entry. Entries without the UTF-8
// flag are decoded as CP437, which is what most Windows zip tools write.
func entryName(f *zip.File) string {
	if !f.NonUTF8 {
		return f.Name
	}
	name, err := charmap.CodePage437.NewDecoder().String(f.Name)
	if err != nil {
		return f.Name
	}
	return name
}

func readArchive(file string) (*archiveContents, error) {
	z, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer z.Close()

	contents := &archiveContents{}
	for _, f := range z.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := entryName(f)
		if strings.HasPrefix(path.Base(name), ".") || strings.HasPrefix(name, "__MACOSX/") {
			continue
		}

		if imageExtensions[strings.ToLower(path.Ext(name))] {
			contents.images = append(contents.images, name)
			continue
		}

		if format := metadata.Detect(name); format != metadata.Unknown && contents.metadata == nil {
			data, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			contents.metadata = data
			contents.metadataFormat = format
		}
	}
	sort.Strings(contents.images)
	return contents, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxMetadataSize))
}
