// Package importer scans a directory of comic archives and saves them to
// the library store.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"archivist/internal/config"
	"archivist/internal/library"
	"archivist/internal/logger"
	"archivist/internal/metadata"
	"archivist/internal/metrics"
)

// HashLength is the number of hex characters kept from the SHA-256 digest.
const HashLength = 24

// Saver persists an archive, upserting by hash.
type Saver interface {
	SaveArchive(ctx context.Context, a *library.Archive) (int64, error)
}

type Importer struct {
	store    Saver
	cfg      config.ImportConfig
	metadata metadata.Options
	// Progress receives the progress bar; nil means stderr.
	Progress io.Writer
}

func New(store Saver, cfg config.ImportConfig, meta config.MetadataConfig) *Importer {
	return &Importer{store: store, cfg: cfg, metadata: meta}
}

// Report summarises one Run.
type Report struct {
	Imported int
	Failed   int
	Failures map[string]error
}

type result struct {
	path string
	err  error
}

// Run imports every archive below dir. Individual failures are logged and
// reported; only an unreadable dir fails the run.
func (im *Importer) Run(ctx context.Context, dir string) (Report, error) {
	files, err := im.scan(dir)
	if err != nil {
		return Report{}, err
	}

	out := im.Progress
	if out == nil {
		out = os.Stderr
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	threads := im.cfg.Threads
	if threads < 1 {
		threads = 1
	}

	jobs := make(chan string)
	results := make(chan result)
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- result{path: path, err: im.importFile(ctx, path)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	report := Report{Failures: map[string]error{}}
	for res := range results {
		if res.err != nil {
			report.Failed++
			report.Failures[res.path] = res.err
			metrics.ImportArchivesTotal.WithLabelValues("failed").Inc()
			logger.For(ctx).WithError(res.err).WithField("path", res.path).Error("import.archive.failed")
		} else {
			report.Imported++
			metrics.ImportArchivesTotal.WithLabelValues("imported").Inc()
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	logger.For(ctx).WithFields(logrus.Fields{
		"dir":      dir,
		"imported": report.Imported,
		"failed":   report.Failed,
	}).Info("import.finished")

	return report, ctx.Err()
}

func (im *Importer) scan(dir string) ([]string, error) {
	exts := make(map[string]bool, len(im.cfg.Extensions))
	for _, e := range im.cfg.Extensions {
		exts[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return files, nil
}

func (im *Importer) importFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	hash, size, err := hashFile(abs)
	if err != nil {
		return err
	}

	contents, err := readArchive(abs)
	if err != nil {
		return err
	}

	title := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	a := library.Archive{
		Hash:  hash,
		Path:  abs,
		Size:  size,
		Pages: len(contents.images),
	}
	if a.Pages > 0 {
		a.Thumbnail = 1
	}
	if im.metadata.ParseFilenameAsTitle {
		title = metadata.ParseFilename(title)
	}
	a.Title = title
	a.Slug = metadata.Slugify(title)

	if format, content, ok := im.findMetadata(abs, contents); ok {
		if err := metadata.Apply(format, content, &a, im.metadata); err != nil {
			logger.For(ctx).WithError(err).WithField("path", abs).Warn("import.metadata.ignored")
		}
	}

	_, err = im.store.SaveArchive(ctx, &a)
	return err
}

// findMetadata prefers a sidecar inside the archive, then <name>.eze.yaml
// and <name>.yaml next to it.
func (im *Importer) findMetadata(path string, contents *archiveContents) (metadata.Format, []byte, bool) {
	if contents.metadata != nil {
		return contents.metadataFormat, contents.metadata, true
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, sibling := range []struct {
		path   string
		format metadata.Format
	}{
		{base + ".eze.yaml", metadata.Eze},
		{base + ".yaml", metadata.GalleryDL},
	} {
		if data, err := os.ReadFile(sibling.path); err == nil {
			return sibling.format, data, true
		}
	}
	return metadata.Unknown, nil, false
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil))[:HashLength], n, nil
}
