package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"archivist/internal/library"
)

// Store is the SQLite-backed archive library.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS archives (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		title_search TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		description TEXT,
		path TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		thumbnail INTEGER NOT NULL DEFAULT 1,
		language TEXT,
		released_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT,
		has_metadata INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS archive_taxonomies (
		archive_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		namespace TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		name_search TEXT NOT NULL,
		FOREIGN KEY (archive_id) REFERENCES archives(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS archive_sources (
		archive_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		FOREIGN KEY (archive_id) REFERENCES archives(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_archives_released_at ON archives(released_at);
	CREATE INDEX IF NOT EXISTS idx_archives_created_at ON archives(created_at);
	CREATE INDEX IF NOT EXISTS idx_taxonomies_archive ON archive_taxonomies(archive_id);
	CREATE INDEX IF NOT EXISTS idx_taxonomies_kind_name ON archive_taxonomies(kind, name_search);
	CREATE INDEX IF NOT EXISTS idx_sources_archive ON archive_sources(archive_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Search returns one page of live archives matching q and the total number
// of matches.
func (s *Store) Search(ctx context.Context, q library.SearchQuery) ([]library.ArchiveListItem, int, error) {
	f := buildFilter(library.ParseTerms(q.Value))

	var total int
	countQuery := "SELECT COUNT(*) FROM archives a WHERE " + f.where()
	if err := s.db.QueryRowContext(ctx, countQuery, f.whereArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count archives: %w", err)
	}
	if total == 0 || q.Page > (total+library.PageSize-1)/library.PageSize {
		return []library.ArchiveListItem{}, total, nil
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.hash, a.title, a.pages, a.thumbnail, a.released_at, %s AS relevance
		FROM archives a
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?`, f.score(), f.where(), orderBy(q.Sort, q.Order))

	args := make([]any, 0, len(f.scoreArgs)+len(f.whereArgs)+2)
	args = append(args, f.scoreArgs...)
	args = append(args, f.whereArgs...)
	args = append(args, library.PageSize, q.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query archives: %w", err)
	}
	defer rows.Close()

	items := make([]library.ArchiveListItem, 0, library.PageSize)
	ids := make([]int64, 0, library.PageSize)
	for rows.Next() {
		var (
			item      library.ArchiveListItem
			released  sql.NullString
			relevance int
		)
		if err := rows.Scan(&item.ID, &item.Hash, &item.Title, &item.Pages, &item.Thumbnail, &released, &relevance); err != nil {
			return nil, 0, fmt.Errorf("failed to scan archive: %w", err)
		}
		if item.ReleasedAt, err = nullToTimePtr(released); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
		ids = append(ids, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating archives: %w", err)
	}

	taxonomies, err := s.loadTaxonomies(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		t := taxonomies[items[i].ID]
		items[i].Artists = t.artists
		items[i].Circles = t.circles
		items[i].Magazines = t.magazines
		items[i].Parodies = t.parodies
		items[i].Tags = t.tags
	}

	return items, total, nil
}

func orderBy(sort library.Sorting, order library.Ordering) string {
	dir := order.String()
	switch sort {
	case library.Relevance:
		return fmt.Sprintf("relevance %s, a.id %s", dir, dir)
	case library.CreatedAt:
		return fmt.Sprintf("a.created_at %s, a.id %s", dir, dir)
	case library.Title:
		return fmt.Sprintf("a.title COLLATE NOCASE %s, a.id %s", dir, dir)
	case library.Pages:
		return fmt.Sprintf("a.pages %s, a.id %s", dir, dir)
	default:
		return fmt.Sprintf("a.released_at IS NULL, a.released_at %s, a.id %s", dir, dir)
	}
}

// FetchArchiveData loads a live archive with all of its relations. A missing
// or deleted archive yields nil and no error.
func (s *Store) FetchArchiveData(ctx context.Context, id int64) (*library.Archive, error) {
	var (
		a                               library.Archive
		description, language, released sql.NullString
		created, updated                string
		hasMetadata                     int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hash, title, slug, description, path, pages, size, thumbnail, language,
			released_at, created_at, updated_at, has_metadata
		FROM archives
		WHERE id = ? AND deleted_at IS NULL`, id).
		Scan(&a.ID, &a.Hash, &a.Title, &a.Slug, &description, &a.Path, &a.Pages, &a.Size, &a.Thumbnail,
			&language, &released, &created, &updated, &hasMetadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query archive %d: %w", id, err)
	}

	a.Description = nullToString(description)
	a.Language = nullToString(language)
	a.HasMetadata = hasMetadata != 0
	if a.ReleasedAt, err = nullToTimePtr(released); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}

	taxonomies, err := s.loadTaxonomies(ctx, []int64{a.ID})
	if err != nil {
		return nil, err
	}
	t := taxonomies[a.ID]
	a.Artists, a.Circles, a.Magazines, a.Parodies, a.Tags = t.artists, t.circles, t.magazines, t.parodies, t.tags

	if a.Sources, err = s.loadSources(ctx, a.ID); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveArchive inserts a or, when an archive with the same hash exists,
// replaces its fields and relations. A previously deleted archive is revived.
func (s *Store) SaveArchive(ctx context.Context, a *library.Archive) (int64, error) {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO archives (hash, title, title_search, slug, description, path, pages, size, thumbnail,
			language, released_at, created_at, updated_at, has_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			title = excluded.title,
			title_search = excluded.title_search,
			slug = excluded.slug,
			description = excluded.description,
			path = excluded.path,
			pages = excluded.pages,
			size = excluded.size,
			thumbnail = excluded.thumbnail,
			language = excluded.language,
			released_at = excluded.released_at,
			updated_at = excluded.updated_at,
			has_metadata = excluded.has_metadata,
			deleted_at = NULL
		RETURNING id`,
		a.Hash, a.Title, fold(a.Title), a.Slug, stringToNull(a.Description), a.Path, a.Pages, a.Size, a.Thumbnail,
		stringToNull(a.Language), timePtrToNull(a.ReleasedAt), formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
		boolToInt(a.HasMetadata)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert archive %s: %w", a.Hash, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM archive_taxonomies WHERE archive_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to clear taxonomies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM archive_sources WHERE archive_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to clear sources: %w", err)
	}

	insertTaxonomy := func(kind, namespace, name string) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO archive_taxonomies (archive_id, kind, namespace, name, name_search)
			VALUES (?, ?, ?, ?, ?)`, id, kind, namespace, name, fold(name))
		if err != nil {
			return fmt.Errorf("failed to insert %s %q: %w", kind, name, err)
		}
		return nil
	}
	for kind, names := range map[string][]string{
		library.KindArtist:   a.Artists,
		library.KindCircle:   a.Circles,
		library.KindMagazine: a.Magazines,
		library.KindParody:   a.Parodies,
	} {
		for _, name := range names {
			if err := insertTaxonomy(kind, "", name); err != nil {
				return 0, err
			}
		}
	}
	for _, tag := range a.Tags {
		if err := insertTaxonomy(library.KindTag, tag.Namespace, tag.Name); err != nil {
			return 0, err
		}
	}
	for _, src := range a.Sources {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO archive_sources (archive_id, name, url) VALUES (?, ?, ?)`, id, src.Name, src.URL); err != nil {
			return 0, fmt.Errorf("failed to insert source %q: %w", src.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive %s: %w", a.Hash, err)
	}
	a.ID = id
	return id, nil
}

// DeleteArchive soft-deletes an archive; it disappears from search and fetch.
func (s *Store) DeleteArchive(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE archives SET deleted_at = ? WHERE id = ?`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to delete archive %d: %w", id, err)
	}
	return nil
}

type taxonomySet struct {
	artists, circles, magazines, parodies []string
	tags                                  []library.Tag
}

func (s *Store) loadTaxonomies(ctx context.Context, ids []int64) (map[int64]*taxonomySet, error) {
	out := make(map[int64]*taxonomySet, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		out[id] = &taxonomySet{
			artists: []string{}, circles: []string{}, magazines: []string{}, parodies: []string{},
			tags: []library.Tag{},
		}
		args[i] = id
	}
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT archive_id, kind, namespace, name
		FROM archive_taxonomies
		WHERE archive_id IN (`+placeholders(len(ids))+`)
		ORDER BY archive_id, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                    int64
			kind, namespace, name string
		)
		if err := rows.Scan(&id, &kind, &namespace, &name); err != nil {
			return nil, fmt.Errorf("failed to scan taxonomy: %w", err)
		}
		t := out[id]
		switch kind {
		case library.KindArtist:
			t.artists = append(t.artists, name)
		case library.KindCircle:
			t.circles = append(t.circles, name)
		case library.KindMagazine:
			t.magazines = append(t.magazines, name)
		case library.KindParody:
			t.parodies = append(t.parodies, name)
		case library.KindTag:
			t.tags = append(t.tags, library.Tag{Name: name, Namespace: namespace})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating taxonomies: %w", err)
	}
	return out, nil
}

func (s *Store) loadSources(ctx context.Context, id int64) ([]library.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, url FROM archive_sources WHERE archive_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	sources := []library.Source{}
	for rows.Next() {
		var src library.Source
		if err := rows.Scan(&src.Name, &src.URL); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}
	return sources, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// filter is the SQL form of a parsed search.
type filter struct {
	conditions []string
	whereArgs  []any
	scores     []string
	scoreArgs  []any
}

func buildFilter(terms []library.Term) filter {
	f := filter{conditions: []string{"a.deleted_at IS NULL"}}
	for _, term := range terms {
		cond, args := termCondition(term)
		if term.Negate {
			cond = "NOT " + cond
		} else {
			score, sargs := termScore(term)
			if score != "" {
				f.scores = append(f.scores, score)
				f.scoreArgs = append(f.scoreArgs, sargs...)
			}
		}
		f.conditions = append(f.conditions, cond)
		f.whereArgs = append(f.whereArgs, args...)
	}
	return f
}

func (f filter) where() string {
	return strings.Join(f.conditions, " AND ")
}

func (f filter) score() string {
	if len(f.scores) == 0 {
		return "0"
	}
	return "(" + strings.Join(f.scores, " + ") + ")"
}

const taxonomyExists = `EXISTS (SELECT 1 FROM archive_taxonomies t WHERE t.archive_id = a.id`

func termCondition(term library.Term) (string, []any) {
	pattern := containsPattern(term.Value)
	switch term.Field {
	case library.FieldTitle:
		return `(a.title_search LIKE ? ESCAPE '\')`, []any{pattern}
	case library.FieldLanguage:
		return `(a.language LIKE ? ESCAPE '\')`, []any{pattern}
	case library.FieldSource:
		return `EXISTS (SELECT 1 FROM archive_sources s WHERE s.archive_id = a.id AND (s.name LIKE ? ESCAPE '\' OR s.url LIKE ? ESCAPE '\'))`,
			[]any{pattern, pattern}
	case library.FieldArtist, library.FieldCircle, library.FieldMagazine, library.FieldParody:
		return taxonomyExists + ` AND t.kind = ? AND t.name_search LIKE ? ESCAPE '\')`, []any{string(term.Field), pattern}
	case library.FieldTag:
		if term.Namespace != "" {
			return taxonomyExists + ` AND t.kind = 'tag' AND t.namespace = ? AND t.name_search LIKE ? ESCAPE '\')`,
				[]any{term.Namespace, pattern}
		}
		return taxonomyExists + ` AND t.kind = 'tag' AND t.name_search LIKE ? ESCAPE '\')`, []any{pattern}
	default:
		return `(a.title_search LIKE ? ESCAPE '\' OR ` + taxonomyExists + ` AND t.name_search LIKE ? ESCAPE '\'))`,
			[]any{pattern, pattern}
	}
}

// termScore weighs a title hit twice as much as a taxonomy hit.
func termScore(term library.Term) (string, []any) {
	pattern := containsPattern(term.Value)
	switch term.Field {
	case library.FieldAny:
		return `(CASE WHEN a.title_search LIKE ? ESCAPE '\' THEN 2 ELSE 0 END) + ` +
				`(CASE WHEN ` + taxonomyExists + ` AND t.name_search LIKE ? ESCAPE '\') THEN 1 ELSE 0 END)`,
			[]any{pattern, pattern}
	case library.FieldTitle:
		return `(CASE WHEN a.title_search LIKE ? ESCAPE '\' THEN 2 ELSE 0 END)`, []any{pattern}
	case library.FieldLanguage, library.FieldSource:
		return "", nil
	default:
		cond, args := termCondition(term)
		return `(CASE WHEN ` + cond + ` THEN 1 ELSE 0 END)`, args
	}
}
