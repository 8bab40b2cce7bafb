package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/srcmirror/srcmirror/internal/model"
)

// schemaVersion tracks the persisted layout. Bump on incompatible changes.
const schemaVersion = 1

const blockCacheSize = 4096

// SQLite is a durable Store backed by modernc.org/sqlite.
type SQLite struct {
	db *sql.DB

	// Writers serialize here; SQLite allows one writer and the per-container
	// transaction below is the write latch.
	writeMu sync.Mutex

	blockCache *lru.Cache[string, *model.Block]
}

// Open opens or creates the database at path. Use ":memory:" for tests.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	cache, err := lru.New[string, *model.Block](blockCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	s := &SQLite{db: db, blockCache: cache}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*SQLite, error) {
	return Open(":memory:")
}

func (s *SQLite) initialize() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous = NORMAL;
	PRAGMA temp_store = MEMORY;

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		origin_url TEXT,
		commit_hash TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS containers (
		id TEXT PRIMARY KEY,
		snapshot_id TEXT,
		path TEXT NOT NULL,
		language TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		line_ending TEXT NOT NULL,
		roots TEXT NOT NULL          -- JSON array of top-level block ids
	);

	CREATE TABLE IF NOT EXISTS blocks (
		id TEXT PRIMARY KEY,
		container_id TEXT NOT NULL,
		parent_id TEXT,
		sibling_index INTEGER NOT NULL,
		kind TEXT NOT NULL,
		canonical_name TEXT,
		start_line INTEGER NOT NULL,
		start_column INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_column INTEGER NOT NULL,
		start_byte INTEGER NOT NULL,
		end_byte INTEGER NOT NULL,
		original_text TEXT NOT NULL,
		attrs TEXT NOT NULL,         -- JSON: remaining block attributes
		hints TEXT NOT NULL          -- JSON: reconstruction hints
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_blocks_container_sibling ON blocks(container_id, sibling_index);
	CREATE INDEX IF NOT EXISTS idx_blocks_container_name ON blocks(container_id, canonical_name);
	CREATE INDEX IF NOT EXISTS idx_containers_snapshot_path ON containers(snapshot_id, path);
	CREATE INDEX IF NOT EXISTS idx_rel_source ON relationships(source_id);
	CREATE INDEX IF NOT EXISTS idx_rel_target ON relationships(target_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", schemaVersion))
	return err
}

// blockAttrs holds the block fields serialized into the attrs column.
type blockAttrs struct {
	Language      string            `json:"language"`
	QualifiedName string            `json:"qualified_name,omitempty"`
	Fingerprint   string            `json:"fingerprint,omitempty"`
	BodyText      string            `json:"body_text,omitempty"`
	Normalized    string            `json:"normalized,omitempty"`
	Children      []string          `json:"children,omitempty"`
	Bases         []string          `json:"bases,omitempty"`
	Decorators    []string          `json:"decorators,omitempty"`
	Params        []model.Param     `json:"params,omitempty"`
	ReturnType    string            `json:"return_type,omitempty"`
	Modifiers     []string          `json:"modifiers,omitempty"`
	Complexity    int               `json:"complexity,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (s *SQLite) PutContainer(ctx context.Context, c *model.Container) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, b := range c.Blocks {
		if !utf8.ValidString(b.OriginalText) {
			return fmt.Errorf("%w: block %s original slice is not valid UTF-8", model.ErrInvariant, b.ID)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM containers WHERE id = ?`, c.ID).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: container %s", ErrDuplicate, c.ID)
	}

	roots, err := json.Marshal(c.Roots)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO containers (id, snapshot_id, path, language, content_hash, line_ending, roots)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.SnapshotID, c.Path, c.Language, c.ContentHash, c.LineEnding, string(roots)); err != nil {
		return err
	}

	blockStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blocks (id, container_id, parent_id, sibling_index, kind, canonical_name,
			start_line, start_column, end_line, end_column, start_byte, end_byte,
			original_text, attrs, hints)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer blockStmt.Close()

	for _, b := range c.Blocks {
		attrs, err := json.Marshal(blockAttrs{
			Language:      b.Language,
			QualifiedName: b.QualifiedName,
			Fingerprint:   b.Fingerprint,
			BodyText:      b.BodyText,
			Normalized:    b.Normalized,
			Children:      b.Children,
			Bases:         b.Bases,
			Decorators:    b.Decorators,
			Params:        b.Params,
			ReturnType:    b.ReturnType,
			Modifiers:     b.Modifiers,
			Complexity:    b.Complexity,
			Metadata:      b.Metadata,
		})
		if err != nil {
			return err
		}
		hints, err := json.Marshal(b.Hints)
		if err != nil {
			return err
		}
		if _, err := blockStmt.ExecContext(ctx,
			b.ID, b.ContainerID, nullable(b.ParentID), b.Position.SiblingIndex, string(b.Kind), b.Name,
			b.Position.StartLine, b.Position.StartColumn, b.Position.EndLine, b.Position.EndColumn,
			b.Position.StartByte, b.Position.EndByte,
			b.OriginalText, string(attrs), string(hints)); err != nil {
			return err
		}
	}

	if err := insertRelationships(ctx, tx, c.Relationships); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, b := range c.Blocks {
		s.blockCache.Add(b.ID, b)
	}
	return nil
}

func insertRelationships(ctx context.Context, tx *sql.Tx, rels []model.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relationships (source_id, target_id, kind, metadata) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rels {
		var meta any
		if len(r.Metadata) > 0 {
			data, err := json.Marshal(r.Metadata)
			if err != nil {
				return err
			}
			meta = string(data)
		}
		if _, err := stmt.ExecContext(ctx, r.SourceID, r.TargetID, string(r.Kind), meta); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) GetContainer(ctx context.Context, id string) (*model.Container, error) {
	return s.scanContainer(ctx, `SELECT id, snapshot_id, path, language, content_hash, line_ending, roots
		FROM containers WHERE id = ?`, id)
}

func (s *SQLite) ContainerByPath(ctx context.Context, snapshotID, path string) (*model.Container, error) {
	return s.scanContainer(ctx, `SELECT id, snapshot_id, path, language, content_hash, line_ending, roots
		FROM containers WHERE snapshot_id = ? AND path = ?`, snapshotID, path)
}

func (s *SQLite) scanContainer(ctx context.Context, query string, args ...any) (*model.Container, error) {
	var c model.Container
	var roots string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&c.ID, &c.SnapshotID, &c.Path, &c.Language, &c.ContentHash, &c.LineEnding, &roots)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: container", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(roots), &c.Roots); err != nil {
		return nil, fmt.Errorf("decoding roots: %w", err)
	}
	return &c, nil
}

const blockColumns = `id, container_id, parent_id, sibling_index, kind, canonical_name,
	start_line, start_column, end_line, end_column, start_byte, end_byte,
	original_text, attrs, hints`

func (s *SQLite) Blocks(ctx context.Context, containerID string) ([]*model.Block, error) {
	if _, err := s.GetContainer(ctx, containerID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+blockColumns+`
		FROM blocks WHERE container_id = ? ORDER BY start_byte, end_byte DESC`, containerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLite) Block(ctx context.Context, id string) (*model.Block, error) {
	if b, ok := s.blockCache.Get(id); ok {
		return b, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM blocks WHERE id = ?`, id)
	b, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: block %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	s.blockCache.Add(id, b)
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*model.Block, error) {
	var b model.Block
	var parentID sql.NullString
	var kind, attrs, hints string
	err := row.Scan(&b.ID, &b.ContainerID, &parentID, &b.Position.SiblingIndex, &kind, &b.Name,
		&b.Position.StartLine, &b.Position.StartColumn, &b.Position.EndLine, &b.Position.EndColumn,
		&b.Position.StartByte, &b.Position.EndByte,
		&b.OriginalText, &attrs, &hints)
	if err != nil {
		return nil, err
	}
	b.ParentID = parentID.String
	b.Kind = model.BlockKind(kind)

	var a blockAttrs
	if err := json.Unmarshal([]byte(attrs), &a); err != nil {
		return nil, fmt.Errorf("decoding block attrs: %w", err)
	}
	b.Language = a.Language
	b.QualifiedName = a.QualifiedName
	b.Fingerprint = a.Fingerprint
	b.BodyText = a.BodyText
	b.Normalized = a.Normalized
	b.Children = a.Children
	b.Bases = a.Bases
	b.Decorators = a.Decorators
	b.Params = a.Params
	b.ReturnType = a.ReturnType
	b.Modifiers = a.Modifiers
	b.Complexity = a.Complexity
	b.Metadata = a.Metadata

	if err := json.Unmarshal([]byte(hints), &b.Hints); err != nil {
		return nil, fmt.Errorf("decoding block hints: %w", err)
	}
	return &b, nil
}

func (s *SQLite) RelationshipsFrom(ctx context.Context, blockID string) ([]model.Relationship, error) {
	return s.queryRelationships(ctx, `SELECT source_id, target_id, kind, metadata
		FROM relationships WHERE source_id = ? ORDER BY id`, blockID)
}

func (s *SQLite) RelationshipsTo(ctx context.Context, blockID string) ([]model.Relationship, error) {
	return s.queryRelationships(ctx, `SELECT source_id, target_id, kind, metadata
		FROM relationships WHERE target_id = ? ORDER BY id`, blockID)
}

func (s *SQLite) queryRelationships(ctx context.Context, query, blockID string) ([]model.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, query, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var r model.Relationship
		var kind string
		var meta sql.NullString
		if err := rows.Scan(&r.SourceID, &r.TargetID, &kind, &meta); err != nil {
			return nil, err
		}
		r.Kind = model.RelationshipKind(kind)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &r.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) ByCanonicalName(ctx context.Context, containerID, name string) ([]*model.Block, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+blockColumns+`
		FROM blocks WHERE container_id = ? AND canonical_name = ? ORDER BY sibling_index`, containerID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLite) PutRelationships(ctx context.Context, rels []model.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	check, err := tx.PrepareContext(ctx, `SELECT COUNT(*) FROM blocks WHERE id = ?`)
	if err != nil {
		return err
	}
	defer check.Close()
	for _, r := range rels {
		for _, id := range []string{r.SourceID, r.TargetID} {
			var n int
			if err := check.QueryRowContext(ctx, id).Scan(&n); err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrEndpoint, id)
			}
		}
	}
	if err := insertRelationships(ctx, tx, rels); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) PutSnapshot(ctx context.Context, snap *model.Snapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	created := snap.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, origin_url, commit_hash, created_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.OriginURL, snap.Commit, created.Unix())
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: snapshot %s", ErrDuplicate, snap.ID)
	}
	return err
}

func (s *SQLite) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	var snap model.Snapshot
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT id, origin_url, commit_hash, created_at
		FROM snapshots WHERE id = ?`, id).Scan(&snap.ID, &snap.OriginURL, &snap.Commit, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	snap.CreatedAt = time.Unix(created, 0)

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM containers WHERE snapshot_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		snap.ContainerIDs = append(snap.ContainerIDs, cid)
	}
	return &snap, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
