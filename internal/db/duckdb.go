// Package db is the DuckDB symbol index: one row per rendered anchor, per
// library variant, for lookup and name search outside a rendered page.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_variant_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_anchor_id START 1;`,

		`CREATE TABLE IF NOT EXISTS variants (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			model_hash TEXT,
			indexed_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS anchors (
			id INTEGER PRIMARY KEY,
			variant_id INTEGER NOT NULL,
			anchor TEXT NOT NULL,
			position INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			module TEXT NOT NULL,
			signature TEXT,
			summary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anchors_variant ON anchors (variant_id, anchor)`,
		`CREATE INDEX IF NOT EXISTS idx_anchors_name ON anchors (name)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// --- Variant operations ---

type Variant struct {
	ID        int
	Name      string
	ModelHash string
	IndexedAt *time.Time
	Anchors   int
}

func (db *DB) upsertVariant(tx *sql.Tx, name string) (int, error) {
	var id int
	err := tx.QueryRow(`SELECT id FROM variants WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking variant: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO variants (id, name) VALUES (nextval('seq_variant_id'), ?)`, name); err != nil {
		return 0, fmt.Errorf("inserting variant: %w", err)
	}
	if err := tx.QueryRow(`SELECT id FROM variants WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("getting variant id: %w", err)
	}
	return id, nil
}

// VariantHash returns the model hash the variant was last indexed from.
func (db *DB) VariantHash(name string) (string, bool, error) {
	var hash sql.NullString
	err := db.conn.QueryRow(`SELECT model_hash FROM variants WHERE name = ?`, name).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash.String, hash.Valid, nil
}

func (db *DB) ListVariants() ([]Variant, error) {
	rows, err := db.conn.Query(`
		SELECT v.id, v.name, v.model_hash, v.indexed_at, COUNT(a.id)
		FROM variants v LEFT JOIN anchors a ON a.variant_id = v.id
		GROUP BY v.id, v.name, v.model_hash, v.indexed_at
		ORDER BY v.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		var hash sql.NullString
		if err := rows.Scan(&v.ID, &v.Name, &hash, &v.IndexedAt, &v.Anchors); err != nil {
			return nil, err
		}
		v.ModelHash = hash.String
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (db *DB) DeleteVariant(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM anchors WHERE variant_id IN (SELECT id FROM variants WHERE name = ?)`, name); err != nil {
		return fmt.Errorf("deleting anchors: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM variants WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting variant: %w", err)
	}
	return tx.Commit()
}

// --- Anchor operations ---

type Anchor struct {
	Variant   string
	Anchor    string
	Position  int
	Kind      string
	Name      string
	Module    string
	Signature string
	Summary   string
}

// ReplaceAnchors swaps the variant's anchor rows for anchors in one
// transaction and records the model hash they were rendered from.
func (db *DB) ReplaceAnchors(variant, modelHash string, anchors []Anchor) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	variantID, err := db.upsertVariant(tx, variant)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM anchors WHERE variant_id = ?`, variantID); err != nil {
		return fmt.Errorf("clearing anchors: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO anchors (id, variant_id, anchor, position, kind, name, module, signature, summary)
		VALUES (nextval('seq_anchor_id'), ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range anchors {
		if _, err := stmt.Exec(variantID, a.Anchor, a.Position, a.Kind, a.Name, a.Module, a.Signature, a.Summary); err != nil {
			return fmt.Errorf("inserting anchor %s: %w", a.Anchor, err)
		}
	}

	if _, err := tx.Exec(`UPDATE variants SET model_hash = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?`, modelHash, variantID); err != nil {
		return fmt.Errorf("updating variant: %w", err)
	}
	return tx.Commit()
}

const anchorColumns = `v.name, a.anchor, a.position, a.kind, a.name, a.module, a.signature, a.summary`

func scanAnchor(row interface{ Scan(...any) error }) (*Anchor, error) {
	var a Anchor
	var sig, summary sql.NullString
	if err := row.Scan(&a.Variant, &a.Anchor, &a.Position, &a.Kind, &a.Name, &a.Module, &sig, &summary); err != nil {
		return nil, err
	}
	a.Signature = sig.String
	a.Summary = summary.String
	return &a, nil
}

func (db *DB) LookupAnchor(variant, anchor string) (*Anchor, error) {
	a, err := scanAnchor(db.conn.QueryRow(
		`SELECT `+anchorColumns+`
		 FROM anchors a JOIN variants v ON v.id = a.variant_id
		 WHERE v.name = ? AND a.anchor = ?`,
		variant, anchor,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SearchAnchors finds declarations whose name contains the last segment of
// query, case-insensitively. Earlier dotted segments must each appear, in
// order, in the enclosing module path. Exact name matches sort first.
func (db *DB) SearchAnchors(variant, query string, limit int) ([]Anchor, error) {
	segments := splitQuery(query)
	if len(segments) == 0 {
		return nil, nil
	}
	leaf := segments[len(segments)-1]

	where := []string{"v.name = ?", "a.name ILIKE ? ESCAPE '\\'"}
	params := []any{variant, "%" + escapeLike(leaf) + "%"}
	if modules := segments[:len(segments)-1]; len(modules) > 0 {
		parts := make([]string, len(modules))
		for i, m := range modules {
			parts[i] = escapeLike(m)
		}
		where = append(where, "a.module ILIKE ? ESCAPE '\\'")
		params = append(params, "%"+strings.Join(parts, "%")+"%")
	}
	params = append(params, leaf, limit)

	rows, err := db.conn.Query(
		`SELECT `+anchorColumns+`
		 FROM anchors a JOIN variants v ON v.id = a.variant_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY (lower(a.name) = lower(?)) DESC, a.position
		 LIMIT ?`,
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("searching anchors: %w", err)
	}
	defer rows.Close()

	var results []Anchor
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning anchor: %w", err)
		}
		results = append(results, *a)
	}
	return results, rows.Err()
}

// ModuleAnchors returns the anchors declared directly in module, in
// document order.
func (db *DB) ModuleAnchors(variant, module string) ([]Anchor, error) {
	rows, err := db.conn.Query(
		`SELECT `+anchorColumns+`
		 FROM anchors a JOIN variants v ON v.id = a.variant_id
		 WHERE v.name = ? AND a.module = ?
		 ORDER BY a.position`,
		variant, module,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Anchor
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *a)
	}
	return results, rows.Err()
}

func splitQuery(q string) []string {
	var out []string
	for _, s := range strings.Split(q, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
