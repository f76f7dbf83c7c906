/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "github.com/sum117/masoria-lang/internal/log"
	"github.com/sum117/masoria-lang/internal/script"
	"github.com/sum117/masoria-lang/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-project ephemeral/index data under the project root.
	IndexDirName  = ".masoria"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the project's embedded index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-project SQLite index exists at
// .masoria/index.sqlite, opens the database, enables WAL mode, and ensures the
// meta/version tables exist. The returned *sql.DB is ready for use.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .masoria dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .masoria dir: %w", err)
	}

	path := IndexPath(projectRoot)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: keep a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; a newer tool owns this index.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add lookup indexes for scene graph traversal
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_label);`,
				`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_label);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx)
			if _, err := db.ExecContext(ctx, `INSERT INTO fts_documents(fts_documents) VALUES('optimize')`); err != nil {
				// best-effort optimize; ignore errors
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Core documents table: scene labels, dialogue, choice labels, cast entries.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id       INTEGER PRIMARY KEY,
			type         TEXT    NOT NULL,
			path         TEXT    NOT NULL,
			scene_label  TEXT,
			character_id TEXT,
			text         TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_scene ON documents(scene_label);`,

		// Contentless FTS5 index fed from documents via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		// Scene graph edges: implicit chain links and choice branches.
		`CREATE TABLE IF NOT EXISTS edges (
			from_label TEXT NOT NULL,
			to_label   TEXT NOT NULL,
			kind       TEXT NOT NULL CHECK(kind IN ('next','choice')),
			label      TEXT,
			PRIMARY KEY(from_label, to_label, kind)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_label);`,
		`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_label);`,

		// Script snapshots (history of script text for change tracking)
		`CREATE TABLE IF NOT EXISTS script_snapshots (
			id    INTEGER PRIMARY KEY,
			ts    TEXT    NOT NULL,
			text  TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_script_snapshots_ts ON script_snapshots(ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for contentless FTS synchronization with documents.text
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, h *StoryHandle, scr script.Script) (bool, error) {
	path := IndexPath(h.Root)
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, h, scr); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	// quick_check for corruption
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM documents LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	_ = os.Remove(path)
	if err := RebuildIndex(ctx, h, scr); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .masoria/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// BuildIndexIfEmpty ensures the DB exists and, if the documents table is
// empty, populates it from the manifest and the parsed script.
func BuildIndexIfEmpty(ctx context.Context, h *StoryHandle, scr script.Script) error {
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents;").Scan(&cnt); err != nil {
		return fmt.Errorf("check documents count: %w", err)
	}
	if cnt > 0 {
		return nil // already built
	}
	return rebuildFromScript(ctx, db, h, scr)
}

// UpdateIndex replaces the documents and edges content from the manifest and
// the parsed script. The index is derived; this is always safe.
func UpdateIndex(ctx context.Context, h *StoryHandle, scr script.Script) error {
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildFromScript(ctx, db, h, scr)
}

// RebuildIndex drops and recreates core index tables and rebuilds content from
// the manifest and the parsed script. It preserves meta/version tables and the
// script snapshot history.
func RebuildIndex(ctx context.Context, h *StoryHandle, scr script.Script) error {
	db, err := InitOrOpenIndex(h.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TABLE IF EXISTS edges;",
		"DROP TRIGGER IF EXISTS documents_ai;",
		"DROP TRIGGER IF EXISTS documents_ad;",
		"DROP TRIGGER IF EXISTS documents_au;",
		"DROP TABLE IF EXISTS documents;",
		"DROP TABLE IF EXISTS fts_documents;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	if err := runMigrations(ctx, db); err != nil {
		return err
	}
	return rebuildFromScript(ctx, db, h, scr)
}

// rebuildFromScript replaces the documents and edges content from the story
// manifest and the parsed script.
func rebuildFromScript(ctx context.Context, db *sql.DB, h *StoryHandle, scr script.Script) error {
	type row struct {
		typeStr     string
		path        string
		sceneLabel  sql.NullString
		characterID sql.NullString
		text        string
	}
	type edge struct {
		from, to, kind, label string
	}
	rows := make([]row, 0, 64)
	var edges []edge

	// Story-level metadata
	if s := strings.TrimSpace(h.Story.Name); s != "" {
		rows = append(rows, row{typeStr: "story_name", path: "story:name", text: s})
	}
	if s := strings.TrimSpace(h.Story.Metadata.Author); s != "" {
		rows = append(rows, row{typeStr: "author", path: "story:author", text: s})
	}
	if s := strings.TrimSpace(h.Story.Metadata.Synopsis); s != "" {
		rows = append(rows, row{typeStr: "synopsis", path: "story:synopsis", text: s})
	}
	if s := strings.TrimSpace(h.Story.Metadata.Notes); s != "" {
		rows = append(rows, row{typeStr: "story_notes", path: "story:notes", text: s})
	}

	// Cast
	for _, ch := range scr.Characters {
		if name := strings.TrimSpace(ch.Name); name != "" {
			rows = append(rows, row{typeStr: "character", path: "cast:" + name, characterID: sql.NullString{String: name, Valid: true}, text: name})
		}
		emotions := make([]string, 0, len(ch.Emotions))
		for e := range ch.Emotions {
			emotions = append(emotions, e)
		}
		sort.Strings(emotions)
		for _, e := range emotions {
			rows = append(rows, row{
				typeStr:     "emotion",
				path:        fmt.Sprintf("cast:%s/emotion:%s", ch.Name, e),
				characterID: sql.NullString{String: ch.Name, Valid: true},
				text:        e + " " + ch.Emotions[e],
			})
		}
	}

	// Scene graph
	for _, sc := range scr.Scenes {
		label := sql.NullString{String: sc.Label, Valid: sc.Label != ""}
		rows = append(rows, row{typeStr: "scene", path: "scene:" + sc.Label, sceneLabel: label, text: sc.Label})
		if s := strings.TrimSpace(sc.Condition); s != "" {
			rows = append(rows, row{typeStr: "scene_condition", path: "scene:" + sc.Label + "/condition", sceneLabel: label, text: s})
		}
		for i, d := range sc.Dialogues {
			rows = append(rows, row{
				typeStr:     "dialogue",
				path:        fmt.Sprintf("scene:%s/dialogue:%d", sc.Label, i),
				sceneLabel:  label,
				characterID: sql.NullString{String: d.Character, Valid: d.Character != ""},
				text:        d.Text,
			})
		}
		for i, c := range sc.Choices {
			rows = append(rows, row{
				typeStr:    "choice",
				path:       fmt.Sprintf("scene:%s/choice:%d", sc.Label, i),
				sceneLabel: label,
				text:       c.Label,
			})
			edges = append(edges, edge{from: sc.Label, to: c.TargetScene, kind: "choice", label: c.Label})
		}
		if sc.NextScene != "" {
			edges = append(edges, edge{from: sc.Label, to: sc.NextScene, kind: "next"})
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM edges;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear edges: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO documents(type, path, scene_label, character_id, text) VALUES(?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range rows {
		if _, err := ins.ExecContext(ctx, r.typeStr, r.path, r.sceneLabel, r.characterID, r.text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document: %w", err)
		}
	}
	insEdge, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO edges(from_label, to_label, kind, label) VALUES(?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer insEdge.Close()
	for _, e := range edges {
		if _, err := insEdge.ExecContext(ctx, e.from, e.to, e.kind, e.label); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert edge: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
