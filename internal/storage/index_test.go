/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sum117/masoria-lang/internal/domain"
	"github.com/sum117/masoria-lang/internal/script"

	_ "modernc.org/sqlite"
)

func testScript(t *testing.T) script.Script {
	t.Helper()
	src := `character guard:
    emotion happy: assets/guard/happy.png

scene intro:
    choice<armory>: Head to the armory
    choice<cells>: Sneak into the cells
scene armory
scene cells`
	s, err := script.Parse(src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return s
}

func TestIndexInitCreatesWALAndMetaVersion(t *testing.T) {
	root := t.TempDir()
	h, err := InitStory(root, domain.Story{Name: "Index Test"})
	if err != nil {
		t.Fatalf("InitStory error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := BuildIndexIfEmpty(ctx, h, testScript(t)); err != nil {
		t.Fatalf("BuildIndexIfEmpty error: %v", err)
	}
	idxPath := IndexPath(root)
	if _, err := os.Stat(idxPath); err != nil {
		t.Fatalf("index file missing at %s: %v", idxPath, err)
	}
	uriPath := filepath.ToSlash(idxPath)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 2 {
		t.Fatalf("expected 2 meta tables, got %d", cnt)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('documents','fts_documents','edges','script_snapshots')").Scan(&cnt); err != nil {
		t.Fatalf("query core tables: %v", err)
	}
	if cnt != 4 {
		t.Fatalf("expected 4 core tables, got %d", cnt)
	}
}

func TestRebuildPopulatesDocumentsAndEdges(t *testing.T) {
	root := t.TempDir()
	h, err := InitStory(root, domain.Story{Name: "Graph", Metadata: domain.Metadata{Synopsis: "jailbreak"}})
	if err != nil {
		t.Fatalf("InitStory error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RebuildIndex(ctx, h, testScript(t)); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}

	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer db.Close()

	var scenes int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE type='scene'").Scan(&scenes); err != nil {
		t.Fatalf("count scenes: %v", err)
	}
	if scenes != 3 {
		t.Fatalf("expected 3 scene documents, got %d", scenes)
	}
	var choiceEdges int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges WHERE kind='choice' AND from_label='intro'").Scan(&choiceEdges); err != nil {
		t.Fatalf("count choice edges: %v", err)
	}
	if choiceEdges != 2 {
		t.Fatalf("expected 2 choice edges out of intro, got %d", choiceEdges)
	}
	// intro chains into armory, armory into cells
	var nextTo string
	if err := db.QueryRowContext(ctx, "SELECT to_label FROM edges WHERE kind='next' AND from_label='armory'").Scan(&nextTo); err != nil {
		t.Fatalf("read next edge: %v", err)
	}
	if nextTo != "cells" {
		t.Fatalf("expected armory->cells, got %q", nextTo)
	}
}

func TestFTSTriggersIndexInsertedText(t *testing.T) {
	root := t.TempDir()
	h, err := InitStory(root, domain.Story{Name: "FTS"})
	if err != nil {
		t.Fatalf("InitStory error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RebuildIndex(ctx, h, testScript(t)); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer db.Close()
	var hits int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fts_documents WHERE fts_documents MATCH 'armory'").Scan(&hits); err != nil {
		t.Fatalf("fts query: %v", err)
	}
	if hits == 0 {
		t.Fatalf("expected FTS hits for 'armory'")
	}
}

func TestDetectAndRebuildIndex_OnCorruption(t *testing.T) {
	root := t.TempDir()
	h, err := InitStory(root, domain.Story{Name: "CorruptTest"})
	if err != nil {
		t.Fatalf("InitStory error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RebuildIndex(ctx, h, testScript(t)); err != nil {
		t.Fatalf("RebuildIndex error: %v", err)
	}
	// Corrupt the DB file by writing junk
	idx := IndexPath(root)
	if err := os.WriteFile(idx, []byte("THIS IS NOT SQLITE"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	rebuilt, err := DetectAndRebuildIndex(ctx, h, testScript(t))
	if err != nil {
		t.Fatalf("DetectAndRebuildIndex: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	st, err := os.Stat(IndexPath(root))
	if err != nil || st.Size() == 0 {
		t.Fatalf("rebuilt index missing or empty: %v", err)
	}
	// Backup file should exist
	bdir := filepath.Join(root, IndexDirName, "backups")
	entries, _ := os.ReadDir(bdir)
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", bdir)
	}
}
