/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sum117/masoria-lang/internal/domain"
	"github.com/sum117/masoria-lang/internal/script"
	"github.com/sum117/masoria-lang/internal/storage"
)

func fixtureScript(t *testing.T) script.Script {
	t.Helper()
	src := `character warden:
    emotion stern: assets/warden/stern.png
    emotion amused: assets/warden/amused.png

scene courtyard<torchlit>:
    choice<gate>: Walk to the gate
    choice<tower>: Climb the tower
scene gate -> tower
scene tower`
	s, err := script.Parse(src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return s
}

func fixtureStory(t *testing.T) *storage.StoryHandle {
	t.Helper()
	h, err := storage.InitStory(t.TempDir(), domain.Story{
		Name:     "Night Watch",
		Metadata: domain.Metadata{Author: "sum117", Synopsis: "one night at the keep"},
	})
	if err != nil {
		t.Fatalf("InitStory error: %v", err)
	}
	return h
}

func TestExportScriptJSON_WritesUnderExports(t *testing.T) {
	h := fixtureStory(t)
	out, err := ExportScriptJSON(h, fixtureScript(t), "script.json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := filepath.Join(h.Root, "exports", "script.json")
	if out != want {
		t.Fatalf("resolved path %q, want %q", out, want)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var got script.Script
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(got.Scenes) != 3 || len(got.Characters) != 1 {
		t.Fatalf("unexpected shape: %d scenes, %d characters", len(got.Scenes), len(got.Characters))
	}
	if !strings.Contains(string(data), `"isEndingScene": false`) {
		t.Fatalf("ending scene flag missing from output")
	}
	if got.Scenes[0].Condition != "torchlit" {
		t.Fatalf("condition lost in roundtrip: %q", got.Scenes[0].Condition)
	}
}

func TestExportScriptJSON_AbsolutePathKept(t *testing.T) {
	h := fixtureStory(t)
	abs := filepath.Join(t.TempDir(), "deep", "out.json")
	out, err := ExportScriptJSON(h, fixtureScript(t), abs)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != abs {
		t.Fatalf("absolute path rewritten to %q", out)
	}
	if _, err := os.Stat(abs); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestExportScriptJSON_NilHandle(t *testing.T) {
	if _, err := ExportScriptJSON(nil, script.Script{}, "x.json"); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
