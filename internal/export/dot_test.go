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
	"os"
	"strings"
	"testing"

	"github.com/sum117/masoria-lang/internal/script"
)

func TestSceneGraphDOT_EdgesAndNodes(t *testing.T) {
	dot := SceneGraphDOT("Night Watch", fixtureScript(t))
	for _, want := range []string{
		`digraph "Night Watch" {`,
		`"courtyard" [tooltip="torchlit"];`,
		`"courtyard" -> "gate" [label="Walk to the gate", style=dashed];`,
		`"courtyard" -> "tower" [label="Climb the tower", style=dashed];`,
		`"gate" -> "tower";`,
	} {
		if !strings.Contains(dot, want) {
			t.Fatalf("missing %q in DOT output:\n%s", want, dot)
		}
	}
}

func TestSceneGraphDOT_EndingSceneDoubleBorder(t *testing.T) {
	scr := script.Script{Scenes: []script.Scene{
		{Label: "finale", IsEndingScene: true, Dialogues: []script.Dialogue{}},
	}}
	dot := SceneGraphDOT("End", scr)
	if !strings.Contains(dot, `"finale" [peripheries=2];`) {
		t.Fatalf("ending scene not double-bordered:\n%s", dot)
	}
}

func TestSceneGraphDOT_QuotesEscaped(t *testing.T) {
	scr := script.Script{Scenes: []script.Scene{
		{Label: `say "hi"`, Dialogues: []script.Dialogue{}},
	}}
	dot := SceneGraphDOT("q", scr)
	if !strings.Contains(dot, `"say \"hi\""`) {
		t.Fatalf("quotes not escaped:\n%s", dot)
	}
}

func TestExportSceneGraphDOT_WritesFile(t *testing.T) {
	h := fixtureStory(t)
	out, err := ExportSceneGraphDOT(h, fixtureScript(t), "graph.dot")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Fatalf("unexpected DOT header: %q", string(data[:20]))
	}
}
