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
	"fmt"
	"strings"

	"github.com/sum117/masoria-lang/internal/script"
	"github.com/sum117/masoria-lang/internal/storage"
)

// SceneGraphDOT renders the scene graph in Graphviz DOT form. Chained and
// explicit next transitions become solid edges; choices become labeled edges.
// Ending scenes are drawn with doubled borders. Scenes referenced but never
// declared still appear as nodes so broken targets are visible in the render.
func SceneGraphDOT(name string, scr script.Script) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("digraph %s {\n", dotQuote(name)))
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n")
	for _, sc := range scr.Scenes {
		attrs := ""
		if sc.IsEndingScene {
			attrs = " [peripheries=2]"
		} else if sc.Condition != "" {
			attrs = fmt.Sprintf(" [tooltip=%s]", dotQuote(sc.Condition))
		}
		sb.WriteString(fmt.Sprintf("  %s%s;\n", dotQuote(sc.Label), attrs))
	}
	for _, sc := range scr.Scenes {
		if sc.NextScene != "" {
			sb.WriteString(fmt.Sprintf("  %s -> %s;\n", dotQuote(sc.Label), dotQuote(sc.NextScene)))
		}
		for _, c := range sc.Choices {
			sb.WriteString(fmt.Sprintf("  %s -> %s [label=%s, style=dashed];\n",
				dotQuote(sc.Label), dotQuote(c.TargetScene), dotQuote(c.Label)))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// ExportSceneGraphDOT writes the DOT rendering to outPath. A relative outPath
// is resolved under the story's exports folder.
func ExportSceneGraphDOT(h *storage.StoryHandle, scr script.Script, outPath string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("story handle is nil")
	}
	dot := SceneGraphDOT(h.Story.Name, scr)
	return writeExportFile(h, outPath, []byte(dot))
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
