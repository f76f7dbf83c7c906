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
	"fmt"
	"os"
	"path/filepath"

	"github.com/sum117/masoria-lang/internal/script"
	"github.com/sum117/masoria-lang/internal/storage"
)

// ExportScriptJSON writes the parsed script as pretty-printed JSON to outPath.
// A relative outPath is resolved under the story's exports folder.
func ExportScriptJSON(h *storage.StoryHandle, scr script.Script, outPath string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("story handle is nil")
	}
	data, err := json.MarshalIndent(scr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal script: %w", err)
	}
	data = append(data, '\n')
	return writeExportFile(h, outPath, data)
}

// writeExportFile resolves outPath relative to the exports folder, ensures the
// directory exists and writes data. It returns the resolved path.
func writeExportFile(h *storage.StoryHandle, outPath string, data []byte) (string, error) {
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(h.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return outPath, nil
}
