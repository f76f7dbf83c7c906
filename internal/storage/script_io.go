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
	"errors"
	"os"
	"path/filepath"
)

// ScriptFileName is the canonical masoria source file inside a story project.
const ScriptFileName = "main.masoria"

// ScriptFilePath returns the path of the project's script source, or empty
// for a nil handle.
func ScriptFilePath(h *StoryHandle) string {
	if h == nil || h.Root == "" {
		return ""
	}
	return filepath.Join(h.Root, "script", ScriptFileName)
}

// ReadScript returns the project's script text. A missing script file reads
// as an empty script, not an error.
func ReadScript(h *StoryHandle) (string, error) {
	if h == nil {
		return "", errors.New("nil StoryHandle")
	}
	b, err := os.ReadFile(ScriptFilePath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(b), nil
}

// WriteScript replaces the project's script text, creating the script folder
// if needed. The write is fsynced.
func WriteScript(h *StoryHandle, text string) error {
	if h == nil {
		return errors.New("nil StoryHandle")
	}
	p := ScriptFilePath(h)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return writeFileSync(p, []byte(text))
}
