/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the story-project data model. A story project is a
// directory with a JSON manifest plus the masoria script source; the parsed
// scene graph itself lives in internal/script and is derived, never stored here.

// Story represents a story project and its metadata.
// It is intended to serialize to a human-readable JSON manifest.
type Story struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	// Entry is the label of the scene the story starts from. Empty means the
	// first declared scene in the script.
	Entry string `json:"entry,omitempty"`
}

// Metadata contains optional descriptive metadata for a story.
type Metadata struct {
	Author   string `json:"author,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`
	Notes    string `json:"notes,omitempty"`
}
