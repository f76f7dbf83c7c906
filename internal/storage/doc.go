/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists story projects on disk: the JSON manifest with
// transactional writes and timestamped backups, the masoria script source,
// and a derived per-project SQLite index (full-text search over dialogue and
// choices, the scene graph edges, and script snapshot history). The index is
// ephemeral; everything in it can be rebuilt from the manifest and the script.
package storage
