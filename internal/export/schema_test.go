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
	"path/filepath"
	"strings"
	"testing"
)

func readSchema(t *testing.T) []byte {
	t.Helper()
	schemaPath := filepath.Join("..", "..", "docs", "masoria.schema.json")
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	return data
}

func TestExportedScriptConformsToSchema(t *testing.T) {
	h := fixtureStory(t)
	out, err := ExportScriptJSON(h, fixtureScript(t), "script.json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	doc, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if err := ValidateScriptJSON(readSchema(t), doc); err != nil {
		t.Fatalf("exported script rejected: %v", err)
	}
}

func TestValidateScriptJSON_RejectsMalformedDoc(t *testing.T) {
	doc := []byte(`{"scenes": [{"label": 5}], "characters": []}`)
	err := ValidateScriptJSON(readSchema(t), doc)
	if err == nil {
		t.Fatalf("expected schema violation")
	}
	if !strings.Contains(err.Error(), "does not conform") {
		t.Fatalf("unexpected error: %v", err)
	}
}
