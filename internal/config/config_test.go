/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"testing"
)

func TestEnvOverridesAuthor(t *testing.T) {
	old := os.Getenv(EnvAuthor)
	_ = os.Setenv(EnvAuthor, "sum117")
	t.Cleanup(func() { _ = os.Setenv(EnvAuthor, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.General.Author, "sum117"; got != want {
		t.Fatalf("General.Author = %q, want %q", got, want)
	}
}

func TestEnvOverridesExportFormat(t *testing.T) {
	old := os.Getenv(EnvExportFormat)
	_ = os.Setenv(EnvExportFormat, "DOT")
	t.Cleanup(func() { _ = os.Setenv(EnvExportFormat, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Export.Format != "dot" {
		t.Fatalf("Export.Format = %q, want lowercased override", cfg.Export.Format)
	}
}

func TestMergeIncludesExport(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Export.Format = "PDF"
	src.Export.PageSize = "Letter"
	mergeInto(&dst, &src)
	if dst.Export.Format != "pdf" || dst.Export.PageSize != "Letter" {
		t.Fatalf("export fields not merged correctly: %#v", dst.Export)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/masoria.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/masoria.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	oldLevel := os.Getenv(EnvLogLevel)
	oldFmt := os.Getenv(EnvLogFormat)
	oldSrc := os.Getenv(EnvLogSource)
	oldFile := os.Getenv(EnvLogFile)
	_ = os.Setenv(EnvLogLevel, "error")
	_ = os.Setenv(EnvLogFormat, "json")
	_ = os.Setenv(EnvLogSource, "1")
	_ = os.Setenv(EnvLogFile, "/tmp/masoria.json")
	t.Cleanup(func() {
		_ = os.Setenv(EnvLogLevel, oldLevel)
		_ = os.Setenv(EnvLogFormat, oldFmt)
		_ = os.Setenv(EnvLogSource, oldSrc)
		_ = os.Setenv(EnvLogFile, oldFile)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/masoria.json" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestEnvOverrideForReportsSource(t *testing.T) {
	old := os.Getenv(EnvLogLevel)
	_ = os.Setenv(EnvLogLevel, "debug")
	t.Cleanup(func() { _ = os.Setenv(EnvLogLevel, old) })
	name, ok := EnvOverrideFor("logging.level")
	if !ok || name != EnvLogLevel {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("nonexistent.key"); ok {
		t.Fatalf("unexpected override for unknown key")
	}
}
