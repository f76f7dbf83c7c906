/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sum117/masoria-lang/internal/config"
	"github.com/sum117/masoria-lang/internal/crash"
	"github.com/sum117/masoria-lang/internal/domain"
	"github.com/sum117/masoria-lang/internal/export"
	applog "github.com/sum117/masoria-lang/internal/log"
	"github.com/sum117/masoria-lang/internal/script"
	"github.com/sum117/masoria-lang/internal/storage"
	"github.com/sum117/masoria-lang/internal/version"
)

func usage() {
	fmt.Println("masoria — branching dialogue script tool")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  masoria version|-v|--version              Show version")
	fmt.Println("  masoria init <dir> <name>                 Create a new story at <dir> with name <name>")
	fmt.Println("  masoria open <dir>                        Open story at <dir> and print a summary")
	fmt.Println("  masoria save <dir>                        Save story at <dir> (creates backup)")
	fmt.Println("  masoria parse <path>                      Parse a .masoria file (or a story dir) and print JSON")
	fmt.Println("  masoria index <dir>                       Rebuild the search index from the story script")
	fmt.Println("  masoria search <dir> <query>              Full-text search over the indexed story")
	fmt.Println("  masoria export <dir> <json|dot|pdf> [out] Export the parsed script")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var h *storage.StoryHandle
	defer func() { crash.Recover(h) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
	case "init":
		if len(args) < 4 {
			fmt.Println("init requires <dir> and <name>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		name := args[3]
		l.Info("init story", slog.String("root", abs), slog.String("name", name))
		cfg, _ := config.Load()
		st := domain.Story{Name: name, Metadata: domain.Metadata{Author: cfg.General.Author}}
		handle, err := storage.InitStory(abs, st)
		if err != nil {
			fail(l, "init failed", err)
		}
		h = handle
		fmt.Println("Created story at", abs)
	case "open":
		h = mustOpen(l, args, 2)
		scr := mustParseStory(l, h)
		fmt.Printf("Opened story: %s\n", h.Story.Name)
		fmt.Printf("Scenes: %d  Characters: %d\n", len(scr.Scenes), len(scr.Characters))
		fmt.Println("Root:", h.Root)
	case "save":
		h = mustOpen(l, args, 2)
		if err := storage.Save(h); err != nil {
			fail(l, "save failed", err)
		}
		fmt.Println("Saved story and backed up the previous manifest (if any).")
	case "parse":
		if len(args) < 3 {
			fmt.Println("parse requires <path>")
			usage()
			os.Exit(2)
		}
		src, err := readScriptSource(args[2])
		if err != nil {
			fail(l, "read script failed", err)
		}
		scr, err := script.Parse(src)
		if err != nil {
			fail(l, "parse failed", err)
		}
		out, err := json.MarshalIndent(scr, "", "  ")
		if err != nil {
			fail(l, "encode failed", err)
		}
		fmt.Println(string(out))
	case "index":
		h = mustOpen(l, args, 2)
		scr := mustParseStory(l, h)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		rebuilt, err := storage.DetectAndRebuildIndex(ctx, h, scr)
		if err != nil {
			fail(l, "index failed", err)
		}
		if !rebuilt {
			if err := storage.RebuildIndex(ctx, h, scr); err != nil {
				fail(l, "index failed", err)
			}
		}
		if text, err := storage.ReadScript(h); err == nil && text != "" {
			if err := storage.SaveScriptSnapshot(ctx, h, text, time.Now()); err != nil {
				l.Warn("snapshot failed", slog.Any("err", err))
			}
		}
		fmt.Printf("Indexed %d scenes and %d characters.\n", len(scr.Scenes), len(scr.Characters))
	case "search":
		if len(args) < 4 {
			fmt.Println("search requires <dir> and <query>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		results, err := storage.Search(ctx, abs, storage.SearchQuery{Text: strings.Join(args[3:], " ")})
		if err != nil {
			fail(l, "search failed", err)
		}
		for _, r := range results {
			if r.Scene != "" {
				fmt.Printf("%-16s %-24s %s\n", r.Type, r.Scene, r.Snippet)
			} else {
				fmt.Printf("%-16s %-24s %s\n", r.Type, r.Path, r.Snippet)
			}
		}
		fmt.Printf("%d result(s)\n", len(results))
	case "export":
		if len(args) < 3 {
			fmt.Println("export requires <dir>")
			usage()
			os.Exit(2)
		}
		h = mustOpen(l, args, 2)
		scr := mustParseStory(l, h)
		cfg, _ := config.Load()
		format := cfg.Export.Format
		if len(args) > 3 {
			format = args[3]
		}
		outName := ""
		if len(args) > 4 {
			outName = args[4]
		}
		path, err := runExport(h, scr, format, outName, cfg)
		if err != nil {
			fail(l, "export failed", err)
		}
		fmt.Println("Exported to", path)
	default:
		usage()
		os.Exit(2)
	}
}

func runExport(h *storage.StoryHandle, scr script.Script, format, outName string, cfg config.AppConfig) (string, error) {
	switch strings.ToLower(format) {
	case "", "json":
		if outName == "" {
			outName = "script.json"
		}
		return export.ExportScriptJSON(h, scr, outName)
	case "dot":
		if outName == "" {
			outName = "scene-graph.dot"
		}
		return export.ExportSceneGraphDOT(h, scr, outName)
	case "pdf":
		if outName == "" {
			outName = "script.pdf"
		}
		opt := export.PDFOptions{PageSize: cfg.Export.PageSize, Author: cfg.General.Author}
		return export.ExportScriptPDF(h, scr, outName, opt)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// readScriptSource accepts either a .masoria file or a story directory with a
// script under script/main.masoria.
func readScriptSource(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		abs = filepath.Join(abs, "script", storage.ScriptFileName)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func mustOpen(l *slog.Logger, args []string, idx int) *storage.StoryHandle {
	if len(args) <= idx {
		fmt.Println(args[1], "requires <dir>")
		usage()
		os.Exit(2)
	}
	abs, _ := filepath.Abs(args[idx])
	l.Info("open story", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		fail(l, "open failed", err)
	}
	return h
}

func mustParseStory(l *slog.Logger, h *storage.StoryHandle) script.Script {
	text, err := storage.ReadScript(h)
	if err != nil {
		fail(l, "read script failed", err)
	}
	scr, err := script.Parse(text)
	if err != nil {
		fail(l, "parse failed", err)
	}
	return scr
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
