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
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/sum117/masoria-lang/internal/script"
	"github.com/sum117/masoria-lang/internal/storage"
)

// PDFOptions controls the script PDF rendering.
// Built-in Helvetica keeps text vector without font embedding.
type PDFOptions struct {
	PageSize string // "A4" (default) or "Letter"
	Author   string
}

// ExportScriptPDF renders the script as a readable screenplay-style PDF with
// one section per scene: heading, condition, dialogue lines and choices. A
// relative outPath is resolved under the story's exports folder.
func ExportScriptPDF(h *storage.StoryHandle, scr script.Script, outPath string, opt PDFOptions) (string, error) {
	if h == nil {
		return "", fmt.Errorf("story handle is nil")
	}
	size := opt.PageSize
	switch strings.ToLower(size) {
	case "", "a4":
		size = "A4"
	case "letter":
		size = "Letter"
	default:
		return "", fmt.Errorf("unsupported page size %q", opt.PageSize)
	}

	pdf := gofpdf.New("P", "pt", size, "")
	pdf.SetTitle(h.Story.Name, false)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, false)
	}
	pdf.SetMargins(54, 54, 54)
	pdf.SetAutoPageBreak(true, 54)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 24, h.Story.Name, "", "C", false)
	if s := strings.TrimSpace(h.Story.Metadata.Synopsis); s != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 14, s, "", "C", false)
	}
	pdf.Ln(12)

	for _, sc := range scr.Scenes {
		pdf.SetFont("Helvetica", "B", 13)
		heading := sc.Label
		if sc.IsEndingScene {
			heading += " (ending)"
		}
		pdf.MultiCell(0, 18, heading, "", "L", false)
		if sc.Condition != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 13, "if "+sc.Condition, "", "L", false)
		}
		pdf.SetFont("Helvetica", "", 11)
		for _, d := range sc.Dialogues {
			line := d.Character
			if d.Emotion != "" {
				line += " (" + d.Emotion + ")"
			}
			line += ": " + d.Text
			pdf.MultiCell(0, 14, line, "", "L", false)
		}
		for _, c := range sc.Choices {
			pdf.MultiCell(0, 14, fmt.Sprintf("> %s  [%s]", c.Label, c.TargetScene), "", "L", false)
		}
		if sc.NextScene != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 13, "next: "+sc.NextScene, "", "L", false)
		}
		pdf.Ln(8)
	}

	if len(scr.Characters) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 18, "Cast", "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		for _, ch := range scr.Characters {
			pdf.MultiCell(0, 14, fmt.Sprintf("%s (%d emotions)", ch.Name, len(ch.Emotions)), "", "L", false)
		}
	}

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(h.Root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return outPath, nil
}
