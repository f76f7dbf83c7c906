/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"strings"
)

// Parse parses masoria source text into a Script.
// Supported syntax:
//
//	character guard:
//	    emotion happy: assets/guard/happy.png
//
//	scene intro<hasKey>:
//	    choice<armory>: Head to the armory
//	scene armory -> cells
//
// Statements nest by indentation: one level is exactly four leading spaces,
// never tabs. A scene or character stays open and collects entries until the
// next declaration of the same kind or end of input. Consecutive scenes chain
// into a default forward path unless an explicit `-> target` is given. Lines
// matching no known statement are skipped, not rejected; the five conditions
// in errors.go abort the parse.
func Parse(input string) (Script, error) {
	acc := accumulator{}
	for _, ln := range splitLines(input) {
		switch classify(ln.text) {
		case lineCharacterStart:
			ch, err := makeCharacter(ln)
			if err != nil {
				return Script{}, err
			}
			acc.startCharacter(ch)
		case lineEmotion:
			if acc.openCharacter == nil {
				return Script{}, errAt(ln, ErrEmotionOutsideCharacter)
			}
			if err := addEmotion(acc.openCharacter, ln); err != nil {
				return Script{}, err
			}
		case lineSceneStart:
			sc, err := makeScene(ln)
			if err != nil {
				return Script{}, err
			}
			acc.startScene(sc)
		case lineChoice:
			if acc.openScene == nil {
				return Script{}, errAt(ln, ErrChoiceOutsideScene)
			}
			if err := addChoice(acc.openScene, ln); err != nil {
				return Script{}, err
			}
		}
	}
	scenes, characters := acc.finish()
	if characters == nil {
		characters = []Character{}
	}
	return Script{Scenes: reconcile(scenes), Characters: characters}, nil
}

// line is a non-blank source line with its original 1-based position.
type line struct {
	no   int
	text string
}

// splitLines splits the raw script into non-blank lines, preserving interior
// whitespace and source order.
func splitLines(input string) []line {
	var out []line
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	no := 0
	for scanner.Scan() {
		no++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, line{no: no, text: text})
	}
	return out
}

// Statement classification. Each line is classified exactly once and the
// result dispatched, so the keyword and indentation rules live in one place.

type lineKind int

const (
	lineUnknown lineKind = iota
	lineCharacterStart
	lineEmotion
	lineSceneStart
	lineChoice
	lineEndingScene // reserved keyword, recognized but inert
	lineUseEmotion  // reserved keyword, recognized but inert
)

const indentWidth = 4

type keywordSpec struct {
	keyword string
	level   int
}

var (
	kwCharacter   = keywordSpec{"character", 0}
	kwEmotion     = keywordSpec{"emotion", 1}
	kwScene       = keywordSpec{"scene", 0}
	kwChoice      = keywordSpec{"choice", 1}
	kwEndingScene = keywordSpec{"ending scene", 0}
	kwUseEmotion  = keywordSpec{"use emotion", 1}
)

// classify determines which statement rule, if any, applies to the line.
// First match wins, in the same priority order the accumulator dispatches in.
func classify(text string) lineKind {
	switch {
	case matches(text, kwCharacter):
		return lineCharacterStart
	case matches(text, kwEmotion):
		return lineEmotion
	case matches(text, kwScene):
		return lineSceneStart
	case matches(text, kwChoice):
		return lineChoice
	case matches(text, kwEndingScene):
		return lineEndingScene
	case matches(text, kwUseEmotion):
		return lineUseEmotion
	default:
		return lineUnknown
	}
}

// matches reports whether the line starts with the keyword (case-insensitive,
// after trimming) at exactly the keyword's nesting depth. Indentation counts
// leading space characters only; a tab never counts, so tab-indented lines
// fail the depth check or the prefix check and fall through as unrecognized.
func matches(text string, ks keywordSpec) bool {
	indent := 0
	for indent < len(text) && text[indent] == ' ' {
		indent++
	}
	if indent != ks.level*indentWidth {
		return false
	}
	trimmed := strings.ToLower(strings.TrimSpace(text[indent:]))
	return strings.HasPrefix(trimmed, ks.keyword)
}

// splitParam splits a `label<parameter>` token. A token without a complete
// <...> segment yields only the label; only the first occurrence is honored.
func splitParam(token string) (label, param string) {
	open := strings.IndexByte(token, '<')
	if open < 0 {
		return token, ""
	}
	end := strings.IndexByte(token[open+1:], '>')
	if end < 0 {
		return token, ""
	}
	return token[:open], token[open+1 : open+1+end]
}

// rejectInlineText fails declaration lines that carry free text after a
// colon, e.g. `scene intro: some prose`. Declarations may end in a bare
// colon; anything after it belongs to entry statements, not declarations.
func rejectInlineText(ln line) error {
	if i := strings.IndexByte(ln.text, ':'); i >= 0 && strings.TrimSpace(ln.text[i+1:]) != "" {
		return errAt(ln, ErrInlineText)
	}
	return nil
}

// makeScene builds a scene from its declaration line. The line normalizes to
// `scene label[<condition>][:]` or `scene label[<condition>] -> target[:]`.
func makeScene(ln line) (Scene, error) {
	if err := rejectInlineText(ln); err != nil {
		return Scene{}, err
	}
	fields := strings.Fields(ln.text)
	sc := Scene{Dialogues: []Dialogue{}}
	if len(fields) > 1 {
		labelTok := strings.TrimSuffix(fields[1], ":")
		sc.Label, sc.Condition = splitParam(labelTok)
	}
	if len(fields) > 3 {
		sc.NextScene = strings.TrimSuffix(fields[3], ":")
	}
	return sc, nil
}

// makeCharacter builds a character from its declaration line,
// `character name[:]`.
func makeCharacter(ln line) (Character, error) {
	if err := rejectInlineText(ln); err != nil {
		return Character{}, err
	}
	fields := strings.Fields(ln.text)
	ch := Character{Emotions: map[string]string{}}
	if len(fields) > 1 {
		ch.Name = strings.TrimSuffix(fields[1], ":")
	}
	return ch, nil
}

// addChoice appends a choice to the open scene. The line splits on the first
// colon into instruction and display label: `choice<target>: label text`.
func addChoice(sc *Scene, ln line) error {
	instr, label, _ := strings.Cut(ln.text, ":")
	_, target := splitParam(strings.TrimSpace(instr))
	if target == "" {
		return errAt(ln, ErrChoiceMissingTarget)
	}
	sc.Choices = append(sc.Choices, Choice{Label: strings.TrimSpace(label), TargetScene: target})
	return nil
}

// addEmotion records an emotion entry on the open character. The line splits
// on the first colon into instruction and asset path: `emotion name: path`.
func addEmotion(ch *Character, ln line) error {
	instr, path, ok := strings.Cut(ln.text, ":")
	if !ok || strings.TrimSpace(path) == "" {
		return errAt(ln, ErrEmotionMissingPath)
	}
	fields := strings.Fields(instr)
	if len(fields) < 2 {
		return errAt(ln, ErrEmotionMissingPath)
	}
	if ch.Emotions == nil {
		ch.Emotions = map[string]string{}
	}
	ch.Emotions[fields[1]] = strings.TrimSpace(path)
	return nil
}

// accumulator is the fold state threaded over the line sequence: at most one
// open scene and one open character, plus the finished output in declaration
// order.
type accumulator struct {
	openScene     *Scene
	openCharacter *Character
	scenes        []Scene
	characters    []Character
}

func (a *accumulator) startCharacter(ch Character) {
	if a.openCharacter != nil {
		a.characters = append(a.characters, *a.openCharacter)
	}
	a.openCharacter = &ch
}

// startScene finalizes the open scene, chaining it to the new one: the open
// scene keeps an explicit nextScene if it declared one, and the new scene's
// previousScene points back unless a choice later overrides it.
func (a *accumulator) startScene(sc Scene) {
	if a.openScene != nil {
		if a.openScene.NextScene == "" {
			a.openScene.NextScene = sc.Label
		}
		sc.PreviousScene = a.openScene.Label
		a.scenes = append(a.scenes, *a.openScene)
	}
	a.openScene = &sc
}

// finish flushes any still-open blocks and returns the accumulated output.
func (a *accumulator) finish() ([]Scene, []Character) {
	if a.openScene != nil {
		a.scenes = append(a.scenes, *a.openScene)
		a.openScene = nil
	}
	if a.openCharacter != nil {
		a.characters = append(a.characters, *a.openCharacter)
		a.openCharacter = nil
	}
	return a.scenes, a.characters
}

// reconcile derives each scene's previousScene from the choices that target
// it. The first scene in declaration order that targets a label is kept as
// its parent; choice-derived back-references replace chaining-derived ones.
// The input slice is not mutated.
func reconcile(scenes []Scene) []Scene {
	parents := make(map[string]string, len(scenes))
	for _, sc := range scenes {
		for _, ch := range sc.Choices {
			if _, ok := parents[ch.TargetScene]; !ok {
				parents[ch.TargetScene] = sc.Label
			}
		}
	}
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	for i := range out {
		if parent, ok := parents[out[i].Label]; ok {
			out[i].PreviousScene = parent
		}
	}
	return out
}
