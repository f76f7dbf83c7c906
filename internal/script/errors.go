/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
)

// Every violation aborts the whole parse; there is no warning channel and no
// partial result. Callers match conditions with errors.Is against these
// sentinels.
var (
	// ErrInlineText reports free text after a colon on a scene or character
	// declaration line.
	ErrInlineText = errors.New("inline text after ':' is not allowed on a declaration")

	// ErrChoiceOutsideScene reports a choice line with no open scene block.
	ErrChoiceOutsideScene = errors.New("choice outside of a scene block")

	// ErrChoiceMissingTarget reports a choice instruction without a
	// <targetScene> parameter.
	ErrChoiceMissingTarget = errors.New("choice is missing a <targetScene> parameter")

	// ErrEmotionOutsideCharacter reports an emotion line with no open
	// character block.
	ErrEmotionOutsideCharacter = errors.New("emotion outside of a character block")

	// ErrEmotionMissingPath reports an emotion line without an asset path
	// after the colon.
	ErrEmotionMissingPath = errors.New("emotion is missing an asset path")
)

// ParseError decorates a sentinel error with source position context.
type ParseError struct {
	Line int    // 1-based line number in the source text
	Text string // the offending raw line
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func errAt(ln line, err error) error {
	return &ParseError{Line: ln.no, Text: ln.text, Err: err}
}
