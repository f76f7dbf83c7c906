/*
 * Copyright (c) 2025 by sum117.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Script is the parsed form of a masoria source file: an ordered scene graph
// plus the cast of speaking characters.

type Script struct {
	Scenes     []Scene     `json:"scenes"`
	Characters []Character `json:"characters"`
}

// Scene is a node in the dialogue graph. NextScene is either declared
// explicitly (`scene a -> b`) or filled in by chaining with the following
// scene declaration. PreviousScene is derived: chaining sets it during the
// main pass and any choice pointing at this scene overrides it afterwards.
type Scene struct {
	Label         string     `json:"label"`
	Condition     string     `json:"condition,omitempty"`
	NextScene     string     `json:"nextScene,omitempty"`
	PreviousScene string     `json:"previousScene,omitempty"`
	IsEndingScene bool       `json:"isEndingScene"`
	Dialogues     []Dialogue `json:"dialogues"`
	Choices       []Choice   `json:"choices,omitempty"`
}

// Character is a speaker profile. Emotions maps an emotion name to the asset
// path shown when the character speaks with that emotion.
type Character struct {
	Name     string            `json:"name"`
	Emotions map[string]string `json:"emotions"`
}

// Dialogue is a single spoken line. The dialogue statement grammar is still
// reserved (see the `use emotion` keyword), so current scripts produce scenes
// with empty dialogue sequences; the type is part of the stable data model.
type Dialogue struct {
	Character string `json:"character"`
	Emotion   string `json:"emotion"`
	Text      string `json:"text"`
}

// Choice is a labeled edge from a scene to a target scene.
type Choice struct {
	Label       string `json:"label"`
	TargetScene string `json:"targetScene"`
}
