/*
	Copyright 2023 Cognitive3D

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

		   http://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

// Package manifest owns the per-scene object manifest file
// ({sceneId}_object_manifest.json): the merged, authoritative on-disk record
// of every object uploaded to a scene, with its transform defaults.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Fixed is a float that serializes with exactly four decimal places, matching
// the platform's expected transform precision. Repeated saves of the same
// entry produce byte-identical output.
type Fixed float64

func (f Fixed) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', 4, 64)), nil
}

type Vec3 [3]Fixed

type Quat [4]Fixed

func DefaultScale() Vec3 {
	return Vec3{1, 1, 1}
}

func DefaultPosition() Vec3 {
	return Vec3{0, 0, 0}
}

func DefaultRotation() Quat {
	return Quat{0, 0, 0, 1}
}

// Entry describes one uploaded object. ID is the merge key and must be unique
// within a manifest.
type Entry struct {
	ID       string `json:"id"`
	Mesh     string `json:"mesh"`
	Name     string `json:"name"`
	Scale    Vec3   `json:"scaleCustom"`
	Position Vec3   `json:"initialPosition"`
	Rotation Quat   `json:"initialRotation"`
}

// NewEntry returns an Entry carrying the platform's transform defaults.
func NewEntry(id string, mesh string, name string) Entry {
	return Entry{
		ID:       id,
		Mesh:     mesh,
		Name:     name,
		Scale:    DefaultScale(),
		Position: DefaultPosition(),
		Rotation: DefaultRotation(),
	}
}

// Manifest is the ordered collection of entries for one scene.
type Manifest struct {
	Objects []Entry `json:"objects"`
}

// Merge replaces the existing entry with the same id in place, preserving its
// position, or appends when the id is new. The second write wins field for
// field.
func (m *Manifest) Merge(entry Entry) {
	for i, existing := range m.Objects {
		if existing.ID == entry.ID {
			m.Objects[i] = entry
			return
		}
	}
	m.Objects = append(m.Objects, entry)
}

// Lookup returns the entry with the given id, if present.
func (m *Manifest) Lookup(id string) (Entry, bool) {
	for _, entry := range m.Objects {
		if entry.ID == id {
			return entry, true
		}
	}
	return Entry{}, false
}

func (m *Manifest) Len() int {
	return len(m.Objects)
}

// Store reads and writes manifest files under a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the manifest file path for a scene.
func (s *Store) Path(sceneID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_object_manifest.json", sceneID))
}

// Exists reports whether a manifest file has been written for the scene.
func (s *Store) Exists(sceneID string) bool {
	_, err := os.Stat(s.Path(sceneID))
	return err == nil
}

// Load reads the scene's manifest. An absent file is an empty manifest; a
// present file that is not valid JSON is an error, because silently starting
// over would drop previously uploaded objects from the record.
func (s *Store) Load(sceneID string) (*Manifest, error) {
	data, err := os.ReadFile(s.Path(sceneID))
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, fmt.Errorf("error reading object manifest for scene %s: %w", sceneID, err)
	}

	m := new(Manifest)
	err = json.Unmarshal(data, m)
	if err != nil {
		return nil, fmt.Errorf("error parsing object manifest %s: %w", s.Path(sceneID), err)
	}
	return m, nil
}

// Save serializes the full manifest back to disk, replacing the prior file.
// This is the write half of the read-modify-write cycle: Load, Merge, Save.
func (s *Store) Save(sceneID string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error serializing object manifest for scene %s: %w", sceneID, err)
	}
	err = os.WriteFile(s.Path(sceneID), append(data, '\n'), 0644)
	if err != nil {
		return fmt.Errorf("error writing object manifest %s: %w", s.Path(sceneID), err)
	}
	return nil
}
