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

package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSceneID = "8b0c5f66-90f3-4f5a-9c8a-2f1f3e9b0d11"

func TestMergeAppendsNewIDs(t *testing.T) {
	m := new(Manifest)
	m.Merge(NewEntry("cube", "cube", "cube"))
	m.Merge(NewEntry("lantern", "lantern", "lantern"))

	assert.Equal(t, 2, m.Len())
	_, ok := m.Lookup("cube")
	assert.True(t, ok)
	_, ok = m.Lookup("lantern")
	assert.True(t, ok)
}

func TestMergeReplacesInPlace(t *testing.T) {
	m := new(Manifest)
	m.Merge(NewEntry("cube", "cube", "cube"))
	m.Merge(NewEntry("lantern", "lantern", "lantern"))

	updated := NewEntry("cube", "cube_lod0", "Cube (updated)")
	updated.Scale = Vec3{2, 2, 2}
	m.Merge(updated)

	require.Equal(t, 2, m.Len())
	// Position in the ordered collection is preserved.
	assert.Equal(t, "cube", m.Objects[0].ID)
	assert.Equal(t, "cube_lod0", m.Objects[0].Mesh)
	assert.Equal(t, Vec3{2, 2, 2}, m.Objects[0].Scale)
	assert.Equal(t, "lantern", m.Objects[1].ID)
}

func TestMergeIdempotent(t *testing.T) {
	m := new(Manifest)
	entry := NewEntry("cube", "cube", "cube")
	m.Merge(entry)
	m.Merge(entry)

	assert.Equal(t, 1, m.Len())
}

func TestEntryDefaults(t *testing.T) {
	entry := NewEntry("cube", "cube", "cube")
	assert.Equal(t, Vec3{1, 1, 1}, entry.Scale)
	assert.Equal(t, Vec3{0, 0, 0}, entry.Position)
	assert.Equal(t, Quat{0, 0, 0, 1}, entry.Rotation)
}

func TestFixedPrecisionSerialization(t *testing.T) {
	entry := NewEntry("cube", "cube", "cube")
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"scaleCustom":[1.0000,1.0000,1.0000]`)
	assert.Contains(t, string(data), `"initialPosition":[0.0000,0.0000,0.0000]`)
	assert.Contains(t, string(data), `"initialRotation":[0.0000,0.0000,0.0000,1.0000]`)
}

func TestFixedRoundTrip(t *testing.T) {
	entry := NewEntry("cube", "cube", "cube")
	entry.Position = Vec3{1.5, -2.25, 0.125}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestLoadAbsentFileIsEmptyManifest(t *testing.T) {
	store := NewStore(t.TempDir())
	m, err := store.Load(testSceneID)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestLoadInvalidJSONFailsLoudly(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.Path(testSceneID), []byte("{not json"), 0644))

	_, err := store.Load(testSceneID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object manifest")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	m := new(Manifest)
	m.Merge(NewEntry("cube", "cube", "cube"))
	m.Merge(NewEntry("lantern", "lantern", "lantern"))
	require.NoError(t, store.Save(testSceneID, m))
	assert.True(t, store.Exists(testSceneID))

	loaded, err := store.Load(testSceneID)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestSaveIsByteStableForUnchangedInput(t *testing.T) {
	store := NewStore(t.TempDir())
	m := new(Manifest)
	m.Merge(NewEntry("cube", "cube", "cube"))

	require.NoError(t, store.Save(testSceneID, m))
	first, err := os.ReadFile(store.Path(testSceneID))
	require.NoError(t, err)

	loaded, err := store.Load(testSceneID)
	require.NoError(t, err)
	loaded.Merge(NewEntry("cube", "cube", "cube"))
	require.NoError(t, store.Save(testSceneID, loaded))
	second, err := os.ReadFile(store.Path(testSceneID))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPathNamingConvention(t *testing.T) {
	store := NewStore("/data/scenes")
	assert.Equal(t,
		filepath.Join("/data/scenes", testSceneID+"_object_manifest.json"),
		store.Path(testSceneID))
}
