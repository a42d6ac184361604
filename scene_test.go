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

package uploader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSceneID    = "8b0c5f66-90f3-4f5a-9c8a-2f1f3e9b0d11"
	testNewSceneID = "4f6a1f0e-5b2c-4d3e-8f9a-0b1c2d3e4f5a"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := zerolog.Nop()
	client, err := New(&Options{
		LogName:     "service",
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		ManifestDir: t.TempDir(),
	}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func writeSceneDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"scene.bin":       {0x00, 0x01, 0x02, 0xFF},
		"scene.gltf":      []byte(`{"asset":{"version":"2.0"}}`),
		"screenshot.png":  {0x89, 'P', 'N', 'G'},
		"settings.json":   []byte(`{"sceneName":"Warehouse","sdkVersion":"0.0.0"}`),
		"sdk-version.txt": []byte("1.2.3\n"),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0644))
	}
	return dir
}

// multipartFields parses the request body and returns field name -> content.
func multipartFields(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	reader, err := r.MultipartReader()
	require.NoError(t, err)
	fields := make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		fields[part.FormName()] = string(data)
	}
	return fields
}

func TestUploadSceneNew(t *testing.T) {
	var seen struct {
		auth      string
		userAgent string
		fields    map[string]string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/scenes", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("version"))
		seen.auth = r.Header.Get("Authorization")
		seen.userAgent = r.Header.Get("User-Agent")
		seen.fields = multipartFields(t, r)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(testNewSceneID))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	dir := writeSceneDir(t)

	result, err := client.UploadScene(context.Background(), &SceneUploadRequest{Dir: dir})
	require.NoError(t, err)
	require.True(t, result.Outcome.Succeeded())

	assert.Regexp(t, uuidShape, result.SceneID)
	assert.Equal(t, testNewSceneID, result.SceneID)

	// The vendor auth scheme goes over the wire verbatim.
	assert.Equal(t, "APIKEY:DEVELOPER test-key", seen.auth)
	assert.Equal(t, "cognitive3d-uploader/1.0", seen.userAgent)

	require.Len(t, seen.fields, 4)
	assert.Contains(t, seen.fields, "scene.bin")
	assert.Contains(t, seen.fields, "scene.gltf")
	assert.Contains(t, seen.fields, "screenshot.png")
	assert.Contains(t, seen.fields["settings.json"], `"sdkVersion": "1.2.3"`)

	// Success commits the settings mutation and discards the backup.
	settings, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)
	assert.Contains(t, string(settings), "1.2.3")
	_, err = os.Stat(filepath.Join(dir, "settings.json.bak"))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadSceneUpdate(t *testing.T) {
	var postedVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			require.Equal(t, "/scenes/"+testSceneID, r.URL.Path)
			_, _ = w.Write([]byte(`{"id":"` + testSceneID + `","versions":[{"id":101,"versionNumber":1},{"id":305,"versionNumber":3},{"id":204,"versionNumber":2}]}`))
		case http.MethodPost:
			require.Equal(t, "/scenes/"+testSceneID, r.URL.Path)
			postedVersion = r.URL.Query().Get("version")
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.UploadScene(context.Background(), &SceneUploadRequest{
		Dir:     writeSceneDir(t),
		SceneID: testSceneID,
	})
	require.NoError(t, err)
	require.True(t, result.Outcome.Succeeded())

	assert.Equal(t, testSceneID, result.SceneID)
	assert.Equal(t, 3, result.Version.VersionNumber)
	assert.Equal(t, "3", postedVersion)
}

func TestUploadSceneFailureRestoresSettings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	dir := writeSceneDir(t)
	settingsPath := filepath.Join(dir, "settings.json")
	original, err := os.ReadFile(settingsPath)
	require.NoError(t, err)

	result, err := client.UploadScene(context.Background(), &SceneUploadRequest{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, outcome.ServerError, result.Outcome.Kind)

	restored, err := os.ReadFile(settingsPath)
	require.NoError(t, err)
	assert.Equal(t, original, restored, "settings.json must be byte-identical after a failed upload")
	_, err = os.Stat(settingsPath + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestUploadSceneRejectsUnexpectedSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	dir := writeSceneDir(t)
	original, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	_, err = client.UploadScene(context.Background(), &SceneUploadRequest{Dir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "204")

	restored, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestUploadSceneValidationFailsBeforeAnyNetworkCall(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()
	client := newTestClient(t, server.URL)

	t.Run("missing screenshot", func(t *testing.T) {
		dir := writeSceneDir(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "screenshot.png")))
		_, err := client.UploadScene(context.Background(), &SceneUploadRequest{Dir: dir})
		require.Error(t, err)
	})

	t.Run("malformed sdk version", func(t *testing.T) {
		dir := writeSceneDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sdk-version.txt"), []byte("1.2"), 0644))
		_, err := client.UploadScene(context.Background(), &SceneUploadRequest{Dir: dir})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x.y.z")
	})

	t.Run("bad scene id", func(t *testing.T) {
		_, err := client.UploadScene(context.Background(), &SceneUploadRequest{
			Dir:     writeSceneDir(t),
			SceneID: "not-a-uuid",
		})
		require.Error(t, err)
	})

	assert.Equal(t, 0, requests, "local validation failures must not reach the server")
}

func TestUploadSceneRejectsNonUUIDResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("something went sideways"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	dir := writeSceneDir(t)
	original, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)

	_, err = client.UploadScene(context.Background(), &SceneUploadRequest{Dir: dir})
	require.Error(t, err)

	restored, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestUploadSceneExpiredKeyHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"API key expired"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.UploadScene(context.Background(), &SceneUploadRequest{Dir: writeSceneDir(t)})
	require.NoError(t, err)
	assert.Equal(t, outcome.Unauthorized, result.Outcome.Kind)
	assert.Contains(t, result.Outcome.Hint, "expired")
}
