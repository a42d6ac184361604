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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cognitive3d/uploader/pkg/models"
	"github.com/cognitive3d/uploader/pkg/multipart"
	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/google/uuid"
)

const (
	sceneBinaryFileName     = "scene.bin"
	sceneGltfFileName       = "scene.gltf"
	sceneScreenshotFileName = "screenshot.png"
	sceneSettingsFileName   = "settings.json"
	sdkVersionFileName      = "sdk-version.txt"
	settingsBackupSuffix    = ".bak"
)

// The platform accepts plain x.y.z versions only, no pre-release or build
// tags.
var semanticVersionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

type SceneUploadRequest struct {
	// Dir holds scene.bin, scene.gltf, screenshot.png, settings.json and
	// sdk-version.txt.
	Dir string

	// SceneID selects the scene to update. Empty uploads a new scene.
	SceneID string
}

type SceneUploadResult struct {
	Outcome *outcome.Outcome

	// SceneID is the id returned by the platform for a new scene, or the
	// requested id for an update.
	SceneID string

	// Version is the version that was current before an update. Zero value
	// for new scenes.
	Version models.SceneVersion
}

// UploadScene pushes the four scene files as one multipart request. The SDK
// version from sdk-version.txt is injected into settings.json before
// transmission; the settings file is backed up first and restored
// byte-identical on every failure path, so a failed upload never leaves it
// mutated. Updates resolve the scene's current version first and thread it
// into the URL as ?version=N.
//
// The platform contract guarantees only 200 and 201 for this endpoint, so any
// other 2xx is rejected as unexpected.
func (c *Client) UploadScene(ctx context.Context, req *SceneUploadRequest) (*SceneUploadResult, error) {
	files := []multipart.Part{
		{Field: sceneBinaryFileName, Path: filepath.Join(req.Dir, sceneBinaryFileName)},
		{Field: sceneGltfFileName, Path: filepath.Join(req.Dir, sceneGltfFileName)},
		{Field: sceneScreenshotFileName, Path: filepath.Join(req.Dir, sceneScreenshotFileName)},
		{Field: sceneSettingsFileName, Path: filepath.Join(req.Dir, sceneSettingsFileName)},
	}
	for _, f := range files {
		err := validateUploadFile(f.Path)
		if err != nil {
			return nil, err
		}
	}

	sdkVersion, err := readSDKVersion(filepath.Join(req.Dir, sdkVersionFileName))
	if err != nil {
		return nil, err
	}

	updating := req.SceneID != ""
	if updating {
		_, err = uuid.Parse(req.SceneID)
		if err != nil {
			return nil, fmt.Errorf("invalid scene id %q: %w", req.SceneID, err)
		}
	}

	var version models.SceneVersion
	if updating {
		v, failed, err := c.sceneVersion(ctx, req.SceneID)
		if err != nil {
			return nil, err
		}
		if failed != nil {
			return &SceneUploadResult{Outcome: failed, SceneID: req.SceneID}, nil
		}
		version = v
	}

	settingsPath := filepath.Join(req.Dir, sceneSettingsFileName)
	original, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", settingsPath, err)
	}
	backupPath := settingsPath + settingsBackupSuffix
	err = os.WriteFile(backupPath, original, 0644)
	if err != nil {
		return nil, fmt.Errorf("error backing up %s: %w", settingsPath, err)
	}

	// From here every failure path must put settings.json back exactly as it
	// was. The backup file is only removed once it has served its purpose.
	committed := false
	defer func() {
		if !committed {
			_ = os.WriteFile(settingsPath, original, 0644)
		}
		_ = os.Remove(backupPath)
	}()

	var settings map[string]interface{}
	err = json.Unmarshal(original, &settings)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", settingsPath, err)
	}
	settings["sdkVersion"] = sdkVersion
	mutated, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error serializing %s: %w", settingsPath, err)
	}
	err = os.WriteFile(settingsPath, mutated, 0644)
	if err != nil {
		return nil, fmt.Errorf("error writing %s: %w", settingsPath, err)
	}

	payload, err := multipart.Encode(files)
	if err != nil {
		return nil, err
	}

	requestURL := c.baseURL.String() + "/scenes"
	if updating {
		requestURL += "/" + req.SceneID + "?version=" + strconv.Itoa(version.VersionNumber)
	}

	c.logger.Info().Str("url", requestURL).Str("sdkVersion", sdkVersion).Msg("uploading scene")
	res := c.send(ctx, http.MethodPost, requestURL, payload.Body, payload.ContentType)
	out := outcome.Classify(res)
	result := &SceneUploadResult{Outcome: out, SceneID: req.SceneID, Version: version}
	if !out.Succeeded() {
		c.logger.Warn().Str("kind", string(out.Kind)).Msg("scene upload failed")
		return result, nil
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d from scene upload", res.StatusCode)
	}

	if !updating {
		id := strings.TrimSpace(res.Body)
		_, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("unexpected scene id %q in upload response: %w", id, err)
		}
		result.SceneID = id
	}

	committed = true
	c.logger.Info().Str("sceneId", result.SceneID).Msg("scene uploaded")
	return result, nil
}

// sceneVersion resolves the scene's current version: GET the scene, pick the
// version with the highest version number. The second return is non-nil only
// when the request completed with a classified failure.
func (c *Client) sceneVersion(ctx context.Context, sceneID string) (models.SceneVersion, *outcome.Outcome, error) {
	res := c.send(ctx, http.MethodGet, c.baseURL.String()+"/scenes/"+sceneID, nil, "")
	out := outcome.Classify(res)
	if !out.Succeeded() {
		return models.SceneVersion{}, out, nil
	}

	var scene models.Scene
	err := json.Unmarshal([]byte(res.Body), &scene)
	if err != nil {
		return models.SceneVersion{}, nil, fmt.Errorf("error parsing scene response for %s: %w", sceneID, err)
	}
	version, ok := scene.CurrentVersion()
	if !ok {
		return models.SceneVersion{}, nil, fmt.Errorf("scene %s has no versions", sceneID)
	}
	return version, nil, nil
}

func validateUploadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("required file missing: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("required file %s is a directory", path)
	}
	if info.Size() > maxUploadFileSize {
		return fmt.Errorf("file %s is %d bytes, above the %d byte upload limit", path, info.Size(), int64(maxUploadFileSize))
	}
	return nil
}

func readSDKVersion(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading sdk version file: %w", err)
	}
	version := strings.TrimSpace(string(data))
	if !semanticVersionPattern.MatchString(version) {
		return "", fmt.Errorf("sdk version %q in %s is not in x.y.z form", version, path)
	}
	return version, nil
}
