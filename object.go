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
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cognitive3d/uploader/pkg/manifest"
	"github.com/cognitive3d/uploader/pkg/models"
	"github.com/cognitive3d/uploader/pkg/multipart"
	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/google/uuid"
)

const objectThumbnailFileName = "cvr_object_thumbnail.png"

type ObjectUploadRequest struct {
	SceneID string

	// Dir holds {name}.gltf, {name}.bin, cvr_object_thumbnail.png and any
	// number of texture .png files.
	Dir string

	// ObjectID is the manifest merge key. Empty derives it from the object
	// filename.
	ObjectID string

	// PushManifest uploads the merged manifest right after a successful
	// object upload.
	PushManifest bool
}

type ObjectUploadResult struct {
	Outcome  *outcome.Outcome
	ObjectID string
	Version  models.SceneVersion

	// ManifestPath is the on-disk manifest updated after a successful upload.
	ManifestPath string

	// ManifestOutcome is set when PushManifest was requested and the object
	// upload succeeded.
	ManifestOutcome *outcome.Outcome
}

// UploadObject pushes an object's gltf, bin, thumbnail and discovered texture
// files as one multipart request, then reconciles the scene's object manifest
// on disk: the entry for this object id is updated in place if present,
// appended otherwise. Prior entries are never dropped.
func (c *Client) UploadObject(ctx context.Context, req *ObjectUploadRequest) (*ObjectUploadResult, error) {
	_, err := uuid.Parse(req.SceneID)
	if err != nil {
		return nil, fmt.Errorf("invalid scene id %q: %w", req.SceneID, err)
	}

	name, parts, err := discoverObjectFiles(req.Dir)
	if err != nil {
		return nil, err
	}

	objectID := req.ObjectID
	if objectID == "" {
		objectID = name
	}

	version, failed, err := c.sceneVersion(ctx, req.SceneID)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return &ObjectUploadResult{Outcome: failed, ObjectID: objectID}, nil
	}

	payload, err := multipart.Encode(parts)
	if err != nil {
		return nil, err
	}

	requestURL := c.baseURL.String() + "/objects/" + req.SceneID + "/" + objectID +
		"?version=" + strconv.Itoa(version.VersionNumber)

	c.logger.Info().
		Str("url", requestURL).
		Str("objectId", objectID).
		Int("parts", len(parts)).
		Msg("uploading object")
	res := c.send(ctx, http.MethodPost, requestURL, payload.Body, payload.ContentType)
	out := outcome.Classify(res)
	result := &ObjectUploadResult{Outcome: out, ObjectID: objectID, Version: version}
	if !out.Succeeded() {
		c.logger.Warn().Str("kind", string(out.Kind)).Msg("object upload failed")
		return result, nil
	}

	m, err := c.manifests.Load(req.SceneID)
	if err != nil {
		return result, err
	}
	m.Merge(manifest.NewEntry(objectID, name, objectID))
	err = c.manifests.Save(req.SceneID, m)
	if err != nil {
		return result, err
	}
	result.ManifestPath = c.manifests.Path(req.SceneID)
	c.logger.Info().
		Str("objectId", objectID).
		Int("manifestObjects", m.Len()).
		Msg("object uploaded, manifest updated")

	if req.PushManifest {
		mr, err := c.UploadManifest(ctx, req.SceneID)
		if err != nil {
			return result, err
		}
		result.ManifestOutcome = mr.Outcome
	}

	return result, nil
}

type ManifestUploadResult struct {
	Outcome *outcome.Outcome
	Version models.SceneVersion
	Path    string
}

// UploadManifest sends the scene's on-disk object manifest as a JSON body.
// The manifest must already exist, which a prior UploadObject guarantees.
func (c *Client) UploadManifest(ctx context.Context, sceneID string) (*ManifestUploadResult, error) {
	_, err := uuid.Parse(sceneID)
	if err != nil {
		return nil, fmt.Errorf("invalid scene id %q: %w", sceneID, err)
	}

	if !c.manifests.Exists(sceneID) {
		return nil, fmt.Errorf("no object manifest for scene %s: upload an object first", sceneID)
	}
	m, err := c.manifests.Load(sceneID)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error serializing object manifest for scene %s: %w", sceneID, err)
	}

	version, failed, err := c.sceneVersion(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return &ManifestUploadResult{Outcome: failed}, nil
	}

	requestURL := c.baseURL.String() + "/objects/" + sceneID +
		"?version=" + strconv.Itoa(version.VersionNumber)

	c.logger.Info().Str("url", requestURL).Int("objects", m.Len()).Msg("uploading object manifest")
	res := c.send(ctx, http.MethodPost, requestURL, body, "application/json")
	out := outcome.Classify(res)
	if !out.Succeeded() {
		c.logger.Warn().Str("kind", string(out.Kind)).Msg("manifest upload failed")
	}
	return &ManifestUploadResult{
		Outcome: out,
		Version: version,
		Path:    c.manifests.Path(sceneID),
	}, nil
}

type ObjectListing struct {
	Outcome *outcome.Outcome
	SceneID string
	Version models.SceneVersion
	Objects []models.ObjectRecord

	// Raw is the verbatim response body, for callers persisting the listing.
	Raw string
}

// ListObjects resolves the scene's current version and fetches that version's
// registered objects.
func (c *Client) ListObjects(ctx context.Context, sceneID string) (*ObjectListing, error) {
	_, err := uuid.Parse(sceneID)
	if err != nil {
		return nil, fmt.Errorf("invalid scene id %q: %w", sceneID, err)
	}

	version, failed, err := c.sceneVersion(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return &ObjectListing{Outcome: failed, SceneID: sceneID}, nil
	}

	requestURL := c.baseURL.String() + "/versions/" + strconv.Itoa(version.ID) + "/objects"
	res := c.send(ctx, http.MethodGet, requestURL, nil, "")
	out := outcome.Classify(res)
	listing := &ObjectListing{Outcome: out, SceneID: sceneID, Version: version, Raw: res.Body}
	if !out.Succeeded() {
		return listing, nil
	}

	err = json.Unmarshal([]byte(res.Body), &listing.Objects)
	if err != nil {
		return nil, fmt.Errorf("error parsing object listing for scene %s: %w", sceneID, err)
	}
	return listing, nil
}

// ToManifest reformats the listing into the manifest document shape, so a
// listing can be saved and reused as an upload input. Records missing
// transform fields get the platform defaults.
func (l *ObjectListing) ToManifest() *manifest.Manifest {
	m := new(manifest.Manifest)
	for _, rec := range l.Objects {
		entry := manifest.NewEntry(rec.SdkID, rec.MeshName, rec.Name)
		if len(rec.ScaleCustom) == 3 {
			entry.Scale = manifest.Vec3{
				manifest.Fixed(rec.ScaleCustom[0]),
				manifest.Fixed(rec.ScaleCustom[1]),
				manifest.Fixed(rec.ScaleCustom[2]),
			}
		}
		if len(rec.InitialPosition) == 3 {
			entry.Position = manifest.Vec3{
				manifest.Fixed(rec.InitialPosition[0]),
				manifest.Fixed(rec.InitialPosition[1]),
				manifest.Fixed(rec.InitialPosition[2]),
			}
		}
		if len(rec.InitialRotation) == 4 {
			entry.Rotation = manifest.Quat{
				manifest.Fixed(rec.InitialRotation[0]),
				manifest.Fixed(rec.InitialRotation[1]),
				manifest.Fixed(rec.InitialRotation[2]),
				manifest.Fixed(rec.InitialRotation[3]),
			}
		}
		m.Merge(entry)
	}
	return m
}

// discoverObjectFiles locates the object's gltf (exactly one per directory),
// its sibling bin, the thumbnail, and every other .png as a texture part.
func discoverObjectFiles(dir string) (string, []multipart.Part, error) {
	gltfs, err := filepath.Glob(filepath.Join(dir, "*.gltf"))
	if err != nil {
		return "", nil, fmt.Errorf("error scanning %s: %w", dir, err)
	}
	if len(gltfs) == 0 {
		return "", nil, fmt.Errorf("no .gltf file in %s", dir)
	}
	if len(gltfs) > 1 {
		return "", nil, fmt.Errorf("multiple .gltf files in %s, expected one object per directory", dir)
	}
	gltfPath := gltfs[0]
	name := strings.TrimSuffix(filepath.Base(gltfPath), ".gltf")

	binPath := filepath.Join(dir, name+".bin")
	thumbnailPath := filepath.Join(dir, objectThumbnailFileName)
	parts := []multipart.Part{
		{Field: name + ".gltf", Path: gltfPath},
		{Field: name + ".bin", Path: binPath},
		{Field: objectThumbnailFileName, Path: thumbnailPath},
	}

	pngs, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return "", nil, fmt.Errorf("error scanning %s for textures: %w", dir, err)
	}
	for _, png := range pngs {
		if filepath.Base(png) == objectThumbnailFileName {
			continue
		}
		parts = append(parts, multipart.Part{Field: filepath.Base(png), Path: png})
	}

	for _, part := range parts {
		err = validateUploadFile(part.Path)
		if err != nil {
			return "", nil, err
		}
	}
	return name, parts, nil
}
