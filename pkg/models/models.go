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

package models

// Scene is the response of GET /scenes/{sceneId}.
type Scene struct {
	ID       string         `json:"id"`
	Name     string         `json:"sceneName"`
	Versions []SceneVersion `json:"versions"`
}

type SceneVersion struct {
	ID            int `json:"id"`
	VersionNumber int `json:"versionNumber"`
}

// CurrentVersion returns the version with the highest version number. The
// second return is false when the scene has no versions at all.
func (s *Scene) CurrentVersion() (SceneVersion, bool) {
	if len(s.Versions) == 0 {
		return SceneVersion{}, false
	}
	current := s.Versions[0]
	for _, v := range s.Versions[1:] {
		if v.VersionNumber > current.VersionNumber {
			current = v
		}
	}
	return current, true
}

// ObjectRecord is one element of the GET /versions/{versionId}/objects
// response. Transform fields are omitted by the server when an object was
// registered without them.
type ObjectRecord struct {
	SdkID           string    `json:"sdkId"`
	MeshName        string    `json:"meshName"`
	Name            string    `json:"name"`
	ScaleCustom     []float64 `json:"scaleCustom,omitempty"`
	InitialPosition []float64 `json:"initialPosition,omitempty"`
	InitialRotation []float64 `json:"initialRotation,omitempty"`
}
