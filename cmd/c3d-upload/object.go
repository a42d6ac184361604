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

package main

import (
	"context"
	"fmt"

	"github.com/cognitive3d/uploader"
	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/spf13/cobra"
)

func objectCommand() *cobra.Command {
	var (
		dir          string
		sceneFlag    string
		objectID     string
		pushManifest bool
		withRetry    bool
	)

	cmd := &cobra.Command{
		Use:   "object",
		Short: "Upload an object directory and reconcile the scene's object manifest",
		Long: "Uploads {name}.gltf, {name}.bin, cvr_object_thumbnail.png and every texture\n" +
			".png in the directory, then merges the object into the scene's manifest file.\n" +
			"Without --object-id the manifest entry id defaults to the object filename.",
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := sceneID(sceneFlag)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			var result *uploader.ObjectUploadResult
			op := func(ctx context.Context) (*outcome.Outcome, error) {
				result, err = client.UploadObject(ctx, &uploader.ObjectUploadRequest{
					SceneID:      scene,
					Dir:          dir,
					ObjectID:     objectID,
					PushManifest: pushManifest,
				})
				if err != nil {
					return nil, err
				}
				return result.Outcome, nil
			}

			out, err := runOperation(cmd.Context(), op, withRetry)
			if err != nil {
				return err
			}
			err = reportOutcome(out)
			if err != nil {
				return err
			}
			if result.ManifestOutcome != nil {
				err = reportOutcome(result.ManifestOutcome)
				if err != nil {
					return err
				}
			}

			fmt.Printf("uploaded object %s (manifest: %s)\n", result.ObjectID, result.ManifestPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "The object directory")
	cmd.Flags().StringVar(&sceneFlag, "scene-id", "", "The target scene id (defaults to the configured scene)")
	cmd.Flags().StringVar(&objectID, "object-id", "", "The object id (defaults to the object filename)")
	cmd.Flags().BoolVar(&pushManifest, "push-manifest", false, "Upload the merged manifest after the object")
	cmd.Flags().BoolVar(&withRetry, "retry", false, "Retry transient failures with backoff")
	return cmd
}
