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

func manifestCommand() *cobra.Command {
	var (
		sceneFlag string
		withRetry bool
	)

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Upload the scene's on-disk object manifest",
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

			var result *uploader.ManifestUploadResult
			op := func(ctx context.Context) (*outcome.Outcome, error) {
				result, err = client.UploadManifest(ctx, scene)
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

			fmt.Printf("uploaded manifest %s (scene version %d)\n", result.Path, result.Version.VersionNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&sceneFlag, "scene-id", "", "The target scene id (defaults to the configured scene)")
	cmd.Flags().BoolVar(&withRetry, "retry", false, "Retry transient failures with backoff")
	return cmd
}
