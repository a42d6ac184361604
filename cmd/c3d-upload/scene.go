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
	"github.com/cognitive3d/uploader/pkg/retry"
	"github.com/spf13/cobra"
)

func sceneCommand() *cobra.Command {
	var (
		dir       string
		sceneFlag string
		withRetry bool
	)

	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Upload a scene directory (scene.bin, scene.gltf, screenshot.png, settings.json)",
		Long: "Uploads the four scene files as one multipart request. Without --scene-id a new\n" +
			"scene is created and its id printed; with --scene-id the existing scene is\n" +
			"updated at its current version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			var result *uploader.SceneUploadResult
			op := func(ctx context.Context) (*outcome.Outcome, error) {
				result, err = client.UploadScene(ctx, &uploader.SceneUploadRequest{
					Dir:     dir,
					SceneID: sceneFlag,
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

			fmt.Println(result.SceneID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "The scene directory")
	cmd.Flags().StringVar(&sceneFlag, "scene-id", "", "Update this existing scene instead of creating a new one")
	cmd.Flags().BoolVar(&withRetry, "retry", false, "Retry transient failures with backoff")
	return cmd
}

// runOperation optionally wraps an operation in the default retry policy.
func runOperation(ctx context.Context, op retry.Operation, withRetry bool) (*outcome.Outcome, error) {
	if !withRetry {
		return op(ctx)
	}
	return retry.Do(ctx, retry.DefaultPolicy(), &logger, op)
}
