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
	"encoding/json"
	"fmt"
	"os"

	"github.com/cognitive3d/uploader"
	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/spf13/cobra"
)

func listCommand() *cobra.Command {
	var (
		sceneFlag  string
		outFile    string
		asManifest bool
		withRetry  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the objects registered for the scene's current version",
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

			var listing *uploader.ObjectListing
			op := func(ctx context.Context) (*outcome.Outcome, error) {
				listing, err = client.ListObjects(ctx, scene)
				if err != nil {
					return nil, err
				}
				return listing.Outcome, nil
			}

			out, err := runOperation(cmd.Context(), op, withRetry)
			if err != nil {
				return err
			}
			err = reportOutcome(out)
			if err != nil {
				return err
			}

			if outFile != "" {
				content := []byte(listing.Raw)
				if asManifest {
					content, err = json.MarshalIndent(listing.ToManifest(), "", "  ")
					if err != nil {
						return err
					}
					content = append(content, '\n')
				}
				err = os.WriteFile(outFile, content, 0644)
				if err != nil {
					return err
				}
			}

			for _, record := range listing.Objects {
				fmt.Printf("%s\t%s\t%s\n", record.SdkID, record.MeshName, record.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sceneFlag, "scene-id", "", "The target scene id (defaults to the configured scene)")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the listing to this file")
	cmd.Flags().BoolVar(&asManifest, "as-manifest", false, "Write the listing in object manifest form (with --out)")
	cmd.Flags().BoolVar(&withRetry, "retry", false, "Retry transient failures with backoff")
	return cmd
}
