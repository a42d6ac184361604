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
	"fmt"
	"os"
	"time"

	"github.com/cognitive3d/uploader"
	"github.com/cognitive3d/uploader/pkg/config"
	"github.com/cognitive3d/uploader/pkg/outcome"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg     = config.New()
	envFile string
	logger  zerolog.Logger
)

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "c3d-upload",
		Short:         "Upload 3D scene and object assets to the Cognitive3D platform",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := cfg.LoadDotEnv(envFile)
			if err != nil {
				return err
			}
			err = cfg.Validate()
			if err != nil {
				return err
			}

			level := zerolog.InfoLevel
			if cfg.Verbose {
				level = zerolog.DebugLevel
			}
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				Level(level).
				With().
				Timestamp().
				Logger()
			return nil
		},
	}

	cfg.RootPersistentFlags(root.PersistentFlags())
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (defaults to ./.env when present)")

	root.AddCommand(sceneCommand())
	root.AddCommand(objectCommand())
	root.AddCommand(manifestCommand())
	root.AddCommand(listCommand())
	return root
}

func newClient() (*uploader.Client, error) {
	options, err := cfg.GenerateOptions("service")
	if err != nil {
		return nil, err
	}
	return uploader.New(options, &logger)
}

// reportOutcome prints the remediation hint for a classified failure and
// turns it into a command error so the process exits non-zero.
func reportOutcome(out *outcome.Outcome) error {
	if out.Succeeded() {
		return nil
	}
	if out.Hint != "" {
		fmt.Fprintln(os.Stderr, out.Hint)
	}
	if out.Result != nil && out.Result.StatusCode != 0 {
		return fmt.Errorf("request failed: %s (status %d)", out.Kind, out.Result.StatusCode)
	}
	return fmt.Errorf("request failed: %s", out.Kind)
}

// sceneID resolves the per-command scene id flag against the configured
// default.
func sceneID(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.SceneID != "" {
		return cfg.SceneID, nil
	}
	return "", fmt.Errorf("a scene id is required: pass --scene-id or set C3D_SCENE_ID")
}
