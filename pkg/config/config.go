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

package config

import (
	"errors"
	"os"
	"time"

	"github.com/cognitive3d/uploader"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	ErrAPIKeyRequired     = errors.New("cognitive3d api key is required")
	ErrInvalidEnvironment = errors.New("environment must be 'prod' or 'dev'")
	ErrInvalidSceneID     = errors.New("scene id must be a valid uuid")
	ErrInvalidTimeout     = errors.New("timeout must be greater than zero")
)

const (
	DefaultEnvironment    = "prod"
	DefaultTimeoutSeconds = 300
	DefaultVerbose        = false
)

type Config struct {
	APIKey         string `mapstructure:"api_key"`
	Environment    string `mapstructure:"environment"`
	SceneID        string `mapstructure:"scene_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ManifestDir    string `mapstructure:"manifest_dir"`
	Verbose        bool   `mapstructure:"verbose"`
}

func New() *Config {
	return &Config{
		Environment:    DefaultEnvironment,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Verbose:        DefaultVerbose,
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}

	if c.Environment != "prod" && c.Environment != "dev" {
		return ErrInvalidEnvironment
	}

	if c.SceneID != "" {
		if _, err := uuid.Parse(c.SceneID); err != nil {
			return ErrInvalidSceneID
		}
	}

	if c.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}

func (c *Config) RootPersistentFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.APIKey, "api-key", "", "The Cognitive3D developer API key")
	flags.StringVar(&c.Environment, "environment", DefaultEnvironment, "The target environment ('prod' or 'dev')")
	flags.StringVar(&c.SceneID, "scene-id", "", "The default scene id")
	flags.IntVar(&c.TimeoutSeconds, "timeout", DefaultTimeoutSeconds, "The per-request timeout in seconds")
	flags.StringVar(&c.ManifestDir, "manifest-dir", "", "The directory holding object manifest files (defaults to the working directory)")
	flags.BoolVar(&c.Verbose, "verbose", DefaultVerbose, "Enable debug logging")
}

// LoadDotEnv loads a .env file (the default search path when path is empty)
// and fills any field not already set by a flag from the C3D_* environment
// variables. Flags always win over the environment.
func (c *Config) LoadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return err
		}
	} else {
		// A missing default .env file is not an error.
		_ = godotenv.Load()
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("C3D_API_KEY")
	}
	if v := os.Getenv("C3D_ENVIRONMENT"); v != "" && c.Environment == DefaultEnvironment {
		c.Environment = v
	}
	if c.SceneID == "" {
		c.SceneID = os.Getenv("C3D_SCENE_ID")
	}
	return nil
}

func (c *Config) GenerateOptions(logName string) (*uploader.Options, error) {
	return &uploader.Options{
		LogName:     logName,
		APIKey:      c.APIKey,
		Environment: c.Environment,
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		ManifestDir: c.ManifestDir,
	}, nil
}
