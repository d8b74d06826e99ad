// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions locates the settings file. Zero values use the defaults.
	LoadOptions struct {
		// ConfigFilePath is the --settings flag; it must exist when set.
		ConfigFilePath string
		// ConfigDirPath replaces the per-user config directory.
		ConfigDirPath string
		// BaseDir is where .mk.cue is looked up.
		BaseDir string
	}

	// Provider yields the effective settings. The CLI depends on this
	// interface so tests can inject fixed settings.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	fileProvider struct{}
)

// NewProvider returns the Provider that reads settings files and MK_*
// environment variables.
func NewProvider() Provider { return fileProvider{} }

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	return cfg, err
}
