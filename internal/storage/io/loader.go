package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/terrafan/terrafan/internal/model"
)

// ManifestYAMLRepository loads run manifests from YAML files.
type ManifestYAMLRepository struct {
	fs fs.FS
}

// NewManifestYAMLRepository creates a new YAML manifest repository.
func NewManifestYAMLRepository(filesystem fs.FS) *ManifestYAMLRepository {
	return &ManifestYAMLRepository{fs: filesystem}
}

// GetManifest loads a run manifest from a YAML file and returns a validated domain model.
func (r *ManifestYAMLRepository) GetManifest(ctx context.Context, path string) (model.Manifest, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("reading manifest file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Manifest{}, ctx.Err()
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return model.Manifest{}, fmt.Errorf("parsing YAML: %w", err)
	}

	res, err := m.toModel()
	if err != nil {
		return model.Manifest{}, err
	}

	if err := res.Validate(); err != nil {
		return model.Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}

	return res, nil
}

// Manifest represents the YAML structure for a run manifest.
type Manifest struct {
	Workspaces        []string `yaml:"workspaces"`
	TerraformVersion  string   `yaml:"terraform_version"`
	MemoryPerTaskMB   int      `yaml:"memory_per_task_mb"`
	MaxParallel       int      `yaml:"max_parallel"`
	BackendConfigFile string   `yaml:"backend_config_file"`
}

func (m Manifest) toModel() (model.Manifest, error) {
	workspaces := make([]model.Workspace, 0, len(m.Workspaces))
	for _, dir := range m.Workspaces {
		ws, err := model.NewWorkspace(dir)
		if err != nil {
			return model.Manifest{}, fmt.Errorf("invalid workspace %q: %w", dir, err)
		}
		workspaces = append(workspaces, ws)
	}

	return model.Manifest{
		Workspaces:        workspaces,
		TerraformVersion:  m.TerraformVersion,
		MemoryPerTaskMB:   m.MemoryPerTaskMB,
		MaxParallel:       m.MaxParallel,
		BackendConfigFile: m.BackendConfigFile,
	}, nil
}
