package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PipelineFileName is the optional per-project pipeline override, relative
// to the workspace directory.
const PipelineFileName = "pipeline.yaml"

// ParseDefinitionYAML decodes a pipeline definition from YAML/JSON bytes.
func ParseDefinitionYAML(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("workflow: definition payload is empty")
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("workflow: decode definition: %w", err)
	}
	return def.Normalized()
}

// LoadDefinitionReader reads pipeline definition data from an io.Reader.
func LoadDefinitionReader(r io.Reader) (Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("workflow: read definition: %w", err)
	}
	return ParseDefinitionYAML(content)
}

// LoadDefinitionFile loads a pipeline definition from an explicit file path.
func LoadDefinitionFile(path string) (Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	def, parseErr := ParseDefinitionYAML(content)
	if parseErr != nil {
		return Definition{}, fmt.Errorf("workflow: %s: %w", path, parseErr)
	}
	return def, nil
}

// LoadProjectDefinition returns the project's pipeline: the workspace
// pipeline.yaml override when present, the built-in development pipeline
// otherwise.
func LoadProjectDefinition(workspaceDir string) (Definition, error) {
	path := filepath.Join(workspaceDir, PipelineFileName)
	def, err := LoadDefinitionFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DevPipeline()
		}
		return Definition{}, err
	}
	return def, nil
}
