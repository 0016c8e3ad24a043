package plugins

import (
	"fmt"

	"rolegate/internal/config"
	"rolegate/internal/target"
)

// RegisterCustomTargets discovers YAML and Go target definitions under
// .rolegate/targets and registers them.
func RegisterCustomTargets(reg *target.Registry, cfg *config.Config) error {
	if reg == nil || cfg == nil {
		return nil
	}
	defs, err := loadAllDefinitionFiles(cfg.TargetsDir())
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return nil
	}
	seen := make(map[string]string)
	for _, file := range defs {
		def := file.Definition
		if existing, ok := seen[def.ID]; ok {
			return fmt.Errorf("plugin: duplicate target id %s (%s and %s)", def.ID, existing, file.Path)
		}
		seen[def.ID] = file.Path
		defCopy := def
		if err := reg.Register(defCopy.ID, func(cfg target.Config) (target.Target, error) {
			return newCommandTarget(defCopy, cfg)
		}); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", def.ID, file.Path, err)
		}
	}
	return nil
}

func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	return append(yamlDefs, goDefs...), nil
}
