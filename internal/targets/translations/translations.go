// Package translations implements the catalog lifecycle targets: extract,
// dummy, compile, pull, push, and validate.
package translations

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rolegate/internal/config"
	"rolegate/internal/i18n"
	"rolegate/internal/target"
	"rolegate/internal/workflow"
)

const targetVersion = "1.0.0"

// Register installs every translation target factory.
func Register(reg *target.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(workflow.TargetI18nExtract, func(target.Config) (target.Target, error) {
		return NewExtract(), nil
	})
	reg.MustRegister(workflow.TargetI18nDummy, func(target.Config) (target.Target, error) {
		return NewDummy(), nil
	})
	reg.MustRegister(workflow.TargetI18nCompile, func(target.Config) (target.Target, error) {
		return NewCompile(), nil
	})
	reg.MustRegister(workflow.TargetI18nPull, func(target.Config) (target.Target, error) {
		return NewPull(), nil
	})
	reg.MustRegister(workflow.TargetI18nPush, func(target.Config) (target.Target, error) {
		return NewPush(), nil
	})
	reg.MustRegister(workflow.TargetI18nCheck, func(target.Config) (target.Target, error) {
		return NewCheck(), nil
	})
}

func translationConfig(ctx *target.Context) config.TranslationConfig {
	return ctx.Config.Project.Translations
}

// loadTemplate parses the extracted source catalog.
func loadTemplate(ctx *target.Context) (*i18n.Catalog, error) {
	cfg := translationConfig(ctx)
	path := ctx.Workspace.SourceCatalogPath()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("translations: open template %s: %w", path, err)
	}
	defer file.Close()
	return i18n.ParsePO(cfg.SourceLocale, file)
}

// writeCatalog renders a catalog to a path, creating parent directories.
func writeCatalog(path string, catalog *i18n.Catalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("translations: ensure catalog dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("translations: create %s: %w", path, err)
	}
	defer file.Close()
	return catalog.WritePO(file)
}

// serviceClient builds the translation service client from project config.
// Returns nil without error when no service is configured.
func serviceClient(ctx *target.Context) (*i18n.Client, error) {
	cfg := translationConfig(ctx)
	if cfg.Service == nil {
		return nil, nil
	}
	token := ""
	if cfg.Service.TokenEnv != "" {
		token = os.Getenv(cfg.Service.TokenEnv)
	}
	return i18n.NewClient(cfg.Service.URL, cfg.Service.Project, token)
}

// messagesFingerprint hashes extracted message IDs so the resolver can tell
// when sources drifted from the recorded template.
func messagesFingerprint(messages []i18n.Message) string {
	hash := sha256.New()
	for _, msg := range messages {
		hash.Write([]byte(msg.ID))
		hash.Write([]byte{0})
	}
	return hex.EncodeToString(hash.Sum(nil))
}

// allLocales returns the configured locales plus the dummy locale, deduped.
func allLocales(cfg config.TranslationConfig) []string {
	seen := map[string]bool{}
	var out []string
	for _, locale := range append(append([]string{}, cfg.Locales...), workflow.DummyLocale) {
		locale = strings.TrimSpace(locale)
		if locale == "" || seen[locale] {
			continue
		}
		seen[locale] = true
		out = append(out, locale)
	}
	return out
}
