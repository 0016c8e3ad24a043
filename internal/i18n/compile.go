package i18n

import (
	"encoding/json"
	"fmt"
	"io"
)

// CompiledCatalog is the runtime lookup form: a flat msgid to msgstr map.
// Untranslated entries are omitted so the runtime falls back to the source
// string.
type CompiledCatalog struct {
	Locale   string            `json:"locale"`
	Messages map[string]string `json:"messages"`
}

// Compile converts a catalog into its runtime form.
func Compile(catalog *Catalog) CompiledCatalog {
	compiled := CompiledCatalog{
		Locale:   catalog.Locale,
		Messages: make(map[string]string, catalog.Len()),
	}
	for _, msg := range catalog.Messages() {
		if msg.Str == "" {
			continue
		}
		compiled.Messages[msg.ID] = msg.Str
	}
	return compiled
}

// WriteJSON renders the compiled catalog.
func (c CompiledCatalog) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("i18n: encode compiled catalog: %w", err)
	}
	return nil
}

// ReadCompiled parses a compiled catalog.
func ReadCompiled(r io.Reader) (CompiledCatalog, error) {
	var compiled CompiledCatalog
	if err := json.NewDecoder(r).Decode(&compiled); err != nil {
		return CompiledCatalog{}, fmt.Errorf("i18n: decode compiled catalog: %w", err)
	}
	return compiled, nil
}

// Translator resolves message IDs against a compiled catalog with source
// fallback.
type Translator struct {
	compiled CompiledCatalog
}

// NewTranslator wraps a compiled catalog.
func NewTranslator(compiled CompiledCatalog) *Translator {
	return &Translator{compiled: compiled}
}

// T returns the translation for id, or id itself when untranslated.
func (t *Translator) T(id string) string {
	if value, ok := t.compiled.Messages[id]; ok {
		return value
	}
	return id
}
