package i18n

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// markerFunctions are the call names whose first string-literal argument is a
// translatable message.
var markerFunctions = map[string]bool{
	"T":        true,
	"Gettext":  true,
	"Translate": true,
}

// ExtractMessages walks the Go sources under root and collects translatable
// message IDs from marker function calls, with file:line references. Vendor
// directories and the workspace itself are skipped.
func ExtractMessages(root string) ([]Message, error) {
	found := map[string]*Message{}
	var order []string
	fset := token.NewFileSet()

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		file, parseErr := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if parseErr != nil {
			return fmt.Errorf("i18n: parse %s: %w", path, parseErr)
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		ast.Inspect(file, func(node ast.Node) bool {
			call, ok := node.(*ast.CallExpr)
			if !ok || len(call.Args) == 0 {
				return true
			}
			if !isMarkerCall(call.Fun) {
				return true
			}
			lit, ok := call.Args[0].(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				return true
			}
			value, err := strconv.Unquote(lit.Value)
			if err != nil || value == "" {
				return true
			}
			ref := fmt.Sprintf("%s:%d", filepath.ToSlash(rel), fset.Position(lit.Pos()).Line)
			if existing, seen := found[value]; seen {
				existing.References = append(existing.References, ref)
				return true
			}
			found[value] = &Message{ID: value, References: []string{ref}}
			order = append(order, value)
			return true
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(order)
	messages := make([]Message, 0, len(order))
	for _, id := range order {
		messages = append(messages, *found[id])
	}
	return messages, nil
}

// BuildTemplate assembles a source-locale template catalog from extracted
// messages.
func BuildTemplate(sourceLocale string, messages []Message) (*Catalog, error) {
	template, err := NewCatalog(sourceLocale)
	if err != nil {
		return nil, err
	}
	for _, msg := range messages {
		if err := template.Add(msg); err != nil {
			return nil, err
		}
	}
	return template, nil
}

func isMarkerCall(fun ast.Expr) bool {
	switch expr := fun.(type) {
	case *ast.Ident:
		return markerFunctions[expr.Name]
	case *ast.SelectorExpr:
		return markerFunctions[expr.Sel.Name]
	}
	return false
}
