package piicheck

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
)

// DefaultAnnotation is the struct tag key and comment directive the scanner
// looks for.
const DefaultAnnotation = "pii"

// Finding names one exported model field without an annotation.
type Finding struct {
	Position string
	Struct   string
	Field    string
}

// ScanResult aggregates one scan pass.
type ScanResult struct {
	ModelsScanned int
	Findings      []Finding
}

// Scanner detects persisted data models and verifies their annotations. A
// struct counts as a data model when any field carries a `db` or `gorm`
// struct tag, or the type's doc comment contains a "rolegate:model" marker.
type Scanner struct {
	annotation string
}

// NewScanner creates a scanner for the given annotation key (empty uses the
// default).
func NewScanner(annotation string) *Scanner {
	annotation = strings.TrimSpace(annotation)
	if annotation == "" {
		annotation = DefaultAnnotation
	}
	return &Scanner{annotation: annotation}
}

// Annotation returns the effective annotation key.
func (s *Scanner) Annotation() string {
	return s.annotation
}

// ScanDir walks root recursively and scans every non-test Go file.
func (s *Scanner) ScanDir(root string) (ScanResult, error) {
	var result ScanResult
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
		fileResult, scanErr := s.scanFile(fset, path)
		if scanErr != nil {
			return scanErr
		}
		result.ModelsScanned += fileResult.ModelsScanned
		result.Findings = append(result.Findings, fileResult.Findings...)
		return nil
	})
	if err != nil {
		return ScanResult{}, err
	}
	return result, nil
}

func (s *Scanner) scanFile(fset *token.FileSet, path string) (ScanResult, error) {
	var result ScanResult
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return ScanResult{}, fmt.Errorf("piicheck: parse %s: %w", path, err)
	}
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok || !typeSpec.Name.IsExported() {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}
			if !s.isDataModel(genDecl, typeSpec, structType) {
				continue
			}
			result.ModelsScanned++
			result.Findings = append(result.Findings, s.checkFields(fset, typeSpec.Name.Name, structType)...)
		}
	}
	return result, nil
}

func (s *Scanner) isDataModel(decl *ast.GenDecl, spec *ast.TypeSpec, structType *ast.StructType) bool {
	doc := spec.Doc
	if doc == nil {
		doc = decl.Doc
	}
	if doc != nil && strings.Contains(doc.Text(), "rolegate:model") {
		return true
	}
	for _, field := range structType.Fields.List {
		if field.Tag == nil {
			continue
		}
		tag := parseTag(field.Tag.Value)
		if _, ok := tag.Lookup("db"); ok {
			return true
		}
		if _, ok := tag.Lookup("gorm"); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) checkFields(fset *token.FileSet, structName string, structType *ast.StructType) []Finding {
	var findings []Finding
	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue // embedded
		}
		annotated := s.fieldAnnotated(field)
		for _, name := range field.Names {
			if !name.IsExported() {
				continue
			}
			if annotated {
				continue
			}
			pos := fset.Position(name.Pos())
			findings = append(findings, Finding{
				Position: fmt.Sprintf("%s:%d", filepath.ToSlash(pos.Filename), pos.Line),
				Struct:   structName,
				Field:    name.Name,
			})
		}
	}
	return findings
}

func (s *Scanner) fieldAnnotated(field *ast.Field) bool {
	if field.Tag != nil {
		if _, ok := parseTag(field.Tag.Value).Lookup(s.annotation); ok {
			return true
		}
	}
	directive := s.annotation + ":"
	for _, group := range []*ast.CommentGroup{field.Doc, field.Comment} {
		if group == nil {
			continue
		}
		for _, comment := range group.List {
			text := strings.TrimSpace(strings.TrimLeft(comment.Text, "/ "))
			if strings.HasPrefix(text, directive) {
				return true
			}
		}
	}
	return false
}

func parseTag(raw string) reflect.StructTag {
	return reflect.StructTag(strings.Trim(raw, "`"))
}
