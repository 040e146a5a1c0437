package parser

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"semidx/internal/ir"
)

// Parser builds IR symbol trees from source files. Go files get a full
// symbol tree via go/ast; every other recognized language gets a
// file-root-only tree, which still supports file-granularity indexing
// and search.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".semidx":      true,
	"node_modules": true,
	"vendor":       true,
}

// ParseProject walks root and parses every file with a recognized
// language. root may also name a single file. File paths in the
// resulting project are relative to root; each file is parsed under its
// relative path so the root symbol and the symbol table keys carry the
// same path the persisted index records.
func (p *Parser) ParseProject(root string) (*ir.Project, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		project := ir.NewProject(filepath.Dir(root))
		f, err := p.parseAs(root, filepath.Base(root))
		if err != nil {
			return nil, err
		}
		project.AddFile(f)
		return project, nil
	}

	project := ir.NewProject(root)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := ir.LanguageForPath(path); !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		f, err := p.parseAs(path, rel)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		project.AddFile(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// parseAs reads the file at diskPath and parses it under filePath.
func (p *Parser) parseAs(diskPath, filePath string) (*ir.File, error) {
	src, err := os.ReadFile(diskPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.Parse(filePath, src)
}

// ParseFile reads and parses one source file under its given path.
func (p *Parser) ParseFile(path string) (*ir.File, error) {
	return p.parseAs(path, path)
}

// Parse builds the symbol tree for one file's source bytes.
func (p *Parser) Parse(path string, src []byte) (*ir.File, error) {
	lang, ok := ir.LanguageForPath(path)
	if !ok {
		return nil, fmt.Errorf("unrecognized language for %s", path)
	}
	code := &ir.Code{Bytes: src}
	if lang == ir.LangGo {
		return parseGo(code, path)
	}
	return ir.NewFile(code, path, lang), nil
}
