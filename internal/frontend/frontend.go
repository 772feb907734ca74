// Package frontend parses TypeScript/TSX sources into an AST project and
// resolves symbols across files via imports and re-exports. Every later
// stage reads through this package's SourceFile/LineIndex rather than
// touching the parser directly, so line/column computation never drifts.
package frontend

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"

	"github.com/tscg-project/tscg/internal/errtax"
)

// SourceFile is one parsed project file.
type SourceFile struct {
	Path    string // normalized "/src/..." POSIX form
	Source  []byte
	Tree    *sitter.Tree
	Lines   *LineIndex
	Package string // directory-relative module path, used for import resolution
}

// Root returns the file's AST root node.
func (f *SourceFile) Root() *sitter.Node {
	if f.Tree == nil {
		return nil
	}
	return f.Tree.RootNode()
}

// Project is the read-only, in-memory result of loading a codebase. Shared
// by every stage; never mutated after Load returns.
type Project struct {
	Root  string
	files map[string]*SourceFile
	order []string // source order of Load, stable for deterministic iteration

	importIndex *importIndex
}

// Options carry the include and exclude glob patterns applied during file
// discovery. No compiler options are passed: tree-sitter's grammar parses
// all syntax levels uniformly.
type Options struct {
	IncludeGlobs []string
	ExcludeGlobs []string
}

var (
	parserPool = sync.Pool{New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(typescript.GetLanguage())
		return p
	}}
)

// Load walks projectRoot, parses every included .ts/.tsx file with
// tree-sitter, and builds the cross-file import index. Files that fail to
// parse are skipped with a recoverable ParseError; the project continues
// with zero functions and zero edges contributed by that file.
func Load(projectRoot string, opts Options, logger *zap.Logger) (*Project, []error) {
	p := &Project{Root: projectRoot, files: make(map[string]*SourceFile)}
	var recovered []error

	paths, err := discoverFiles(projectRoot, opts)
	if err != nil {
		return nil, []error{&errtax.ConfigError{Field: "projectRoot", Err: err}}
	}
	sort.Strings(paths)

	for _, abs := range paths {
		content, err := os.ReadFile(abs)
		if err != nil {
			recovered = append(recovered, &errtax.ParseError{File: abs, Err: err})
			continue
		}
		parserObj := parserPool.Get()
		parser, _ := parserObj.(*sitter.Parser)
		tree, err := parser.ParseCtx(nil, nil, content)
		parserPool.Put(parser)
		if err != nil || tree == nil {
			recovered = append(recovered, &errtax.ParseError{File: abs, Err: err})
			if logger != nil {
				logger.Debug("frontend.parse_failed", zap.String("file", abs))
			}
			continue
		}

		norm := normalizePath(projectRoot, abs)
		sf := &SourceFile{
			Path:   norm,
			Source: content,
			Tree:   tree,
			Lines:  NewLineIndex(content),
		}
		p.files[norm] = sf
		p.order = append(p.order, norm)
	}

	p.importIndex = buildImportIndex(p)
	return p, recovered
}

// FileOf returns the parsed SourceFile for a normalized path, or nil.
func (p *Project) FileOf(path string) *SourceFile {
	return p.files[path]
}

// Files returns every loaded file in stable (sorted) source order.
func (p *Project) Files() []*SourceFile {
	out := make([]*SourceFile, 0, len(p.order))
	for _, path := range p.order {
		out = append(out, p.files[path])
	}
	return out
}

// Position computes (file, startLine, startCol, endLine, endCol) for node,
// 0-based, columns in UTF-16 code units, using sf's shared LineIndex.
func Position(sf *SourceFile, node *sitter.Node) (file string, startLine, startCol, endLine, endCol int) {
	sLine, sCol := sf.Lines.Position(int(node.StartByte()))
	eLine, eCol := sf.Lines.Position(int(node.EndByte()))
	return sf.Path, sLine, sCol, eLine, eCol
}

func discoverFiles(root string, opts Options, ) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, not fatal to the whole walk
		}
		if info.IsDir() {
			if excluded(root, path, opts.ExcludeGlobs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".ts") && !strings.HasSuffix(path, ".tsx") {
			return nil
		}
		if excluded(root, path, opts.ExcludeGlobs) {
			return nil
		}
		if len(opts.IncludeGlobs) > 0 && !included(root, path, opts.IncludeGlobs) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

func excluded(root, path string, globs []string) bool {
	base := filepath.Base(path)
	rel, _ := filepath.Rel(root, path)
	wrapped := "/" + filepath.ToSlash(rel) + "/"
	for _, g := range globs {
		core := strings.TrimPrefix(g, "**/")
		if matched, _ := filepath.Match(core, base); matched {
			return true
		}
		if dir := strings.TrimSuffix(core, "/**"); dir != core && strings.Contains(wrapped, "/"+dir+"/") {
			return true
		}
	}
	return false
}

func included(root, path string, globs []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	for _, g := range globs {
		if strings.HasPrefix(rel, g) {
			return true
		}
	}
	return false
}

// normalizePath converts an absolute path under root into the "/src/..."
// POSIX form required of every Function and SourceFile path.
func normalizePath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}
