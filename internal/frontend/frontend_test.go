package frontend

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestLoadParsesFilesAndSkipsExcluded(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.ts":                "export function a(): void {}",
		"b.tsx":                "export function b(): void {}",
		"node_modules/dep.ts":  "export function dep(): void {}",
		"notes.md":             "not typescript",
	})
	p, errs := Load(root, Options{ExcludeGlobs: []string{"node_modules"}}, zap.NewNop())
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	files := p.Files()
	if len(files) != 2 {
		t.Fatalf("expected 2 parsed files (a.ts, b.tsx), got %d: %v", len(files), filesPaths(files))
	}
}

func filesPaths(files []*SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestLoadNormalizesPathsToPosixSrcForm(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"sub/dir/a.ts": "export function a(): void {}",
	})
	p, errs := Load(root, Options{}, zap.NewNop())
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if p.FileOf("/sub/dir/a.ts") == nil {
		t.Fatalf("expected file at normalized path /sub/dir/a.ts, got files: %v", filesPaths(p.Files()))
	}
}

func TestResolveSymbolAcrossNamedImport(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"lib.ts":  `export function greet(): string { return "hi"; }`,
		"main.ts": `import { greet } from "./lib";`,
	})
	p, errs := Load(root, Options{}, zap.NewNop())
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	sym, ok := p.ResolveSymbol("/main.ts", "greet")
	if !ok {
		t.Fatal("expected greet to resolve across the import")
	}
	if sym.File != "/lib.ts" || sym.Name != "greet" {
		t.Errorf("expected resolution to /lib.ts#greet, got %+v", sym)
	}
}

func TestResolveSymbolFollowsAliasAndReexport(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"impl.ts":  `export function realImpl(): void {}`,
		"facade.ts": `export { realImpl as facadeFn } from "./impl";`,
		"main.ts":  `import { facadeFn } from "./facade";`,
	})
	p, errs := Load(root, Options{}, zap.NewNop())
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	sym, ok := p.ResolveSymbol("/main.ts", "facadeFn")
	if !ok {
		t.Fatal("expected facadeFn to resolve through the re-export chain")
	}
	if sym.File != "/impl.ts" || sym.Name != "realImpl" {
		t.Errorf("expected resolution to /impl.ts#realImpl, got %+v", sym)
	}
}

func TestResolveSymbolLocalDeclarationNoImport(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.ts": `function helper(): void {} function main(): void { helper(); }`,
	})
	p, errs := Load(root, Options{}, zap.NewNop())
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	sym, ok := p.ResolveSymbol("/a.ts", "helper")
	if !ok || sym.File != "/a.ts" {
		t.Fatalf("expected helper to resolve locally within /a.ts, got %+v ok=%v", sym, ok)
	}
}

func TestResolveSymbolUnknownNameNotFound(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.ts": `function helper(): void {}`,
	})
	p, errs := Load(root, Options{}, zap.NewNop())
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if _, ok := p.ResolveSymbol("/a.ts", "doesNotExist"); ok {
		t.Error("expected resolution of an undeclared name to fail")
	}
}

func TestLineIndexPositionAscii(t *testing.T) {
	content := []byte("line0\nline1\nline2")
	idx := NewLineIndex(content)
	if idx.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", idx.LineCount())
	}
	line, col := idx.Position(6) // start of "line1"
	if line != 1 || col != 0 {
		t.Errorf("expected (1,0) at offset 6, got (%d,%d)", line, col)
	}
	line, col = idx.Position(0)
	if line != 0 || col != 0 {
		t.Errorf("expected (0,0) at offset 0, got (%d,%d)", line, col)
	}
}

func TestLineIndexPositionMultiByteRune(t *testing.T) {
	// "café\n" - 'é' is 2 bytes in UTF-8 but 1 UTF-16 unit.
	content := []byte("café\nx")
	idx := NewLineIndex(content)
	// offset of '\n' is byte 5 (c-a-f-é(2 bytes)=5 bytes for "café"); the
	// UTF-16 column of the newline should be 4, not 5.
	line, col := idx.Position(5)
	if line != 0 || col != 4 {
		t.Errorf("expected (0,4) for a 4-code-unit line before the newline, got (%d,%d)", line, col)
	}
}
