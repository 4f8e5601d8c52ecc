// Package goemitter renders a generated binding set as static Go source:
// struct declarations with three-state optional fields, union aliases, and
// typed method wrappers over the runtime client.
package goemitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/botapigen/bind"
)

// Options controls how the emitter renders a package.
type Options struct {
	OutDir      string // required; target directory to write the package
	PackageName string // emitted package name; defaults to "botapi"
	Force       bool   // overwrite existing files
	DryRun      bool   // don't write, only plan
	Verbose     bool
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved package name.
type Result struct {
	PackageName string
	Planned     []PlannedFile
}

// Emit renders Go bindings for the given binding set.
func Emit(ctx context.Context, bindings *bind.Bindings, opts Options) (*Result, error) {
	_ = ctx
	if bindings == nil {
		return nil, fmt.Errorf("goemitter: nil bindings")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("goemitter: OutDir is required")
	}
	pkg := sanitizePackageName(opts.PackageName)
	if pkg == "" {
		pkg = "botapi"
	}

	files := map[string][]byte{
		"doc.go":     []byte(renderDoc(pkg)),
		"types.go":   []byte(renderTypes(pkg, bindings)),
		"methods.go": []byte(renderMethods(pkg, bindings)),
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := writeFiles(opts.OutDir, files, opts.Force); err != nil {
			return nil, err
		}
	}

	return &Result{PackageName: pkg, Planned: planned}, nil
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return fmt.Errorf("goemitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

func sanitizePackageName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			// Identifiers cannot start with a digit.
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
