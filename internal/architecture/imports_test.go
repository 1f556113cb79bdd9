package architecture_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/mod/modfile"
)

// Each layer lists the internal trees it must never import. Bid state only
// changes through data/aggregates, so nothing above modules may reach it
// directly, and transport never touches persistence.
var forbidden = map[string][]string{
	"platform":      {"domain", "data", "modules", "services", "http", "app", "clients", "realtime", "observability"},
	"observability": {"domain", "data", "modules", "services", "http", "app", "clients"},
	"domain":        {"data", "modules", "services", "http", "app", "clients", "observability"},
	"realtime":      {"domain", "data", "modules", "services", "http", "app"},
	"clients":       {"domain", "data", "modules", "services", "http", "app", "realtime"},
	"data":          {"modules", "services", "http", "app", "clients"},
	"services":      {"modules", "http", "app"},
	"modules":       {"data/aggregates", "http", "app", "clients"},
	"http":          {"data", "services", "app", "clients"},
}

type violation struct {
	file, imp, rule string
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)
	fset := token.NewFileSet()
	var violations []violation

	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		layer := strings.SplitN(strings.TrimPrefix(rel, "internal/"), "/", 2)[0]
		rules := forbidden[layer]
		if len(rules) == 0 {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			for _, rule := range rules {
				prefix := modulePath + "/internal/" + rule
				if imp == prefix || strings.HasPrefix(imp, prefix+"/") {
					violations = append(violations, violation{file: rel, imp: imp, rule: rule})
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q (layer may not use internal/%s)\n", v.file, v.imp, v.rule)
		}
		t.Fatal(b.String())
	}
}

func TestForbiddenLayersExist(t *testing.T) {
	root, _ := moduleRoot(t)
	for layer := range forbidden {
		if _, err := os.Stat(filepath.Join(root, "internal", layer)); err != nil {
			t.Fatalf("rule for missing layer %q: %v", layer, err)
		}
	}
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		raw, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			path := modfile.ModulePath(raw)
			if path == "" {
				t.Fatalf("no module path in %s/go.mod", dir)
			}
			return dir, path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above working directory")
		}
		dir = parent
	}
}
