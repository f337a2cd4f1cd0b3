package architecture_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

// fileImport is one import line of one source file, with the module prefix
// stripped from internal paths ("internal/modules/content").
type fileImport struct {
	file string
	imp  string
}

type layerRule struct {
	dir    string
	forbid []string
	note   string
}

// Lower layers never reach up. Platform adapters may import modules/content
// for the capability types they implement, nothing else from modules.
var layerRules = []layerRule{
	{dir: "internal/domain/", forbid: []string{"internal/"}},
	{dir: "internal/platform/", forbid: []string{"internal/app", "internal/http/", "internal/jobs/", "internal/data/", "internal/realtime"}},
	{dir: "internal/modules/", forbid: []string{"internal/app", "internal/http/", "internal/data/", "internal/realtime"}},
	{dir: "internal/jobs/", forbid: []string{"internal/app", "internal/http/", "internal/modules/", "internal/data/"}},
	{dir: "internal/realtime/", forbid: []string{"internal/app", "internal/http/", "internal/modules/"}},
	{dir: "internal/data/", forbid: []string{"internal/app", "internal/http/", "internal/modules/"}},
	{dir: "internal/http/", forbid: []string{"internal/app"}},
	{dir: "cmd/", forbid: []string{"internal/"}, note: "cmd talks to internal/app only"},
}

// Adapters are chosen by configuration, so only the app wiring and other
// platform packages may name them.
var providerPackages = []string{
	"browser", "edgetts", "gcp", "gemini", "localmedia", "localstore", "openai", "raster", "vertex",
}

func TestImportBoundaries(t *testing.T) {
	var bad []string
	for _, fi := range scanImports(t) {
		for _, rule := range layerRules {
			if !strings.HasPrefix(fi.file, rule.dir) {
				continue
			}
			if rule.dir == "cmd/" && fi.imp == "internal/app" {
				continue
			}
			for _, f := range rule.forbid {
				if strings.HasPrefix(fi.imp, f) {
					bad = append(bad, fmt.Sprintf("%s imports %s (%s forbids %s) %s", fi.file, fi.imp, rule.dir, f, rule.note))
					break
				}
			}
		}
	}
	if len(bad) > 0 {
		t.Fatalf("import boundary violations:\n- %s", strings.Join(bad, "\n- "))
	}
}

func TestProvidersWiredOnlyInApp(t *testing.T) {
	providers := map[string]bool{}
	for _, p := range providerPackages {
		providers["internal/platform/"+p] = true
	}
	var bad []string
	for _, fi := range scanImports(t) {
		if strings.HasPrefix(fi.file, "internal/app/") || strings.HasPrefix(fi.file, "internal/platform/") {
			continue
		}
		if providers[fi.imp] {
			bad = append(bad, fi.file+" imports "+fi.imp)
		}
	}
	if len(bad) > 0 {
		t.Fatalf("provider packages imported outside internal/app (depend on the content capabilities instead):\n- %s", strings.Join(bad, "\n- "))
	}
}

var modulePathRe = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// scanImports parses the imports of every .go file under internal/ and cmd/.
func scanImports(t *testing.T) []fileImport {
	t.Helper()
	root := moduleRoot(t)
	gomod, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	m := modulePathRe.FindSubmatch(gomod)
	if m == nil {
		t.Fatalf("module path not found in go.mod")
	}
	prefix := string(m[1]) + "/"

	fset := token.NewFileSet()
	var out []fileImport
	for _, dir := range []string{"internal", "cmd"} {
		err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
			if err != nil {
				return err
			}
			for _, spec := range f.Imports {
				imp, err := strconv.Unquote(spec.Path.Value)
				if err != nil || !strings.HasPrefix(imp, prefix) {
					continue
				}
				out = append(out, fileImport{file: filepath.ToSlash(rel), imp: strings.TrimPrefix(imp, prefix)})
			}
			return nil
		})
		if err != nil {
			t.Fatalf("walk %s: %v", dir, err)
		}
	}
	if len(out) == 0 {
		t.Fatalf("no internal imports found under %s", root)
	}
	return out
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above working directory")
		}
		dir = parent
	}
}
