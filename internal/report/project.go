package report

import (
	"bufio"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// manifest maps a well-known file name to the project kind it signals.
type manifest struct {
	Name string
	Kind string
	deps func(data []byte) (name string, deps []string)
}

// manifests lists the files DetectProject understands, in report order.
var manifests = []manifest{
	{Name: "go.mod", Kind: "go", deps: goModDeps},
	{Name: "package.json", Kind: "node", deps: packageJSONDeps},
	{Name: "deno.json", Kind: "deno"},
	{Name: "Cargo.toml", Kind: "rust", deps: cargoDeps},
	{Name: "pyproject.toml", Kind: "python", deps: pyprojectDeps},
	{Name: "requirements.txt", Kind: "python", deps: requirementsDeps},
	{Name: "setup.py", Kind: "python"},
	{Name: "Pipfile", Kind: "python"},
	{Name: "pom.xml", Kind: "maven"},
	{Name: "build.gradle", Kind: "gradle"},
	{Name: "build.gradle.kts", Kind: "gradle"},
	{Name: "Gemfile", Kind: "ruby", deps: gemfileDeps},
	{Name: "composer.json", Kind: "php", deps: composerDeps},
	{Name: "mix.exs", Kind: "elixir"},
	{Name: "pubspec.yaml", Kind: "dart"},
	{Name: "CMakeLists.txt", Kind: "cmake"},
	{Name: "Makefile", Kind: "make"},
	{Name: "Dockerfile", Kind: "docker"},
	{Name: "docker-compose.yml", Kind: "compose"},
	{Name: "docker-compose.yaml", Kind: "compose"},
	{Name: "compose.yaml", Kind: "compose"},
}

// ManifestNames returns the file names DetectProject looks at.
func ManifestNames() []string {
	names := make([]string, len(manifests))
	for i, m := range manifests {
		names[i] = m.Name
	}
	return names
}

// DetectProject classifies a directory from the manifest files present in
// it. files maps manifest name to contents; missing names are absent.
func DetectProject(path string, files map[string][]byte) *ProjectDocument {
	doc := &ProjectDocument{Path: path, Kinds: []string{}, Manifests: []string{}}
	seenKind := map[string]bool{}
	for _, m := range manifests {
		data, ok := files[m.Name]
		if !ok {
			continue
		}
		doc.Manifests = append(doc.Manifests, m.Name)
		if !seenKind[m.Kind] {
			seenKind[m.Kind] = true
			doc.Kinds = append(doc.Kinds, m.Kind)
		}
		if m.deps == nil {
			continue
		}
		name, deps := m.deps(data)
		if doc.Name == "" && name != "" {
			doc.Name = name
		}
		if len(deps) > 0 {
			if doc.Dependencies == nil {
				doc.Dependencies = map[string][]string{}
			}
			doc.Dependencies[m.Name] = deps
		}
	}
	return doc
}

func goModDeps(data []byte) (string, []string) {
	var name string
	var deps []string
	inBlock := false
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case strings.HasPrefix(line, "module "):
			name = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "module ")), `"`)
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock && line != "":
			deps = append(deps, strings.Fields(line)[0])
		case strings.HasPrefix(line, "require "):
			if f := strings.Fields(line); len(f) >= 2 {
				deps = append(deps, f[1])
			}
		}
	}
	return name, sorted(deps)
}

func packageJSONDeps(data []byte) (string, []string) {
	var pkg struct {
		Name            string            `json:"name"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", nil
	}
	return pkg.Name, sorted(append(keys(pkg.Dependencies), keys(pkg.DevDependencies)...))
}

func composerDeps(data []byte) (string, []string) {
	var pkg struct {
		Name    string            `json:"name"`
		Require map[string]string `json:"require"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", nil
	}
	return pkg.Name, sorted(keys(pkg.Require))
}

func cargoDeps(data []byte) (string, []string) {
	var c struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return "", nil
	}
	return c.Package.Name, sorted(append(keys(c.Dependencies), keys(c.DevDependencies)...))
}

func pyprojectDeps(data []byte) (string, []string) {
	var p struct {
		Project struct {
			Name         string   `toml:"name"`
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name         string         `toml:"name"`
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return "", nil
	}
	var deps []string
	for _, d := range p.Project.Dependencies {
		if n := requirementName(d); n != "" {
			deps = append(deps, n)
		}
	}
	for n := range p.Tool.Poetry.Dependencies {
		if n != "python" {
			deps = append(deps, n)
		}
	}
	name := p.Project.Name
	if name == "" {
		name = p.Tool.Poetry.Name
	}
	return name, sorted(deps)
}

func requirementsDeps(data []byte) (string, []string) {
	var deps []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if n := requirementName(line); n != "" {
			deps = append(deps, n)
		}
	}
	return "", sorted(deps)
}

var requirementRe = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)`)

// requirementName extracts the distribution name from a PEP 508 line.
func requirementName(s string) string {
	m := requirementRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

var gemRe = regexp.MustCompile(`^\s*gem\s+['"]([^'"]+)['"]`)

func gemfileDeps(data []byte) (string, []string) {
	var deps []string
	for _, line := range strings.Split(string(data), "\n") {
		if m := gemRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
		}
	}
	return "", sorted(deps)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sorted(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	sort.Strings(s)
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
