// Package nav maintains the nav section of an mkdocs.yml from an exported
// docs tree. Only the nav key is replaced; the rest of the document,
// including comments, survives the rewrite.
package nav

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
)

// DefaultExcludedDirs are asset directories that never contain pages.
var DefaultExcludedDirs = []string{"css", "img", "javascript", "overrides", "icons", "images"}

// Update rebuilds the nav section of the mkdocs file from the docs
// directory. Directories named in excluded are ignored; pass nil to use
// DefaultExcludedDirs.
func Update(mkdocsPath, docsDir string, excluded []string) error {
	if excluded == nil {
		excluded = DefaultExcludedDirs
	}

	navTree, err := buildNavDir(docsDir, "", toSet(excluded))
	if err != nil {
		return err
	}

	data, err := os.ReadFile(mkdocsPath)
	if err != nil {
		return errors.NavError("failed to read mkdocs file").
			WithCause(err).WithContext("path", mkdocsPath).Build()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.NavError("failed to parse mkdocs file").
			WithCause(err).WithContext("path", mkdocsPath).Build()
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return errors.NavError("mkdocs file is not a YAML mapping").
			WithContext("path", mkdocsPath).Build()
	}

	navNode, err := toNode(navTree)
	if err != nil {
		return err
	}
	setMappingKey(doc.Content[0], "nav", navNode)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.NavError("failed to encode mkdocs file").
			WithCause(err).WithContext("path", mkdocsPath).Build()
	}
	if err := os.WriteFile(mkdocsPath, out, 0o644); err != nil {
		return errors.NavError("failed to write mkdocs file").
			WithCause(err).WithContext("path", mkdocsPath).Build()
	}
	return nil
}

// buildNavDir builds the nav entries for one directory. Entry order is
// index first, then pages, then subsections, each alphabetical.
func buildNavDir(root, rel string, excluded map[string]struct{}) ([]any, error) {
	dir := filepath.Join(root, rel)
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NavError("failed to read docs directory").
			WithCause(err).WithContext("path", dir).Build()
	}

	var files, dirs []string
	for _, item := range items {
		name := item.Name()
		if item.IsDir() {
			if _, skip := excluded[name]; !skip {
				dirs = append(dirs, name)
			}
			continue
		}
		if strings.HasSuffix(name, ".md") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)

	entries := make([]any, 0, len(files)+len(dirs))
	for _, name := range files {
		if name != "index.md" {
			continue
		}
		path := filepath.ToSlash(filepath.Join(rel, name))
		if rel == "" {
			entries = append(entries, map[string]any{"Home": path})
		} else {
			// A section's own index page is titled after the directory.
			entries = append(entries, map[string]any{filepath.Base(rel): path})
		}
	}
	for _, name := range files {
		if name == "index.md" {
			continue
		}
		title := strings.TrimSuffix(name, ".md")
		entries = append(entries, map[string]any{title: filepath.ToSlash(filepath.Join(rel, name))})
	}
	for _, name := range dirs {
		children, err := buildNavDir(root, filepath.Join(rel, name), excluded)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			continue
		}
		entries = append(entries, map[string]any{name: children})
	}
	return entries, nil
}

// toNode converts the nav tree into a yaml.Node for splicing into the doc.
func toNode(v any) (*yaml.Node, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, errors.NavError("failed to encode nav section").WithCause(err).Build()
	}
	var wrapper yaml.Node
	if err := yaml.Unmarshal(raw, &wrapper); err != nil {
		return nil, errors.NavError("failed to re-parse nav section").WithCause(err).Build()
	}
	if len(wrapper.Content) == 0 {
		return &yaml.Node{Kind: yaml.SequenceNode}, nil
	}
	return wrapper.Content[0], nil
}

// setMappingKey replaces the value of key in a mapping node, appending the
// key when absent.
func setMappingKey(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value)
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
