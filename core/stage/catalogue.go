/*
 * === This file is part of OBiBa Onyx ===
 *
 * Copyright 2026 OBiBa and copyright holders of Onyx.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/naoina/toml"
	"gopkg.in/yaml.v3"
)

// Catalogue is the ordered list of stages every interview goes through.
type Catalogue struct {
	Stages []*Stage `json:"stages" yaml:"stages" toml:"stages"`
}

// LoadCatalogue reads a catalogue from a YAML (.yaml, .yml) or TOML (.toml)
// file.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read stage catalogue: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return ParseTOML(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported stage catalogue format %s", filepath.Ext(path))
	}
}

// ParseYAML decodes a YAML catalogue. See decodeRaw for the checks and
// defaults applied on the way.
func ParseYAML(data []byte) (*Catalogue, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse stage catalogue: %w", err)
	}
	return decodeRaw(raw)
}

func ParseTOML(data []byte) (*Catalogue, error) {
	raw := make(map[string]interface{})
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse stage catalogue: %w", err)
	}
	return decodeRaw(raw)
}

// Validate checks names are unique and non-empty, modules are among
// knownModules and dependency conditions compile, only refer to other
// known stages and do not loop back. Every problem found is reported.
func (c *Catalogue) Validate(knownModules []string) error {
	var result *multierror.Error

	modules := make(map[string]struct{}, len(knownModules))
	for _, m := range knownModules {
		modules[m] = struct{}{}
	}

	names := make(map[string]struct{}, len(c.Stages))
	order := make([]string, 0, len(c.Stages))
	for i, st := range c.Stages {
		if st == nil || len(strings.TrimSpace(st.Name)) == 0 {
			result = multierror.Append(result, fmt.Errorf("stage #%d has no name", i))
			continue
		}
		if _, dup := names[st.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("stage %s defined more than once", st.Name))
		}
		names[st.Name] = struct{}{}
		order = append(order, st.Name)
		if _, ok := modules[st.Module]; !ok {
			result = multierror.Append(result, fmt.Errorf("stage %s: unknown module %q", st.Name, st.Module))
		}
	}

	graph := make(map[string][]string, len(c.Stages))
	for _, st := range c.Stages {
		if st == nil || !st.HasDependency() {
			continue
		}
		if _, err := st.compile(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		refs, err := st.References()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("stage %s: %w", st.Name, err))
			continue
		}
		for _, ref := range refs {
			if ref == st.Name {
				result = multierror.Append(result, fmt.Errorf("stage %s depends on itself", st.Name))
			} else if _, ok := names[ref]; !ok {
				result = multierror.Append(result, fmt.Errorf("stage %s depends on unknown stage %s", st.Name, ref))
			} else {
				graph[st.Name] = append(graph[st.Name], ref)
			}
		}
	}

	for _, cycle := range dependencyCycles(order, graph) {
		result = multierror.Append(result, fmt.Errorf("stages %s form a dependency cycle", strings.Join(cycle, " -> ")))
	}

	return result.ErrorOrNil()
}

// dependencyCycles walks graph depth first in the given order and returns
// every cycle closed by a back edge, first stage repeated at the end.
func dependencyCycles(order []string, graph map[string][]string) [][]string {
	const (
		unvisited = iota
		visiting
		done
	)
	color := make(map[string]int, len(order))
	path := make([]string, 0, len(order))
	cycles := make([][]string, 0)

	var visit func(name string)
	visit = func(name string) {
		color[name] = visiting
		path = append(path, name)
		for _, ref := range graph[name] {
			switch color[ref] {
			case unvisited:
				visit(ref)
			case visiting:
				for i := len(path) - 1; i >= 0; i-- {
					if path[i] == ref {
						cycle := append(append([]string{}, path[i:]...), ref)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = done
	}

	for _, name := range order {
		if color[name] == unvisited {
			visit(name)
		}
	}
	return cycles
}

func (c *Catalogue) Stage(name string) (*Stage, error) {
	for _, st := range c.Stages {
		if st.Name == name {
			return st, nil
		}
	}
	return nil, StageNotFoundError{Name: name}
}

func (c *Catalogue) Names() []string {
	out := make([]string, len(c.Stages))
	for i, st := range c.Stages {
		out[i] = st.Name
	}
	return out
}

// Filtered returns the stages whose name matches the glob pattern; an
// empty pattern matches everything.
func (c *Catalogue) Filtered(pattern string) ([]*Stage, error) {
	if len(pattern) == 0 {
		return c.Stages, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrBadFilter, pattern, err)
	}
	out := make([]*Stage, 0, len(c.Stages))
	for _, st := range c.Stages {
		if g.Match(st.Name) {
			out = append(out, st)
		}
	}
	return out, nil
}

// Dependents lists the stages whose condition mentions name.
func (c *Catalogue) Dependents(name string) []*Stage {
	out := make([]*Stage, 0)
	for _, st := range c.Stages {
		refs, err := st.References()
		if err != nil {
			continue
		}
		for _, ref := range refs {
			if ref == name {
				out = append(out, st)
				break
			}
		}
	}
	return out
}
