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

// Package stage defines interview stages, the states a stage goes through
// and the execution context that moves a stage from state to state.
package stage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/ast"
	"github.com/antonmedv/expr/parser"
	"github.com/antonmedv/expr/vm"
	"github.com/obiba/onyx/common/logger"
	"github.com/sirupsen/logrus"
)

var log = logger.New(logrus.StandardLogger(), "stage")

// View gives a dependency condition read access to the other stages of the
// same interview.
type View interface {
	IsCompleted(stage string) bool
	IsFinal(stage string) bool
	StateOf(stage string) string
}

// Stage is the static definition of one step of an interview.
type Stage struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Module      string `json:"module" yaml:"module" toml:"module"`
	Label       string `json:"label,omitempty" yaml:"label" toml:"label"`
	Description string `json:"description,omitempty" yaml:"description" toml:"description"`
	// DependsOn is a boolean expression over the other stages, e.g.
	// completed("CON") && !skipped("ANTHRO"). Empty means always satisfied.
	DependsOn string `json:"dependsOn,omitempty" yaml:"dependsOn" toml:"dependsOn"`

	compileOnce sync.Once
	program     *vm.Program
	compileErr  error
}

func (s *Stage) DisplayLabel() string {
	if len(s.Label) > 0 {
		return s.Label
	}
	return s.Name
}

func (s *Stage) HasDependency() bool {
	return len(strings.TrimSpace(s.DependsOn)) > 0
}

func conditionEnv(view View) map[string]interface{} {
	return map[string]interface{}{
		"completed": func(name string) bool { return view != nil && view.IsCompleted(name) },
		"final":     func(name string) bool { return view != nil && view.IsFinal(name) },
		"skipped":   func(name string) bool { return view != nil && view.StateOf(name) == "skipped" },
		"state": func(name string) string {
			if view == nil {
				return ""
			}
			return view.StateOf(name)
		},
	}
}

func (s *Stage) compile() (*vm.Program, error) {
	s.compileOnce.Do(func() {
		if !s.HasDependency() {
			return
		}
		s.program, s.compileErr = expr.Compile(s.DependsOn, expr.Env(conditionEnv(nil)), expr.AsBool())
		if s.compileErr != nil {
			s.compileErr = fmt.Errorf("stage %s: bad dependency condition: %w", s.Name, s.compileErr)
		}
	})
	return s.program, s.compileErr
}

// IsSatisfied evaluates DependsOn against view.
func (s *Stage) IsSatisfied(view View) (bool, error) {
	program, err := s.compile()
	if err != nil {
		return false, err
	}
	if program == nil {
		return true, nil
	}
	out, err := expr.Run(program, conditionEnv(view))
	if err != nil {
		return false, fmt.Errorf("stage %s: cannot evaluate dependency condition: %w", s.Name, err)
	}
	satisfied, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("stage %s: dependency condition returned %T", s.Name, out)
	}
	return satisfied, nil
}

type referenceCollector struct {
	names []string
}

func (r *referenceCollector) Visit(node *ast.Node) {
	call, ok := (*node).(*ast.CallNode)
	if !ok {
		return
	}
	if _, ok := call.Callee.(*ast.IdentifierNode); !ok {
		return
	}
	for _, arg := range call.Arguments {
		if str, ok := arg.(*ast.StringNode); ok {
			r.names = append(r.names, str.Value)
		}
	}
}

// References lists the stage names mentioned as string literals in
// DependsOn.
func (s *Stage) References() ([]string, error) {
	if !s.HasDependency() {
		return nil, nil
	}
	tree, err := parser.Parse(s.DependsOn)
	if err != nil {
		return nil, err
	}
	collector := &referenceCollector{}
	ast.Walk(&tree.Node, collector)
	return collector.names, nil
}
