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

package control

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/obiba/onyx/core/interview"
	"github.com/obiba/onyx/core/stage"
	"github.com/obiba/onyx/core/stage/action"
	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"
)

var (
	blue   = color.New(color.FgHiBlue).SprintFunc()
	green  = color.New(color.FgHiGreen).SprintFunc()
	yellow = color.New(color.FgHiYellow).SprintFunc()
	red    = color.New(color.FgHiRed).SprintFunc()
	grey   = color.New(color.FgWhite).SprintFunc()
)

func colorInterviewStatus(st string) string {
	switch st {
	case "IN_PROGRESS":
		return yellow(st)
	case "COMPLETED":
		return green(st)
	case "CLOSED":
		return blue(st)
	default:
		return red(st)
	}
}

func colorStageStatus(s interview.StageStatus) string {
	switch {
	case s.Completed:
		return green(s.State)
	case s.Final:
		return blue(s.State)
	case s.Interactive:
		return yellow(s.State)
	case len(s.Actions) == 0:
		return grey(s.State)
	default:
		return s.State
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return grey("none")
	}
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

func formatActions(defs action.Definitions) string {
	if len(defs) == 0 {
		return grey("none")
	}
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Type.String()
	}
	return strings.Join(out, ", ")
}

func drawTable(headers []string, data [][]string, o io.Writer) {
	table := tablewriter.NewWriter(o)
	table.SetHeader(headers)
	table.SetBorder(false)
	fg := tablewriter.Colors{tablewriter.Bold, tablewriter.FgYellowColor}
	fgColSlice := make([]tablewriter.Colors, len(headers))
	for i := 0; i < len(headers); i++ {
		fgColSlice[i] = fg
	}
	table.SetHeaderColor(fgColSlice...)

	table.AppendBulk(data)
	table.Render()
}

// drawCatalogue prints the stages as a dependency forest: each stage
// appears under every stage its condition refers to, stages without
// dependencies at the root.
func drawCatalogue(stages []*stage.Stage, o io.Writer) {
	dependents := make(map[string][]*stage.Stage)
	roots := make([]*stage.Stage, 0)
	for _, st := range stages {
		refs, err := st.References()
		if err != nil || len(refs) == 0 {
			roots = append(roots, st)
			continue
		}
		for _, ref := range refs {
			dependents[ref] = append(dependents[ref], st)
		}
	}

	var grow func(branch treeprint.Tree, st *stage.Stage, seen map[string]bool)
	grow = func(branch treeprint.Tree, st *stage.Stage, seen map[string]bool) {
		label := st.Name
		if st.DisplayLabel() != st.Name {
			label = fmt.Sprintf("%s %s", st.Name, grey("("+st.DisplayLabel()+")"))
		}
		children := dependents[st.Name]
		if len(children) == 0 || seen[st.Name] {
			branch.AddMetaNode(blue(st.Module), label)
			return
		}
		seen[st.Name] = true
		sub := branch.AddMetaBranch(blue(st.Module), label)
		for _, child := range children {
			grow(sub, child, seen)
		}
		delete(seen, st.Name)
	}

	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("%d stages", len(stages)))
	for _, st := range roots {
		grow(tree, st, map[string]bool{})
	}
	_, _ = fmt.Fprint(o, tree.String())
}
