package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/ritzau/netview/pkg/graph"
	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/model"
)

// Report is what PrintNetworkReport summarizes
type Report struct {
	Source   string
	Response *model.NetworkResponse
	Policy   layout.Policy
	ShowAll  bool
}

// PrintNetworkReport prints a nicely formatted summary of a network with colors
func PrintNetworkReport(w io.Writer, r Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	resp := r.Response
	if resp == nil {
		resp = &model.NetworkResponse{}
	}
	snap := model.FromResponse(resp)
	index := graph.NewIndex(snap)

	// Header
	bold.Fprintln(w, "Entity Network Report")
	bold.Fprintln(w, "=====================")
	if r.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", r.Source)
	}
	if resp.IsFocal() {
		cyan.Fprintf(w, "Focal entity: %s (%d mentions)\n", resp.FocalEntity, resp.MentionCount)
	}
	fmt.Fprintf(w, "Entities: %d", snap.NodeCount())
	if resp.TotalEntities > 0 && resp.TotalEntities != snap.NodeCount() {
		fmt.Fprintf(w, " (of %d reported)", resp.TotalEntities)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Relationships: %d\n", snap.EdgeCount())

	if snap.Dropped() > 0 {
		yellow.Fprintf(w, "Dropped: %d connection(s) to unknown entities\n", snap.Dropped())
	}
	if dup := len(resp.Nodes) - snap.NodeCount(); dup > 0 {
		yellow.Fprintf(w, "Skipped: %d duplicate or empty entity id(s)\n", dup)
	}
	fmt.Fprintln(w)

	if snap.Empty() {
		red.Fprintln(w, "No entities to lay out.")
		return
	}

	// Types
	bold.Fprintln(w, "ENTITY TYPES:")
	for _, tc := range typeCounts(snap) {
		label := string(tc.typ)
		if !tc.typ.Known() {
			label += " (unknown)"
		}
		cyan.Fprintf(w, "  %-16s", label)
		fmt.Fprintf(w, " %d\n", tc.count)
	}
	fmt.Fprintln(w)

	// Heaviest entities, as the visibility policy would pick them
	sel := r.Policy.Visible(snap, r.ShowAll)
	if sel.Truncated {
		bold.Fprintf(w, "VISIBLE ENTITIES (top %d of %d):\n", len(sel.Nodes), snap.NodeCount())
	} else {
		bold.Fprintf(w, "ENTITIES (%d):\n", len(sel.Nodes))
	}
	for _, n := range sel.Nodes {
		yellow.Fprintf(w, "  %s", n.Label)
		fmt.Fprintf(w, "  [%s] weight=%g degree=%d\n", n.Type, n.Weight, index.Degree(n.ID))
	}
	if sel.Truncated {
		fmt.Fprintf(w, "  ... %d hidden, %d of %d relationships drawn\n", sel.Hidden, len(sel.Edges), snap.EdgeCount())
	}
	fmt.Fprintln(w)

	// Summary with color based on data quality
	components := index.Components()
	summaryColor := green
	if snap.Dropped() > 0 {
		summaryColor = yellow
	}
	summaryColor.Fprintf(w, "Summary: %d entities, %d relationships, %d connected component(s)\n",
		snap.NodeCount(), snap.EdgeCount(), len(components))

	if snap.Dropped() == 0 {
		green.Fprintln(w, "✓ Every connection resolves to a known entity")
	}
}

type typeCount struct {
	typ   model.EntityType
	count int
}

// typeCounts returns entity type frequencies, most common first
func typeCounts(snap *model.Snapshot) []typeCount {
	counts := make(map[model.EntityType]int)
	for _, n := range snap.Nodes() {
		counts[n.Type]++
	}
	out := make([]typeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, typeCount{typ: t, count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].typ < out[j].typ
	})
	return out
}
