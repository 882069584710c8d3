package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbdb-network/cbdbnet/client"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func formatJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// formatTable prints aligned columns. Widths are measured in terminal cells
// so Chinese names line up.
func formatTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	pad := func(cells []string) []string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cell
			if i < len(widths) {
				parts[i] += strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			}
		}
		return parts
	}

	header := pad(headers)
	for i := range header {
		header[i] = headerStyle.Render(header[i])
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(header, "  "), " "))

	seps := make([]string, len(headers))
	for i, width := range widths {
		seps[i] = strings.Repeat("-", width)
	}
	fmt.Fprintln(w, strings.Join(seps, "  "))

	for _, row := range rows {
		fmt.Fprintln(w, strings.TrimRight(strings.Join(pad(row), "  "), " "))
	}
}

// output writes v as JSON, or as tables through table when --format=table.
func output(w io.Writer, v any, table func(io.Writer)) error {
	if flagFmt == "table" && table != nil {
		table(w)
		return nil
	}
	return formatJSON(w, v)
}

func optYear(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}

func seedMark(seed bool) string {
	if seed {
		return "*"
	}
	return ""
}

func personTable(w io.Writer, p *client.Person) {
	formatTable(w, []string{"ID", "LABEL", "NAME", "DYNASTY", "BORN", "DIED"}, [][]string{{
		strconv.FormatInt(p.ID, 10), p.Label, p.Name, p.Dynasty, optYear(p.BirthYear), optYear(p.DeathYear),
	}})
}

func nodesTable(w io.Writer, nodes []client.Person) {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10), n.Label, n.Dynasty, strconv.Itoa(n.Depth), seedMark(n.IsSeed),
		})
	}
	formatTable(w, []string{"ID", "LABEL", "DYNASTY", "DEPTH", "SEED"}, rows)
}

func metricsTable(w io.Writer, m client.NetworkMetrics) {
	formatTable(w, []string{"METRIC", "VALUE"}, [][]string{
		{"total persons", strconv.Itoa(m.TotalPersons)},
		{"query persons", strconv.Itoa(m.QueryPersons)},
		{"discovered persons", strconv.Itoa(m.DiscoveredPersons)},
		{"edges", strconv.Itoa(m.EdgeCount)},
		{"direct connections", strconv.Itoa(m.DirectConnections)},
		{"bridge nodes", strconv.Itoa(m.BridgeNodeCount)},
		{"density", strconv.FormatFloat(m.Density, 'f', 4, 64)},
		{"average path length", strconv.FormatFloat(m.AveragePathLength, 'f', 3, 64)},
		{"clustering coefficient", strconv.FormatFloat(m.ClusteringCoefficient, 'f', 4, 64)},
		{"components", strconv.Itoa(m.Components)},
		{"diameter", strconv.Itoa(m.Diameter)},
	})
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func networkTable(w io.Writer, res *client.NetworkResult) {
	fmt.Fprintln(w, titleStyle.Render("Persons"))
	nodesTable(w, res.Nodes)

	if len(res.BridgeNodes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Bridge nodes"))
		rows := make([][]string, 0, len(res.BridgeNodes))
		for _, b := range res.BridgeNodes {
			rows = append(rows, []string{strconv.FormatInt(b.PersonID, 10), b.Label, joinIDs(b.ConnectedSeeds)})
		}
		formatTable(w, []string{"ID", "LABEL", "SEEDS"}, rows)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Metrics"))
	metricsTable(w, res.Metrics)

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func recursiveTable(w io.Writer, res *client.RecursiveResult) {
	fmt.Fprintln(w, titleStyle.Render("Persons"))
	nodesTable(w, res.Nodes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Metrics"))
	metricsTable(w, res.Metrics)
}

func statsTable(w io.Writer, s *client.EdgeStats) {
	formatTable(w, []string{"TYPE", "COUNT"}, [][]string{
		{client.RelationKinship, strconv.Itoa(s.Kinship)},
		{client.RelationAssociation, strconv.Itoa(s.Association)},
		{client.RelationOffice, strconv.Itoa(s.Office)},
		{"total", strconv.Itoa(s.Total)},
	})
}

func pathTable(w io.Writer, p *client.PathResult) {
	rows := make([][]string, 0, len(p.Nodes))
	for i, n := range p.Nodes {
		via := ""
		if i > 0 && i-1 < len(p.Edges) {
			e := p.Edges[i-1]
			via = e.Type
			if e.Label != "" {
				via += ": " + e.Label
			}
		}
		rows = append(rows, []string{strconv.Itoa(i), strconv.FormatInt(n.ID, 10), n.Label, via})
	}
	formatTable(w, []string{"HOP", "ID", "LABEL", "VIA"}, rows)
}
