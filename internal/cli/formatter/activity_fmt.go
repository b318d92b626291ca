package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/commitguard/internal/domain"
)

// FormatAudit renders audit entries oldest first. Superseded entries are
// dimmed.
func FormatAudit(entries []*domain.AuditEntry) string {
	if len(entries) == 0 {
		return Dim("No audit entries.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{fmt.Sprint(e.Seq), Timestamp(e.CreatedAt), string(e.Kind), e.NodeName, e.SubNodeName, e.ActorName}
		if e.IsSuperseded() {
			for i := range row {
				row[i] = Dim(row[i])
			}
		} else {
			row[2] = KindColor(e.Kind).Render(row[2])
		}
		rows = append(rows, row)
	}
	return RenderTable([]string{"SEQ", "TIME", "KIND", "NODE", "SUB-NODE", "ACTOR"}, rows)
}

// FormatAnalysis renders the stats dashboard.
func FormatAnalysis(a *domain.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Dim("SYNCS TODAY "), Bold(fmt.Sprint(a.SyncsToday)))
	fmt.Fprintf(&b, "%s  %s\n", Dim("ACTIVE USERS"), Bold(fmt.Sprint(a.ActiveUsers)))
	fmt.Fprintf(&b, "%s  %s\n", Dim("LOCKED      "), Bold(Plural(a.LockedSubNodes, "sub-node")))
	fmt.Fprintf(&b, "%s  %s\n", Dim("RISK        "), RiskIndicator(a.Risk))

	b.WriteString("\n" + Header("Activity by hour") + "\n")
	b.WriteString(Sparkline(a.Heatmap[:]) + "\n")
	b.WriteString(Dim("0     6     12    18   23") + "\n")

	if len(a.TopSyncers) > 0 {
		b.WriteString("\n" + Header("Top syncers") + "\n")
		rows := make([][]string, 0, len(a.TopSyncers))
		for i, s := range a.TopSyncers {
			rows = append(rows, []string{fmt.Sprintf("%d.", i+1), s.UserName, fmt.Sprint(s.Syncs)})
		}
		b.WriteString(RenderTable([]string{"#", "USER", "SYNCS"}, rows))
	}
	if len(a.NodeLockCount) > 0 {
		b.WriteString("\n" + Header("Locks per node") + "\n")
		rows := make([][]string, 0, len(a.NodeLockCount))
		for _, c := range a.NodeLockCount {
			rows = append(rows, []string{c.NodeName, StyleYellow.Render(fmt.Sprint(c.Locks))})
		}
		b.WriteString(RenderTable([]string{"NODE", "LOCKS"}, rows))
	}
	return RenderBox("Coordination", strings.TrimRight(b.String(), "\n"))
}

// FormatMatrix renders each member's commit status across the node's
// sub-nodes.
func FormatMatrix(m *domain.ReleaseMatrix) string {
	headers := []string{"MEMBER"}
	for _, s := range m.SubNodes {
		headers = append(headers, strings.ToUpper(s.Name))
	}
	headers = append(headers, "DONE")

	rows := make([][]string, 0, len(m.Rows))
	for _, r := range m.Rows {
		row := []string{r.UserName}
		for _, c := range r.Cells {
			row = append(row, StatusCell(c))
		}
		done := Dim("no")
		if r.Done {
			done = StyleGreen.Render("yes")
		}
		rows = append(rows, append(row, done))
	}

	var b strings.Builder
	b.WriteString(Header(m.NodeName+" release matrix") + "\n")
	if len(m.Rows) == 0 {
		b.WriteString(Dim("No members assigned.") + "\n")
		return b.String()
	}
	b.WriteString(RenderTable(headers, rows))
	if m.AllDone {
		b.WriteString("\n" + StyleGreen.Render("✔ Every member is done. Ready to release.") + "\n")
	}
	return b.String()
}
