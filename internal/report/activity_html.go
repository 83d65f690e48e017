package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"acip/internal/activity"
)

// activityPage renders the reviewer-facing timeline. Styling stays inline so
// the page is self-contained when saved or emailed.
var activityPage = template.Must(template.New("activity").Funcs(template.FuncMap{
	"ts": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
	"duration": func(ms int64) string {
		if ms <= 0 {
			return ""
		}
		return fmt.Sprintf("%dms", ms)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Activity - {{.CaseID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; font-size: 14px; }
th { background: #f4f4f4; }
.status-success { color: #1a7f37; }
.status-warning { color: #9a6700; }
.status-error { color: #cf222e; }
.status-decision { color: #0550ae; font-weight: bold; }
</style>
</head>
<body>
<h1>Case Activity: {{.CaseID}}</h1>
<p>{{len .Entries}} entries, generated {{ts .GeneratedAt}} UTC</p>
<table>
<tr><th>#</th><th>Time (UTC)</th><th>Actor</th><th>Action</th><th>Detail</th><th>Status</th><th>Duration</th></tr>
{{range .Entries}}<tr>
<td>{{.Sequence}}</td>
<td>{{ts .Timestamp}}</td>
<td>{{.Actor.DisplayName}}</td>
<td>{{.Action}}</td>
<td>{{.Detail}}</td>
<td class="status-{{.Status}}">{{.Status}}</td>
<td>{{duration .DurationMs}}</td>
</tr>{{end}}
</table>
</body>
</html>
`))

// ActivityHTML renders the activity timeline for a case as a standalone page.
func ActivityHTML(caseID string, entries []activity.Entry) (string, error) {
	var b strings.Builder
	err := activityPage.Execute(&b, struct {
		CaseID      string
		Entries     []activity.Entry
		GeneratedAt time.Time
	}{
		CaseID:      caseID,
		Entries:     entries,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("render activity page: %w", err)
	}
	return b.String(), nil
}
