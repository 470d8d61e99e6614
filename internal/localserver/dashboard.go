package localserver

import (
	"html/template"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func formatPercent(p float64) string {
	return printer.Sprintf("%.1f%%", p)
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"percent": formatPercent,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>YouTube Downloader Pro</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #ddd; padding: .4rem .6rem; text-align: left; }
.failed { color: #b00020; }
.completed { color: #1b5e20; }
</style>
</head>
<body>
<h1>Downloads</h1>
<p>{{.Summary.Total}} total, {{.Summary.Active}} active, {{.Summary.Completed}} completed, {{.Summary.Failed}} failed, {{.Summary.Cancelled}} cancelled</p>
{{if .Tasks}}
<table>
<thead><tr><th>Type</th><th>URL</th><th>Status</th><th>Progress</th><th>Videos</th><th>Current</th><th>Speed</th><th>ETA</th></tr></thead>
<tbody>
{{range .Tasks}}<tr class="{{.Status}}">
<td>{{.Kind}}</td>
<td><a href="{{.URL}}">{{.URL}}</a></td>
<td>{{.Status}}{{if .ErrorMessage}}: {{.ErrorMessage}}{{end}}</td>
<td>{{percent .Progress}}</td>
<td>{{if .TotalVideos}}{{.CompletedVideos}}/{{.TotalVideos}}{{end}}</td>
<td>{{.CurrentVideo}}</td>
<td>{{.Speed}}</td>
<td>{{.ETA}}</td>
</tr>
{{end}}</tbody>
</table>
{{else}}
<p>No downloads yet.</p>
{{end}}
</body>
</html>
`))

type dashboardData struct {
	Tasks   []Task
	Summary Summary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tasks := s.Tasks.List()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, dashboardData{Tasks: tasks, Summary: Summarize(tasks)}); err != nil {
		s.Logger.Error(r.Context(), "Failed to render dashboard", err, nil)
	}
}
