package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Markdown renders the run summary and every non-passing test as Markdown.
func Markdown(run Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# E2E run %s\n\n", run.RunID)
	fmt.Fprintf(&b, "Started %s, took %s.\n\n", run.StartTime.Format(time.DateTime), run.Duration.Round(time.Millisecond))
	b.WriteString("| Total | Passed | Failed | Errored |\n")
	b.WriteString("|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n", run.Summary.Total, run.Summary.Passed, run.Summary.Failed, run.Summary.Errored)

	var problems []Entry
	for _, e := range run.Tests {
		if e.Status != StatusPassed {
			problems = append(problems, e)
		}
	}
	if len(problems) == 0 {
		b.WriteString("\nAll tests passed.\n")
		return b.String()
	}

	b.WriteString("\n## Failures\n\n")
	for _, e := range problems {
		fmt.Fprintf(&b, "- **%s** %s", e.TestID, e.Status)
		if e.Reason != "" {
			fmt.Fprintf(&b, ": %s", firstLine(e.Reason))
		}
		b.WriteString("\n")
		for _, a := range e.Artifacts {
			fmt.Fprintf(&b, "  - screenshot: `%s`\n", a.Ref)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// renderMarkdown converts Markdown to sanitized HTML. Failure reasons are
// arbitrary text from the application under test, so the output goes through
// bluemonday before it reaches the template.
func renderMarkdown(s string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(s))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	rendered := markdown.Render(doc, renderer)

	return template.HTML(bluemonday.UGCPolicy().SanitizeBytes(rendered))
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"since": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>E2E report {{.Run.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
.passed { color: #1a7f37; } .failed { color: #cf222e; } .errored { color: #9a6700; }
img.shot { max-width: 480px; display: block; margin-top: 4px; }
</style>
</head>
<body>
<section class="summary">{{.Summary}}</section>
<h2>Tests</h2>
<table>
<tr><th>Test</th><th>Outcome</th><th>Duration</th><th>Details</th></tr>
{{range .Run.Tests}}<tr class="{{.Status}}">
<td>{{.TestID}}</td>
<td class="{{.Status}}">{{.Status}}</td>
<td>{{since .Duration}}</td>
<td>{{if .Reason}}<pre>{{.Reason}}</pre>{{end}}{{range .Artifacts}}
<a href="{{.Ref}}"><img class="shot" src="{{.Ref}}" alt="screenshot ({{.MIMEType}})"></a>{{if .RemoteURL}}<a href="{{.RemoteURL}}">uploaded copy</a>{{end}}{{end}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

// RenderHTML writes the HTML report for run.
func RenderHTML(w io.Writer, run Run) error {
	return htmlTemplate.Execute(w, struct {
		Run     Run
		Summary template.HTML
	}{
		Run:     run,
		Summary: renderMarkdown(Markdown(run)),
	})
}
