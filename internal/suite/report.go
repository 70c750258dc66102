package suite

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown formats a report as a markdown document: a summary
// followed by a table of failed cases.
func RenderMarkdown(s *Suite, report *Report) string {
	var b strings.Builder

	title := s.Name
	if title == "" {
		title = s.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if s.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Description)
	}

	st := report.Stats
	fmt.Fprintf(&b, "| Run | Cases | Passed | Failed | Pass rate | Duration |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| `%s` | %d | %d | %d | %.1f%% | %s |\n\n",
		report.Run.ID, st.Total, st.Passed, st.Failed, st.PassRate*100, st.Duration.Round(time.Microsecond))

	failures := report.Failures()
	if len(failures) == 0 {
		b.WriteString("All cases passed.\n")
		return b.String()
	}

	b.WriteString("## Failures\n\n")
	b.WriteString("| Case | Expression | Expected | Actual |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, f := range failures {
		actual := f.Actual
		if f.Error != "" {
			actual = f.Error
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n",
			f.CaseID, escapeCell(f.Expression), escapeCell(f.Expected), escapeCell(actual))
	}
	return b.String()
}

// escapeCell keeps a value on one table row
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return s
}
