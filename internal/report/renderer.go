// Package report renders a finished pipeline report for the terminal.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
)

const (
	// FrameWidth is the width of the rule framing each topic header.
	FrameWidth = 70

	// TakeawaysHeading is emphasised wherever it appears in a section.
	TakeawaysHeading = "Summary of Key Takeaways:"
)

var boldMarker = regexp.MustCompile(`\*\*(.*?)\*\*`)

// Renderer writes reports as framed, emphasised plain text. Styling follows
// the color profile of the lipgloss renderer it was built with, so output to
// a pipe or file carries no escape codes.
type Renderer struct {
	bold  lipgloss.Style
	faint lipgloss.Style
	upper cases.Caser
}

// NewRenderer returns a Renderer styled for lr. A nil lr uses the lipgloss
// default renderer, which targets stdout.
func NewRenderer(lr *lipgloss.Renderer) *Renderer {
	if lr == nil {
		lr = lipgloss.DefaultRenderer()
	}
	return &Renderer{
		bold:  lr.NewStyle().Bold(true),
		faint: lr.NewStyle().Faint(true),
		upper: cases.Upper(language.Und),
	}
}

// Render writes rep to w.
func (r *Renderer) Render(w io.Writer, rep *domain.Report) error {
	var sb strings.Builder
	rule := strings.Repeat("=", FrameWidth)

	fmt.Fprintf(&sb, "\n--- Final Comprehensive Analysis for %s ---\n", rep.Subject)
	for _, s := range rep.Sections {
		fmt.Fprintf(&sb, "\n\n%s\n", rule)
		fmt.Fprintf(&sb, "TOPIC: %s\n", r.upper.String(s.Topic.Label))
		fmt.Fprintf(&sb, "%s\n\n", rule)

		if !s.Available() {
			fmt.Fprintf(&sb, "%s %v\n", r.bold.Render("[unavailable]"), s.Err)
			continue
		}
		sb.WriteString(r.Format(s.Text))
		sb.WriteByte('\n')
		if s.RevisionErr != nil {
			sb.WriteString(r.faint.Render(fmt.Sprintf("(latest revision failed, showing the previous draft: %v)", s.RevisionErr)))
			sb.WriteByte('\n')
		}
	}
	fmt.Fprintf(&sb, "\n\n--- End of Analysis for %s ---\n", rep.Subject)
	sb.WriteString(r.faint.Render(Summary(rep)))
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

// Format emphasises **marked** spans and the takeaways heading, line by line.
func (r *Renderer) Format(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		line = strings.ReplaceAll(line, TakeawaysHeading, r.bold.Render(TakeawaysHeading))
		lines[i] = boldMarker.ReplaceAllStringFunc(line, func(m string) string {
			return r.bold.Render(boldMarker.FindStringSubmatch(m)[1])
		})
	}
	return strings.Join(lines, "\n")
}

// Summary is the one-line run summary printed after the report.
func Summary(rep *domain.Report) string {
	line := fmt.Sprintf("Completed in %s: %d revision cycle(s), %d critique attempt(s)",
		rep.Elapsed.Round(100*time.Millisecond), rep.Cycles, rep.Retries)
	if missing := rep.Unavailable(); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, t := range missing {
			labels[i] = t.Label
		}
		line += fmt.Sprintf(", %d topic(s) unavailable (%s)", len(missing), strings.Join(labels, ", "))
	}
	return line + "."
}
