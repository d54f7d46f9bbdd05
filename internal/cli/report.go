package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/ashureev/speakup-gd/internal/domain"
)

// reportMarkdown renders an evaluation as a markdown report.
func reportMarkdown(topic string, ev *domain.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Discussion report\n\n**Topic:** %s\n\n", topic)
	fmt.Fprintf(&b, "## Overall score: %d/100\n\n", ev.OverallScore)
	if ev.PausePenalty > 0 {
		fmt.Fprintf(&b, "_%d points deducted for %d pause(s); raw score %d._\n\n", ev.PausePenalty, ev.PauseCount, ev.RawOverallScore)
	}

	b.WriteString("| Skill | Score |\n|---|---|\n")
	for _, row := range []struct {
		name  string
		score int
	}{
		{"Verbal ability", ev.VerbalAbility},
		{"Confidence", ev.Confidence},
		{"Interactivity", ev.Interactivity},
		{"Argument quality", ev.ArgumentQuality},
		{"Topic relevance", ev.TopicRelevance},
		{"Leadership", ev.Leadership},
	} {
		fmt.Fprintf(&b, "| %s | %d |\n", row.name, row.score)
	}

	fmt.Fprintf(&b, "\n## Feedback\n\n%s\n", ev.Feedback)
	writeList(&b, "Strengths", ev.Strengths)
	writeList(&b, "To improve", ev.Improvements)

	m := ev.CompletionMetrics
	fmt.Fprintf(&b, "\n## Participation\n\n- Time used: %.1f of %.1f minutes (%d%%)\n- Your turns: %d of %d\n",
		m.SessionDurationMinutes, m.ExpectedDurationMinutes, m.CompletionPercentage, m.UserTurns, m.TotalTurns)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// printReport writes the report, styled when stdout is a terminal.
func printReport(out io.Writer, topic string, ev *domain.Evaluation) error {
	md := reportMarkdown(topic, ev)
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(out, md)
		return err
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		_, werr := io.WriteString(out, md)
		return werr
	}
	styled, err := renderer.Render(md)
	if err != nil {
		styled = md
	}
	_, err = io.WriteString(out, styled)
	return err
}
