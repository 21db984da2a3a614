package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/raphaelgruber/fortroute/internal/models"
)

// Theme holds the color scheme for terminal output.
type Theme struct {
	Title   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Accent  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title:   lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Accent:  lipgloss.Color("#D7AF5F"), // sand
}

// printer writes command output, styled only when it goes to a terminal.
type printer struct {
	w     io.Writer
	theme Theme
	color bool
}

func newPrinter(w io.Writer) *printer {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &printer{w: w, theme: defaultTheme, color: color}
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) title(text string) string {
	return p.style(lipgloss.NewStyle().Foreground(p.theme.Title).Bold(true), text)
}

func (p *printer) success(text string) string {
	return p.style(lipgloss.NewStyle().Foreground(p.theme.Success).Bold(true), text)
}

func (p *printer) warn(text string) string {
	return p.style(lipgloss.NewStyle().Foreground(p.theme.Error).Bold(true), text)
}

func (p *printer) hint(text string) string {
	return p.style(lipgloss.NewStyle().Foreground(p.theme.Hint).Italic(true), text)
}

func (p *printer) accent(text string) string {
	return p.style(lipgloss.NewStyle().Foreground(p.theme.Accent), text)
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func minutes(m float64) string {
	return strconv.FormatFloat(models.Round1(m), 'f', -1, 64) + " min"
}

func (p *printer) plan(plan models.RoutePlan, primary bool) {
	header := p.title(plan.Name)
	if primary {
		header += " " + p.success("(recommended)")
	}
	p.printf("%s  %s\n", header, p.accent(plan.EstimatedTime))
	p.println("  " + p.hint(plan.Description))

	for i, s := range plan.Stops {
		leg := "start"
		if i > 0 {
			leg = "walk " + minutes(s.WalkTime)
		}
		p.printf("  %d. %-24s %6s → %-8s %-14s importance %s\n",
			i+1, s.Name,
			strconv.FormatFloat(models.Round1(s.ArrivalTime), 'f', -1, 64),
			minutes(s.DepartureTime),
			leg,
			strconv.FormatFloat(models.Round1(s.Importance), 'f', -1, 64))
	}

	p.println("  " + plan.Explanation)
	p.println("  " + p.hint("Tradeoff: "+plan.Tradeoff))
	if plan.StatusText != "" {
		p.println("  " + p.warn(plan.StatusText))
	}
}

func (p *printer) aggregates(aggs []models.LocationAggregate) {
	if len(aggs) == 0 {
		p.println("No interactions recorded yet.")
		return
	}
	p.printf("%-20s %7s %6s %7s %9s %8s\n", "LOCATION", "VISITS", "CLICKS", "SKIPS", "AVG MIN", "SCORE")
	for _, a := range aggs {
		p.printf("%-20s %7d %6d %7d %9s %8s\n",
			a.LocationID, a.VisitCount, a.TotalClicks, a.TotalSkips,
			strconv.FormatFloat(models.Round1(a.AverageTimeSpent()), 'f', -1, 64),
			strconv.FormatFloat(models.Round2(a.AdaptiveScore), 'f', -1, 64))
	}
}

func (p *printer) aggregate(a models.LocationAggregate) {
	p.printf("%s %s/%s: %d visits, %d clicks, %d skips, score %s\n",
		p.success("✓"), a.SiteID, a.LocationID,
		a.VisitCount, a.TotalClicks, a.TotalSkips,
		strconv.FormatFloat(models.Round2(a.AdaptiveScore), 'f', -1, 64))
}

func (p *printer) scoring(cfg models.ScoringConfig) {
	state := p.success("enabled")
	if !cfg.Enabled {
		state = p.warn("disabled")
	}
	p.printf("Adaptive scoring: %s\n", state)
	p.printf("  click weight: %v\n", cfg.ClickWeight)
	p.printf("  time weight:  %v\n", cfg.TimeWeight)
	p.printf("  skip weight:  %v\n", cfg.SkipWeight)
}
