package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/storyflow/pkg/condition"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/muesli/termenv"
)

// Console prints debugger console entries with one color per severity.
type Console struct {
	w   io.Writer
	out *termenv.Output
}

// ConsoleOption configures a Console.
type ConsoleOption func(*consoleConfig)

type consoleConfig struct {
	profile *termenv.Profile
}

// WithProfile forces a color profile, e.g. termenv.Ascii to disable colors.
func WithProfile(p termenv.Profile) ConsoleOption {
	return func(c *consoleConfig) {
		c.profile = &p
	}
}

// NewConsole creates a Console writing to w. The color profile is detected
// from w unless WithProfile is given.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	cfg := &consoleConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var outOpts []termenv.OutputOption
	if cfg.profile != nil {
		outOpts = append(outOpts, termenv.WithProfile(*cfg.profile))
	}
	return &Console{w: w, out: termenv.NewOutput(w, outOpts...)}
}

var severityColors = map[domain.Severity]string{
	domain.SeverityInfo:       "#60a5fa",
	domain.SeverityWarning:    "#fbbf24",
	domain.SeverityError:      "#f87171",
	domain.SeverityBreakpoint: "#c084fc",
}

// Format renders one entry, followed by its rule results indented.
func (c *Console) Format(e domain.ConsoleEntry) string {
	tag := c.out.String(fmt.Sprintf("[%s]", e.Severity)).Foreground(c.out.Color(severityColors[e.Severity]))
	if e.Severity == domain.SeverityError || e.Severity == domain.SeverityBreakpoint {
		tag = tag.Bold()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d", tag, e.Step)
	if e.NodeID != "" {
		fmt.Fprintf(&sb, " %s", c.out.String(e.NodeID).Faint())
	}
	fmt.Fprintf(&sb, " %s", e.Message)
	for _, r := range e.Rules {
		mark := c.out.String("✓").Foreground(c.out.Color("#34d399"))
		if !r.Passed {
			mark = c.out.String("✗").Foreground(c.out.Color("#f87171"))
		}
		fmt.Fprintf(&sb, "\n    %s %s", mark, condition.Describe(r))
	}
	return sb.String()
}

// Print writes entries to the console.
func (c *Console) Print(entries []domain.ConsoleEntry) {
	for _, e := range entries {
		fmt.Fprintln(c.w, c.Format(e))
	}
}

// Printf writes a plain line.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

// Highlight returns s in bold.
func (c *Console) Highlight(s string) string {
	return c.out.String(s).Bold().String()
}
