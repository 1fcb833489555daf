package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/storyflow"
	"github.com/aretw0/storyflow/internal/logging"
	"github.com/aretw0/storyflow/internal/presentation/graph"
	"github.com/aretw0/storyflow/internal/presentation/tui"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/runner"
	"github.com/aretw0/storyflow/pkg/schema"
	"github.com/muesli/termenv"
)

// errQuit ends the loop without error.
var errQuit = errors.New("quit")

const helpText = `Commands:
  step, s              evaluate the current node
  back, b              undo the last step
  choose, c <id|n>     pick a response by id or number
  play, p              step until something needs attention
  reset                restart the session
  extend               raise the step limit
  vars                 list variables
  set <key> <value>    override a variable
  break <node>         toggle a breakpoint
  mode <analysis|player>
  graph                print the current graph as Mermaid
  where                show the current position
  quit, q              leave
`

// REPL is an interactive debugging session over a line-based reader.
type REPL struct {
	engine  *storyflow.Engine
	runner  *runner.Runner
	state   *domain.State
	console *tui.Console
	render  func(string) (string, error)
	out     io.Writer
	logger  *slog.Logger

	styled   bool
	interval time.Duration
	shown    int
}

// REPLOption configures a REPL.
type REPLOption func(*REPL)

// WithStyling enables colors and markdown rendering.
func WithStyling(enabled bool) REPLOption {
	return func(r *REPL) {
		r.styled = enabled
	}
}

// WithPlayInterval sets the delay between steps of the play command.
func WithPlayInterval(d time.Duration) REPLOption {
	return func(r *REPL) {
		r.interval = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) REPLOption {
	return func(r *REPL) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewREPL creates a REPL driving state on engine and writing to out.
func NewREPL(engine *storyflow.Engine, state *domain.State, out io.Writer, opts ...REPLOption) *REPL {
	r := &REPL{
		engine: engine,
		state:  state,
		out:    out,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.styled {
		r.console = tui.NewConsole(out)
		r.render = tui.NewRenderer(80)
	} else {
		r.console = tui.NewConsole(out, tui.WithProfile(termenv.Ascii))
		r.render = tui.PlainRenderer
	}
	r.runner = runner.New(engine,
		runner.WithInterval(r.interval),
		runner.WithLogger(r.logger),
		runner.WithObserver(func(_ domain.Result, s *domain.State) { r.show(s) }),
	)
	return r
}

// State returns the current session state.
func (r *REPL) State() *domain.State {
	return r.state
}

// Run reads commands from in until it ends, the user quits or ctx is cancelled.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	r.show(r.state)
	for {
		r.prompt()
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		err := r.Handle(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

// Handle executes one command line.
func (r *REPL) Handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "step", "s":
		res, next, err := r.engine.Step(ctx, r.state)
		if err != nil {
			return err
		}
		r.update(res, next)
	case "back", "b":
		next, err := r.engine.StepBack(ctx, r.state)
		if err != nil {
			return err
		}
		r.state = next
		r.show(next)
		printSystemMessage(r.out, "Back at '%s'.", r.position())
	case "choose", "c":
		if len(args) != 1 {
			return fmt.Errorf("usage: choose <id|n>")
		}
		res, next, err := r.engine.ChooseResponse(ctx, r.state, r.responseID(args[0]))
		if err != nil {
			return err
		}
		r.update(res, next)
	case "play", "p":
		res, next, err := r.runner.Play(ctx, r.state)
		if next != nil {
			r.state = next
		}
		if err != nil {
			return err
		}
		r.report(res)
	case "reset":
		r.state = r.engine.Reset(ctx, r.state)
		r.shown = 0
		printSystemMessage(r.out, "Session reset to '%s'.", r.position())
	case "extend":
		r.state = r.engine.ExtendStepLimit(ctx, r.state)
		r.show(r.state)
	case "vars":
		return r.printVariables()
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("usage: set <key> <value>")
		}
		return r.setVariable(ctx, args[0], strings.Join(args[1:], " "))
	case "break":
		if len(args) != 1 {
			return fmt.Errorf("usage: break <node>")
		}
		r.state = r.engine.ToggleBreakpoint(ctx, r.state, args[0])
		if _, on := r.state.Breakpoints[args[0]]; on {
			printSystemMessage(r.out, "Breakpoint set on '%s'.", args[0])
		} else {
			printSystemMessage(r.out, "Breakpoint removed from '%s'.", args[0])
		}
	case "mode":
		if len(args) != 1 {
			return fmt.Errorf("usage: mode <analysis|player>")
		}
		next, err := r.engine.SetViewMode(ctx, r.state, domain.ViewMode(args[0]))
		if err != nil {
			return err
		}
		r.state = next
		printSystemMessage(r.out, "View mode: %s.", next.ViewMode)
	case "graph":
		g, err := r.engine.Graph(ctx, r.state.GraphID)
		if err != nil {
			return err
		}
		fmt.Fprint(r.out, graph.GenerateMermaid(g, graph.OverlayFromState(r.state)))
	case "where":
		printSystemMessage(r.out, "At '%s' (%s, step %d/%d).", r.position(), r.state.Status, r.state.StepCount, r.state.MaxSteps)
	case "help", "h", "?":
		fmt.Fprint(r.out, helpText)
	case "quit", "q", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
	return nil
}

func (r *REPL) update(res domain.Result, next *domain.State) {
	r.state = next
	r.show(next)
	r.report(res)
}

// show prints the console entries not printed yet.
func (r *REPL) show(s *domain.State) {
	if len(s.Console) < r.shown {
		r.shown = len(s.Console)
		return
	}
	r.console.Print(s.Console[r.shown:])
	r.shown = len(s.Console)
}

func (r *REPL) report(res domain.Result) {
	switch res.Kind {
	case domain.ResultWaitingForChoice:
		r.printCandidates(res.Candidates)
	case domain.ResultFinished:
		printSystemMessage(r.out, "Finished at '%s' node.", r.position())
	case domain.ResultLimitReached:
		printSystemMessage(r.out, "Step limit reached. Type 'extend' to continue.")
	case domain.ResultBreakpointHit:
		printSystemMessage(r.out, "Paused on breakpoint at '%s'.", r.position())
	case domain.ResultEnteredGraph:
		printSystemMessage(r.out, "Entered flow '%s'.", res.GraphID)
	case domain.ResultReturnedToCaller:
		printSystemMessage(r.out, "Returned to flow '%s'.", res.GraphID)
	}
}

func (r *REPL) printCandidates(candidates []domain.ResponseCandidate) {
	var sb strings.Builder
	for i, c := range candidates {
		mark := ""
		if !c.Valid {
			mark = " *(condition failed)*"
		}
		fmt.Fprintf(&sb, "%d. **%s** %s%s\n", i+1, c.ID, c.Text, mark)
	}
	out, err := r.render(sb.String())
	if err != nil {
		out = sb.String()
	}
	fmt.Fprint(r.out, out)
}

func (r *REPL) printVariables() error {
	keys := make([]string, 0, len(r.state.Variables))
	for k := range r.state.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("| variable | kind | value | source |\n|---|---|---|---|\n")
	for _, k := range keys {
		v := r.state.Variables[k]
		fmt.Fprintf(&sb, "| %s | %s | %v | %s |\n", k, v.Kind, v.Value, v.Source)
	}
	out, err := r.render(sb.String())
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, out)
	return nil
}

func (r *REPL) setVariable(ctx context.Context, key, raw string) error {
	v, ok := r.state.Variables[key]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownVariable, key)
	}
	value, err := schema.Parse(v.Kind, raw)
	if err != nil {
		return err
	}
	next, err := r.engine.SetVariable(ctx, r.state, key, value)
	if err != nil {
		return err
	}
	r.state = next
	r.show(next)
	return nil
}

// responseID accepts a response id or its 1-based position in the pending list.
func (r *REPL) responseID(arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(r.state.PendingChoices) {
		return r.state.PendingChoices[n-1].ID
	}
	return arg
}

func (r *REPL) position() string {
	node := r.state.CurrentNodeID
	if node == "" {
		node = "(entry)"
	}
	return r.state.GraphID + "/" + node
}

func (r *REPL) prompt() {
	p := fmt.Sprintf("[%s] > ", r.position())
	if r.styled {
		p = r.console.Highlight(p)
	}
	fmt.Fprint(r.out, p)
}
