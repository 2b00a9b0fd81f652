package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"oris/internal/evaluator"
	"oris/internal/lexer"
	"oris/internal/object"
	"oris/internal/parser"
	"oris/internal/seed"
	"oris/internal/store"
)

const (
	PROMPT        = ">> "
	CONTINUATION  = ".. "
	journalLength = 10
)

// Session is one REPL conversation: an environment that survives between
// inputs, and optionally a store for the journal and saved globals.
type Session struct {
	env     *object.Environment
	store   *store.Store
	journal bool
	history []string
}

func NewSession(env *object.Environment) *Session {
	return &Session{env: env}
}

// WithStore attaches st. With journal set every input is recorded as a run.
func (s *Session) WithStore(st *store.Store, journal bool) *Session {
	s.store = st
	s.journal = journal
	return s
}

func (s *Session) Env() *object.Environment { return s.env }

func (s *Session) History() []string { return s.history }

// Eval evaluates src in the session environment. The result is rendered with
// Inspect, and unit renders as the empty string.
func (s *Session) Eval(src string) (string, error) {
	s.history = append(s.history, src)

	result, err := evaluator.Evaluate(s.env, []byte(src))

	rendered := ""
	if err == nil && result != object.UNIT {
		rendered = result.Inspect()
	}

	if s.store != nil && s.journal {
		run := store.Run{Source: src, Result: rendered}
		if err != nil {
			run.Error = err.Error()
		}
		if jerr := s.store.RecordRun(context.Background(), run); jerr != nil {
			slog.Warn("failed to record run", slog.Any("error", jerr))
		}
	}

	return rendered, err
}

// Restore defines the bindings saved in the store.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	bindings, err := s.store.LoadBindings(ctx)
	if err != nil {
		return err
	}
	seed.Apply(s.env, bindings)
	return nil
}

// Persist saves the globals that can be stored.
func (s *Session) Persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveBindings(ctx, s.globals())
}

func (s *Session) globals() []seed.Binding {
	var bindings []seed.Binding
	for _, name := range s.env.Globals() {
		value, _ := s.env.Get(name)
		if _, builtin := value.(*object.Builtin); builtin {
			continue
		}
		bindings = append(bindings, seed.Binding{Name: name, Value: value})
	}
	return bindings
}

// command runs a meta command. quit is set for :quit.
func (s *Session) command(line string, out io.Writer) (quit bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case ":quit", ":q":
		return true
	case ":env":
		for _, b := range s.globals() {
			fmt.Fprintf(out, "%s = %s\n", b.Name, b.Value.Inspect())
		}
	case ":history":
		for i, src := range s.history {
			fmt.Fprintf(out, "%4d  %s\n", i+1, strings.ReplaceAll(src, "\n", " "))
		}
	case ":runs":
		if s.store == nil {
			io.WriteString(out, "no store configured\n")
			return false
		}
		runs, err := s.store.Runs(context.Background(), journalLength)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		for _, run := range runs {
			outcome := run.Result
			if run.Error != "" {
				outcome = "error: " + run.Error
			}
			fmt.Fprintf(out, "%4d  %s => %s\n", run.ID, strings.ReplaceAll(run.Source, "\n", " "), outcome)
		}
	default:
		io.WriteString(out, "unknown command. Type :quit to exit.\n")
	}
	return false
}

// evalAndPrint evaluates src and writes its result, or the rendered error,
// to out.
func (s *Session) evalAndPrint(src string, out io.Writer) {
	rendered, err := s.Eval(src)
	if err != nil {
		io.WriteString(out, object.RenderError([]byte(src), err))
		io.WriteString(out, "\n")
		return
	}
	if rendered != "" {
		io.WriteString(out, rendered)
		io.WriteString(out, "\n")
	}
}

// incomplete reports whether src stops before its last statement is done.
func incomplete(src string) bool {
	_, err := parser.New(lexer.New([]byte(src))).ParseProgram()
	return err != nil && parser.IsIncomplete(err)
}

// Start reads lines from in until it is exhausted or :quit is entered. Lines
// are joined while the input so far is incomplete.
func Start(in io.Reader, out io.Writer, s *Session) {
	scanner := bufio.NewScanner(in)
	var pending strings.Builder

	for {
		if pending.Len() == 0 {
			io.WriteString(out, PROMPT)
		} else {
			io.WriteString(out, CONTINUATION)
		}
		if !scanner.Scan() {
			if pending.Len() > 0 {
				s.evalAndPrint(pending.String(), out)
			}
			return
		}

		line := scanner.Text()
		if pending.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, ":") {
				if s.command(trimmed, out) {
					return
				}
				continue
			}
		} else {
			pending.WriteByte('\n')
		}
		pending.WriteString(line)

		src := pending.String()
		if incomplete(src) {
			continue
		}
		pending.Reset()
		s.evalAndPrint(src, out)
	}
}
