package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"oris/internal/util"
)

// StartInteractive runs the REPL on the terminal with line editing. The
// history file named by cfg is read on start and written on exit.
func StartInteractive(cfg util.ReplConfig, s *Session) error {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = PROMPT
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if cfg.History != "" {
		if f, err := os.Open(cfg.History); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(cfg.History)
			if err != nil {
				slog.Warn("failed to write history", slog.String("path", cfg.History), slog.Any("error", err))
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	sigc := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer func() {
		signal.Stop(sigc)
		close(done)
	}()
	go watchSignals(ln, sigc, done)

	for {
		src, ok := readInput(ln, prompt, CONTINUATION)
		if !ok {
			fmt.Println()
			return nil
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if s.command(trimmed, os.Stdout) {
				return nil
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		s.evalAndPrint(src, os.Stdout)
	}
}

// readInput prompts until the collected lines parse as complete, or fail for
// a reason more input cannot fix. ok is false at end of input.
func readInput(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// ctrl-c drops the pending input
			b.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			slog.Warn("failed to read input", slog.Any("error", err))
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, true
		}
	}
}

// watchSignals closes ln and exits when a signal arrives on sigc. It returns
// once done is closed.
func watchSignals(ln io.Closer, sigc <-chan os.Signal, done <-chan struct{}) {
	select {
	case <-sigc:
		ln.Close()
		os.Exit(130)
	case <-done:
	}
}
