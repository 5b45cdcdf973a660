package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/cheese-chess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"go.uber.org/zap"
)

var errQuit = errors.New("quit")

const commandTimeout = 30 * time.Second

type terminal struct {
	be        backend
	formatter *chesspresenter.Formatter
	presenter *chesspresenter.Presenter
	logger    *zap.Logger

	in    io.Reader
	out   io.Writer
	outMu sync.Mutex

	view     *chessdto.View
	watching atomic.Bool
	lastEval atomic.Pointer[chessdto.Evaluation]
}

func newTerminal(be backend, formatter *chesspresenter.Formatter, in io.Reader, out io.Writer, logger *zap.Logger) *terminal {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &terminal{be: be, formatter: formatter, in: in, out: out, logger: logger}
	t.presenter = chesspresenter.NewPresenter(formatter, t.write, nil)
	return t
}

func (t *terminal) write(text string) error {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	_, err := fmt.Fprintln(t.out, text)
	return err
}

// evaluation receives every evaluation round. It prints only while watching and
// only when the search got deeper or the position changed.
func (t *terminal) evaluation(ev *chessdto.Evaluation) {
	if ev == nil {
		return
	}
	prev := t.lastEval.Swap(ev)
	if !t.watching.Load() {
		return
	}
	if prev != nil && prev.FEN == ev.FEN && prev.Depth == ev.Depth && prev.Score == ev.Score {
		return
	}
	_ = t.write(t.formatter.EvalBar(ev))
}

func (t *terminal) run(ctx context.Context) error {
	view, err := t.be.State(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	t.view = view
	_ = t.presenter.Board("", view, nil)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		t.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := t.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (t *terminal) prompt() {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fmt.Fprint(t.out, "> ")
}

func (t *terminal) handle(ctx context.Context, line string) error {
	act, ok := parseInput(t.view, line)
	if !ok {
		_ = t.write(fmt.Sprintf("Unknown input %q. Type 'help' for commands.", strings.TrimSpace(line)))
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch act.kind {
	case actQuit:
		return errQuit
	case actHelp:
		_ = t.write(t.formatter.Help())
	case actShow:
		view, err := t.be.State(cctx)
		if err != nil {
			return t.fail(err)
		}
		t.view = view
		_ = t.presenter.Board("", view, nil)
	case actWatch:
		on := !t.watching.Load()
		t.watching.Store(on)
		if on {
			_ = t.write("Live evaluation on.")
		} else {
			_ = t.write("Live evaluation off.")
		}
	case actPNG:
		path := act.arg
		if path == "" {
			path = "board.png"
		}
		png, err := t.be.BoardPNG(cctx)
		if err != nil {
			return t.fail(err)
		}
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return t.fail(err)
		}
		_ = t.write("Board written to " + path)
	case actHistory:
		limit := 0
		if act.arg != "" {
			n, err := strconv.Atoi(act.arg)
			if err != nil {
				_ = t.write("Usage: history [n]")
				return nil
			}
			limit = n
		}
		games, err := t.be.History(cctx, limit)
		if err != nil {
			return t.fail(err)
		}
		_ = t.write(t.formatter.History(games))
	case actGame:
		id, err := strconv.ParseInt(act.arg, 10, 64)
		if err != nil {
			_ = t.write("Usage: game <id>")
			return nil
		}
		g, err := t.be.Game(cctx, id)
		if err != nil {
			return t.fail(err)
		}
		_ = t.write(t.formatter.GameRecord(g))
	case actDispatch:
		view, err := t.be.Command(cctx, act.cmd, act.arg)
		if view != nil {
			t.view = view
			_ = t.presenter.Board("", view, nil)
		}
		if err != nil {
			return t.fail(err)
		}
	}
	return nil
}

// fail reports err to the player. Only context cancellation ends the loop.
func (t *terminal) fail(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	de := chesspresenter.ToDomainError(err)
	if de.Code == chessdto.CodeInternal {
		t.logger.Warn("terminal_command_failed", zap.Error(err))
	}
	_ = t.presenter.Error(de)
	return nil
}
