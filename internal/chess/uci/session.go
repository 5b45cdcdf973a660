package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/park285/cheese-chess/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	stopDrainTimeout     = 2 * time.Second
	quitGracePeriod      = time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
	lineBuffer           = 256
)

// ErrEngineExited is returned once the engine process has closed its stdout.
var ErrEngineExited = errors.New("engine process exited")

type Options struct {
	Threads    int
	SkillLevel int
	HashMB     int
	MultiPV    int
}

// normalized maps option sets that configure the engine identically onto one value.
func (o Options) normalized() Options {
	if o.Threads <= 0 {
		o.Threads = 1
	}
	return o
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	lines      chan string
	readerDone chan struct{}
	closing    chan struct{}

	mu        sync.Mutex
	search    sync.Mutex
	closeOnce sync.Once
	closeErr  error
	broken    atomic.Bool

	logger *zap.Logger
}

// NewSession starts the engine binary and completes the uci/isready handshake.
// ctx bounds the handshake only; the process outlives it.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:        cmd,
		stdin:      stdin,
		lines:      make(chan string, lineBuffer),
		readerDone: make(chan struct{}),
		closing:    make(chan struct{}),
		logger:     obslog.Named("uci").With(zap.Int("pid", cmd.Process.Pid)),
	}
	go s.readLoop(stdoutPipe)

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.readerDone)
	defer close(s.lines)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		select {
		case s.lines <- line:
		case <-s.closing:
			return
		}
	}
}

type SearchRequest struct {
	FEN         string
	Moves       []string
	Limits      Limits
	GoOverrides []string
}

type SearchResponse struct {
	Candidates []Candidate
	BestMove   string
	Ponder     string
}

// Search runs one go command to completion. When ctx ends first, the engine is told to
// stop and its bestmove is drained so the session stays usable.
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	positionCmd := buildPositionCommand(req.FEN, req.Moves)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, s.fail(fmt.Errorf("send position: %w", err))
	}

	goTokens := req.GoOverrides
	var err error
	if len(goTokens) == 0 {
		goTokens, err = buildGoTokens(req.Limits)
		if err != nil {
			return SearchResponse{}, err
		}
	}

	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, s.fail(fmt.Errorf("send go: %w", err))
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			if errors.Is(err, ErrEngineExited) {
				return SearchResponse{}, s.fail(err)
			}
			s.logger.Debug("uci_search_interrupted",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err),
			)
			if derr := s.stopAndDrain(); derr != nil {
				return SearchResponse{}, s.fail(fmt.Errorf("drain after %v: %w", err, derr))
			}
			return SearchResponse{}, err
		}

		switch {
		case line == "", strings.HasPrefix(line, "info string"):
		case strings.HasPrefix(line, "info "):
			if info, ok := ParseInfo(line); ok {
				candidates[info.MultiPV] = info.Candidate()
			}
		case strings.HasPrefix(line, "bestmove"):
			best, ponder := parseBestMove(line)
			return SearchResponse{Candidates: collapseCandidates(candidates), BestMove: best, Ponder: ponder}, nil
		}
	}
}

func (s *Session) stopAndDrain() error {
	if err := s.send("stop\n"); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopDrainTimeout)
	defer cancel()
	return s.awaitToken(ctx, "bestmove")
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 20*time.Second {
			base = 20 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

func parseBestMove(line string) (string, string) {
	parts := strings.Fields(line)
	var best, ponder string
	if len(parts) >= 2 && parts[1] != "(none)" {
		best = parts[1]
	}
	if len(parts) >= 4 && parts[2] == "ponder" {
		ponder = parts[3]
	}
	return best, ponder
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return s.fail(fmt.Errorf("send isready: %w", err))
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return s.fail(fmt.Errorf("send ucinewgame: %w", err))
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts || !s.Healthy() {
			return err
		}
		s.logger.Warn("uci_ensure_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

// Healthy reports whether the process is still answering. Pools discard unhealthy sessions.
func (s *Session) Healthy() bool {
	if s.broken.Load() {
		return false
	}
	select {
	case <-s.readerDone:
		return false
	default:
		return true
	}
}

// Close asks the engine to quit and kills it if it has not exited within a second.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_ = s.send("quit\n")
		s.mu.Lock()
		if s.stdin != nil {
			s.stdin.Close()
		}
		s.mu.Unlock()

		select {
		case <-s.readerDone:
		case <-time.After(quitGracePeriod):
			if s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
		}
		close(s.closing)
		<-s.readerDone
		if err := s.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	opt = opt.normalized()
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", opt.Threads),
		fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB),
		fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel),
		fmt.Sprintf("setoption name MultiPV value %d\n", opt.MultiPV),
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) fail(err error) error {
	s.broken.Store(true)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			if errors.Is(err, ErrEngineExited) {
				s.broken.Store(true)
			}
			return err
		}
		if strings.HasPrefix(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", ErrEngineExited
		}
		return line, nil
	}
}
