package httpapi

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/park285/cheese-chess/internal/chessclient"
	svcchess "github.com/park285/cheese-chess/internal/service/chess"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type testServer struct {
	svc    *svcchess.Service
	client *chessclient.Client
	ln     *fasthttputil.InmemoryListener
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	svc, err := svcchess.NewService(nil, nil, svcchess.NewMemoryRepository(), svcchess.NewBoardRenderer(240), svcchess.Config{SessionKey: "http"}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	srv := NewServer(svc, nil, WithRequestTimeout(5*time.Second))
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	client := chessclient.NewClient("http://chess.test",
		chessclient.WithDial(func(string) (net.Conn, error) { return ln.Dial() }),
		chessclient.WithTimeout(5*time.Second),
		chessclient.WithRetry(1),
	)
	return &testServer{svc: svc, client: client, ln: ln}
}

func TestCommandsPlayAndArchiveGame(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	v, err := ts.client.Command(ctx, "two", "")
	if err != nil {
		t.Fatalf("two: %v", err)
	}
	if v.Phase != "playing" || v.Mode != "multiplayer" {
		t.Fatalf("unexpected view after two: phase=%s mode=%s", v.Phase, v.Mode)
	}
	for _, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		if v, err = ts.client.Command(ctx, "move", mv); err != nil {
			t.Fatalf("move %s: %v", mv, err)
		}
	}
	if v.Phase != "game_over" || v.Result != "0-1" {
		t.Fatalf("expected black win, got phase=%s result=%s", v.Phase, v.Result)
	}
	if v.LastGameID == 0 {
		t.Fatalf("game was not archived")
	}

	state, err := ts.client.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.FEN != v.FEN {
		t.Fatalf("state FEN %q differs from command view %q", state.FEN, v.FEN)
	}

	games, err := ts.client.History(ctx, 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected 1 archived game, got %d", len(games))
	}
	g, err := ts.client.Game(ctx, games[0].ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if !strings.Contains(g.PGN, "1. f3 e5 2. g4 Qh4#") {
		t.Fatalf("unexpected PGN:\n%s", g.PGN)
	}
}

func TestRejectedCommandCarriesViewAndCode(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	v, err := ts.client.Command(ctx, "single", "")
	var de chessdto.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if de.Code != chessdto.CodeEngineUnavailable || !de.Retryable {
		t.Fatalf("unexpected error %+v", de)
	}
	if v == nil || v.Phase != "menu" {
		t.Fatalf("expected menu view alongside the error, got %+v", v)
	}

	if _, err := ts.client.Command(ctx, "two", ""); err != nil {
		t.Fatalf("two: %v", err)
	}
	_, err = ts.client.Command(ctx, "move", "e5")
	if !errors.As(err, &de) || de.Code != chessdto.CodeIllegalMove {
		t.Fatalf("expected illegal_move, got %v", err)
	}
	_, err = ts.client.Command(ctx, "castle-long", "")
	if !errors.As(err, &de) || de.Code != chessdto.CodeUnknownCommand {
		t.Fatalf("expected unknown_command, got %v", err)
	}
}

func TestGameNotFound(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.client.Game(context.Background(), 42)
	var de chessdto.DomainError
	if !errors.As(err, &de) || de.Code != chessdto.CodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestBoardPNG(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	if _, err := ts.client.Command(ctx, "two", ""); err != nil {
		t.Fatalf("two: %v", err)
	}
	if _, err := ts.client.Command(ctx, "click", "e2"); err != nil {
		t.Fatalf("click: %v", err)
	}
	raw, err := ts.client.BoardPNG(ctx)
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() < 240 {
		t.Fatalf("image too small: %v", img.Bounds())
	}
}

func TestRoutingErrors(t *testing.T) {
	ts := newTestServer(t)
	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ts.ln.Dial() }}

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{fasthttp.MethodGet, "/command", "", fasthttp.StatusMethodNotAllowed},
		{fasthttp.MethodPost, "/command", "not json", fasthttp.StatusBadRequest},
		{fasthttp.MethodGet, "/games?limit=abc", "", fasthttp.StatusBadRequest},
		{fasthttp.MethodGet, "/games/zero", "", fasthttp.StatusBadRequest},
		{fasthttp.MethodGet, "/nope", "", fasthttp.StatusNotFound},
		{fasthttp.MethodGet, "/healthz", "", fasthttp.StatusOK},
	}
	for _, tc := range cases {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		req.Header.SetMethod(tc.method)
		req.SetRequestURI("http://chess.test" + tc.path)
		if tc.body != "" {
			req.SetBodyString(tc.body)
		}
		if err := hc.DoTimeout(req, resp, 5*time.Second); err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		if resp.StatusCode() != tc.status {
			t.Fatalf("%s %s: status %d, want %d (body %s)", tc.method, tc.path, resp.StatusCode(), tc.status, resp.Body())
		}
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		chessdto.CodeInvalidPhase:      fasthttp.StatusConflict,
		chessdto.CodeNotYourTurn:       fasthttp.StatusConflict,
		chessdto.CodeIllegalMove:       fasthttp.StatusUnprocessableEntity,
		chessdto.CodeInvalidInput:      fasthttp.StatusBadRequest,
		chessdto.CodeNotFound:          fasthttp.StatusNotFound,
		chessdto.CodeEngineUnavailable: fasthttp.StatusServiceUnavailable,
		chessdto.CodeEngineTimeout:     fasthttp.StatusGatewayTimeout,
		chessdto.CodeInternal:          fasthttp.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := statusFor(code); got != want {
			t.Fatalf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
