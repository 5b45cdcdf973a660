package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-chess/internal/domain"
	svcchess "github.com/park285/cheese-chess/internal/service/chess"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ChessService is the part of the chess service the HTTP API drives.
type ChessService interface {
	View() svcchess.View
	RenderBoard(ctx context.Context) ([]byte, error)
	Dispatch(ctx context.Context, name, arg string) error
	History(ctx context.Context, limit int) ([]*domain.ChessGame, error)
	Game(ctx context.Context, id int64) (*domain.ChessGame, error)
}

type Server struct {
	svc     ChessService
	logger  *zap.Logger
	timeout time.Duration
	srv     *fasthttp.Server
}

type Option func(*Server)

// WithRequestTimeout bounds the work done for one request, engine replies included.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewServer(svc ChessService, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, logger: logger, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "cheese-chess",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
	}
	return s
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("http_listening", zap.String("addr", ln.Addr().String()))
	return s.srv.Serve(ln)
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/state":
			if s.allow(ctx, fasthttp.MethodGet) {
				s.handleState(ctx)
			}
		case path == "/board.png":
			if s.allow(ctx, fasthttp.MethodGet) {
				s.handleBoard(ctx)
			}
		case path == "/command":
			if s.allow(ctx, fasthttp.MethodPost) {
				s.handleCommand(ctx)
			}
		case path == "/games":
			if s.allow(ctx, fasthttp.MethodGet) {
				s.handleHistory(ctx)
			}
		case strings.HasPrefix(path, "/games/"):
			if s.allow(ctx, fasthttp.MethodGet) {
				s.handleGame(ctx, strings.TrimPrefix(path, "/games/"))
			}
		case path == "/healthz":
			ctx.SetStatusCode(fasthttp.StatusOK)
			ctx.SetBodyString("ok")
		default:
			s.writeError(ctx, fasthttp.StatusNotFound, &chessdto.DomainError{Code: chessdto.CodeNotFound, Message: "no route for " + path})
		}

		s.logger.Debug("http_request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) allow(ctx *fasthttp.RequestCtx, method string) bool {
	if string(ctx.Method()) == method {
		return true
	}
	ctx.Response.Header.Set("Allow", method)
	s.writeError(ctx, fasthttp.StatusMethodNotAllowed, &chessdto.DomainError{Code: chessdto.CodeInvalidInput, Message: "method not allowed"})
	return false
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, fasthttp.StatusOK, chesspresenter.ToDTOView(s.svc.View()))
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	png, err := s.svc.RenderBoard(rctx)
	if err != nil {
		s.logger.Warn("render_board_failed", zap.Error(err))
		de := chesspresenter.ToDomainError(err)
		s.writeError(ctx, statusFor(de.Code), de)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetBody(png)
}

func (s *Server) handleCommand(ctx *fasthttp.RequestCtx) {
	var req chessdto.CommandRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || strings.TrimSpace(req.Command) == "" {
		s.writeError(ctx, fasthttp.StatusBadRequest, &chessdto.DomainError{Code: chessdto.CodeInvalidInput, Message: "body must be {\"command\":..., \"arg\":...}"})
		return
	}

	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.svc.Dispatch(rctx, req.Command, req.Arg)

	resp := chessdto.CommandResponse{View: chesspresenter.ToDTOView(s.svc.View())}
	status := fasthttp.StatusOK
	if err != nil {
		resp.Error = chesspresenter.ToDomainError(err)
		status = statusFor(resp.Error.Code)
		if status >= 500 {
			s.logger.Warn("command_failed", zap.String("command", req.Command), zap.Error(err))
		}
	}
	s.writeJSON(ctx, status, resp)
}

func (s *Server) handleHistory(ctx *fasthttp.RequestCtx) {
	limit := 0
	if raw := strings.TrimSpace(string(ctx.QueryArgs().Peek("limit"))); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(ctx, fasthttp.StatusBadRequest, &chessdto.DomainError{Code: chessdto.CodeInvalidInput, Message: "invalid limit " + strconv.Quote(raw)})
			return
		}
		limit = n
	}
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	games, err := s.svc.History(rctx, limit)
	if err != nil {
		de := chesspresenter.ToDomainError(err)
		s.writeError(ctx, statusFor(de.Code), de)
		return
	}
	out := chesspresenter.ToDTOGames(games)
	if out == nil {
		out = []*chessdto.ChessGame{}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, chessdto.HistoryResponse{Games: out})
}

func (s *Server) handleGame(ctx *fasthttp.RequestCtx, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(ctx, fasthttp.StatusBadRequest, &chessdto.DomainError{Code: chessdto.CodeInvalidInput, Message: "invalid game id " + strconv.Quote(rawID)})
		return
	}
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	g, err := s.svc.Game(rctx, id)
	if err != nil {
		de := chesspresenter.ToDomainError(err)
		s.writeError(ctx, statusFor(de.Code), de)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, chessdto.GameResponse{Game: chesspresenter.ToDTOGame(g)})
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, de *chessdto.DomainError) {
	s.writeJSON(ctx, status, struct {
		Error *chessdto.DomainError `json:"error"`
	}{Error: de})
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("encode_response_failed", zap.Error(err))
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":{"code":"internal","message":"encode response"}}`)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

// statusFor maps a domain error code onto an HTTP status.
func statusFor(code string) int {
	switch code {
	case chessdto.CodeInvalidPhase, chessdto.CodeNotYourTurn, chessdto.CodePromotion,
		chessdto.CodeDrawNotClaimable, chessdto.CodeTwoPlayerOnly, chessdto.CodeEvaluationOff:
		return fasthttp.StatusConflict
	case chessdto.CodeIllegalMove:
		return fasthttp.StatusUnprocessableEntity
	case chessdto.CodeInvalidInput, chessdto.CodeUnknownCommand:
		return fasthttp.StatusBadRequest
	case chessdto.CodeNotFound:
		return fasthttp.StatusNotFound
	case chessdto.CodeEngineUnavailable:
		return fasthttp.StatusServiceUnavailable
	case chessdto.CodeEngineTimeout:
		return fasthttp.StatusGatewayTimeout
	}
	return fasthttp.StatusInternalServerError
}
