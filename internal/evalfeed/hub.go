package evalfeed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/park285/cheese-chess/internal/adapter/chesspresenter"
	corechess "github.com/park285/cheese-chess/internal/chess"
	"github.com/park285/cheese-chess/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const TypeEvaluation = "evaluation"

// Hub fans evaluation rounds out to WebSocket subscribers. A subscriber that
// cannot keep up is disconnected instead of slowing the engine down.
type Hub struct {
	logger       *zap.Logger
	bufferSize   int
	writeTimeout time.Duration

	mu   sync.Mutex
	subs map[*subscriber]struct{}
	last *chessdto.FeedMessage
}

type subscriber struct {
	msgs      chan chessdto.FeedMessage
	closeSlow func()
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:       logger,
		bufferSize:   16,
		writeTimeout: 5 * time.Second,
		subs:         make(map[*subscriber]struct{}),
	}
}

// Publish matches the service's evaluation listener signature.
func (h *Hub) Publish(ev corechess.Evaluation) {
	h.Broadcast(chessdto.FeedMessage{Type: TypeEvaluation, Evaluation: chesspresenter.ToDTOEvaluation(ev)})
}

// Broadcast never blocks.
func (h *Hub) Broadcast(msg chessdto.FeedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &msg
	for s := range h.subs {
		select {
		case s.msgs <- msg:
		default:
			go s.closeSlow()
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("feed_accept_failed", zap.Error(err))
		return
	}
	defer c.Close(websocket.StatusInternalError, "feed closed")

	err = h.subscribe(r.Context(), c)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure, websocket.CloseStatus(err) == websocket.StatusGoingAway:
		return
	case err != nil:
		h.logger.Debug("feed_subscriber_gone", zap.String("remote", r.RemoteAddr), zap.Error(err))
	}
}

func (h *Hub) subscribe(ctx context.Context, c *websocket.Conn) error {
	// 클라이언트 메시지는 읽지 않음 (close frame 처리만)
	ctx = c.CloseRead(ctx)

	s := &subscriber{
		msgs: make(chan chessdto.FeedMessage, h.bufferSize),
		closeSlow: func() {
			_ = c.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with evaluations")
		},
	}
	h.add(s)
	defer h.remove(s)

	for {
		select {
		case msg := <-s.msgs:
			if err := h.write(ctx, c, msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
	if h.last != nil {
		s.msgs <- *h.last
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *Hub) write(ctx context.Context, c *websocket.Conn, msg chessdto.FeedMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, msg)
}

// Server serves the hub at /feed.
type Server struct {
	hub    *Hub
	logger *zap.Logger
	srv    *http.Server
}

func NewServer(hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/feed", hub)
	return &Server{
		hub:    hub,
		logger: logger,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
	}
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("feed_listening", zap.String("addr", ln.Addr().String()))
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
