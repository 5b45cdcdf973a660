package chessclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-chess/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type FeedState string

const (
	FeedDisconnected FeedState = "disconnected"
	FeedConnecting   FeedState = "connecting"
	FeedConnected    FeedState = "connected"
	FeedReconnecting FeedState = "reconnecting"
	FeedFailed       FeedState = "failed"
)

type MessageCallback func(msg *chessdto.FeedMessage)

type StateCallback func(state FeedState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Feed follows the evaluation feed over WebSocket and reconnects on failure.
type Feed struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  FeedState
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

func NewFeed(wsURL string, maxReconnectAttempts int) *Feed {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Feed{
		wsURL:                wsURL,
		state:                FeedDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              rootCtx,
		rootCancel:           rootCancel,
	}
}

func (f *Feed) Connect(ctx context.Context) error {
	switch f.State() {
	case FeedConnected, FeedConnecting:
		return nil
	}
	f.setState(FeedConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := f.dial(dialCtx)
	if err != nil {
		f.setState(FeedFailed)
		f.scheduleReconnect()
		return err
	}
	f.attach(conn)
	return nil
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, f.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      f.buildHeaders(),
	})
	return conn, err
}

func (f *Feed) attach(conn *websocket.Conn) {
	f.connM.Lock()
	f.conn = conn
	f.connM.Unlock()
	f.setState(FeedConnected)

	f.wg.Add(2)
	go f.listen(conn)
	go f.pingLoop(conn)
}

func (f *Feed) listen(conn *websocket.Conn) {
	defer f.wg.Done()
	for {
		var msg chessdto.FeedMessage
		if err := wsjson.Read(f.rootCtx, conn, &msg); err != nil {
			if f.isStopping() {
				return
			}
			f.drop(conn, "reconnect")
			return
		}

		f.cbM.RLock()
		callbacks := make([]callbackEntry, len(f.msgCbs))
		copy(callbacks, f.msgCbs)
		f.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (f *Feed) pingLoop(conn *websocket.Conn) {
	defer f.wg.Done()
	t := time.NewTicker(f.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-f.stopCh:
			return
		case <-f.rootCtx.Done():
			return
		case <-t.C:
			if f.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(f.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if !f.isStopping() {
					f.drop(conn, "ping failure")
				}
				return
			}
		}
	}
}

// drop closes conn once and starts reconnecting if it is still the live connection.
func (f *Feed) drop(conn *websocket.Conn, reason string) {
	f.connM.Lock()
	if f.conn != conn {
		f.connM.Unlock()
		return
	}
	f.conn = nil
	f.connM.Unlock()

	_ = conn.Close(websocket.StatusGoingAway, reason)
	f.setState(FeedDisconnected)
	f.scheduleReconnect()
}

func (f *Feed) scheduleReconnect() {
	if f.maxReconnectAttempts <= 0 {
		return
	}
	f.setState(FeedReconnecting)

	go func() {
		for attempt := 1; attempt <= f.maxReconnectAttempts; attempt++ {
			select {
			case <-f.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(f.rootCtx, 10*time.Second)
			conn, err := f.dial(dialCtx)
			cancel()
			if err != nil {
				continue
			}
			if f.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			f.attach(conn)
			return
		}
		f.setState(FeedFailed)
	}()
}

func (f *Feed) OnMessage(cb MessageCallback) int {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	f.nextID++
	f.msgCbs = append(f.msgCbs, callbackEntry{id: f.nextID, callback: cb})
	return f.nextID
}

func (f *Feed) RemoveMessageCallback(id int) {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	for i, cb := range f.msgCbs {
		if cb.id == id {
			f.msgCbs = append(f.msgCbs[:i], f.msgCbs[i+1:]...)
			break
		}
	}
}

func (f *Feed) OnStateChange(cb StateCallback) int {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	f.nextID++
	f.stateCbs = append(f.stateCbs, stateCallbackEntry{id: f.nextID, callback: cb})
	return f.nextID
}

func (f *Feed) RemoveStateCallback(id int) {
	f.cbM.Lock()
	defer f.cbM.Unlock()
	for i, cb := range f.stateCbs {
		if cb.id == id {
			f.stateCbs = append(f.stateCbs[:i], f.stateCbs[i+1:]...)
			break
		}
	}
}

func (f *Feed) State() FeedState {
	f.stateM.RLock()
	defer f.stateM.RUnlock()
	return f.state
}

func (f *Feed) setState(state FeedState) {
	f.stateM.Lock()
	f.state = state
	f.stateM.Unlock()

	f.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(f.stateCbs))
	copy(callbacks, f.stateCbs)
	f.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (f *Feed) Close(ctx context.Context) error {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.connM.Lock()
	conn := f.conn
	f.conn = nil
	f.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	f.rootCancel()
	f.setState(FeedDisconnected)

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (f *Feed) current() *websocket.Conn {
	f.connM.Lock()
	defer f.connM.Unlock()
	return f.conn
}

func (f *Feed) isStopping() bool {
	select {
	case <-f.stopCh:
		return true
	default:
		return false
	}
}

// SetHeaderProvider allows injecting headers into the WS handshake.
func (f *Feed) SetHeaderProvider(h HeaderProvider) {
	f.headerProvider = h
}

func (f *Feed) buildHeaders() http.Header {
	hdr := http.Header{}
	if f.headerProvider == nil {
		return hdr
	}
	for k, v := range f.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
