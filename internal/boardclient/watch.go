package boardclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chessboard/pkg/boarddto"
)

type WatchState string

const (
	WatchDisconnected WatchState = "disconnected"
	WatchConnecting   WatchState = "connecting"
	WatchConnected    WatchState = "connected"
	WatchReconnecting WatchState = "reconnecting"
	WatchFailed       WatchState = "failed"
)

type MessageCallback func(message *boarddto.Message)

type StateCallback func(state WatchState)

type callbackEntry struct {
	id       int
	callback MessageCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// Watcher follows one session's WebSocket feed and reconnects with backoff.
type Watcher struct {
	wsURL string

	conn       *websocket.Conn
	connCancel context.CancelFunc
	connM      sync.Mutex

	state  WatchState
	stateM sync.RWMutex

	msgCbs   []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
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

// WatchURL turns an http(s) server root into the session's ws(s) feed URL.
func WatchURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/sessions/" + url.PathEscape(sessionID)
	return u.String(), nil
}

func NewWatcher(wsURL string, maxReconnectAttempts int) *Watcher {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Watcher{
		wsURL:                wsURL,
		state:                WatchDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              rootCtx,
		rootCancel:           rootCancel,
	}
}

// SetHeaderProvider allows injecting headers into the WS handshake.
func (w *Watcher) SetHeaderProvider(h HeaderProvider) {
	w.headerProvider = h
}

func (w *Watcher) State() WatchState {
	w.stateM.RLock()
	defer w.stateM.RUnlock()
	return w.state
}

func (w *Watcher) Connect(ctx context.Context) error {
	if s := w.State(); s == WatchConnected || s == WatchConnecting {
		return nil
	}
	w.setState(WatchConnecting)
	conn, err := w.dial(ctx)
	if err != nil {
		w.setState(WatchFailed)
		w.scheduleReconnect()
		return err
	}
	w.attach(conn)
	return nil
}

// Send writes one command frame on the current connection.
func (w *Watcher) Send(ctx context.Context, msg boarddto.Message) error {
	w.connM.Lock()
	conn := w.conn
	w.connM.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	return wsjson.Write(dctx, conn, msg)
}

func (w *Watcher) Click(ctx context.Context, square string) error {
	msg, err := boarddto.NewMessage(boarddto.MessageTypeClick, boarddto.ClickRequest{Square: square})
	if err != nil {
		return err
	}
	return w.Send(ctx, msg)
}

func (w *Watcher) OnMessage(cb MessageCallback) int {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.nextCbID++
	w.msgCbs = append(w.msgCbs, callbackEntry{id: w.nextCbID, callback: cb})
	return w.nextCbID
}

func (w *Watcher) RemoveMessageCallback(id int) {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	for i, cb := range w.msgCbs {
		if cb.id == id {
			w.msgCbs = append(w.msgCbs[:i], w.msgCbs[i+1:]...)
			break
		}
	}
}

func (w *Watcher) OnStateChange(cb StateCallback) int {
	w.cbM.Lock()
	defer w.cbM.Unlock()
	w.nextCbID++
	w.stateCbs = append(w.stateCbs, stateCallbackEntry{id: w.nextCbID, callback: cb})
	return w.nextCbID
}

func (w *Watcher) Close(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.detachCurrent(websocket.StatusNormalClosure, "close")
	w.rootCancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		w.setState(WatchDisconnected)
		return nil
	}
}

func (w *Watcher) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      w.buildHeaders(),
	})
	return conn, err
}

func (w *Watcher) attach(conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(w.rootCtx)
	w.connM.Lock()
	w.conn = conn
	w.connCancel = cancel
	w.connM.Unlock()
	w.setState(WatchConnected)

	w.wg.Add(2)
	go w.listen(connCtx, conn)
	go w.pingLoop(connCtx, conn)
}

// detach closes conn if it is still current. Only the caller that wins may reconnect.
func (w *Watcher) detach(conn *websocket.Conn, code websocket.StatusCode, reason string) bool {
	w.connM.Lock()
	if w.conn != conn || conn == nil {
		w.connM.Unlock()
		return false
	}
	w.conn = nil
	cancel := w.connCancel
	w.connCancel = nil
	w.connM.Unlock()
	if cancel != nil {
		cancel()
	}
	_ = conn.Close(code, reason)
	return true
}

func (w *Watcher) detachCurrent(code websocket.StatusCode, reason string) {
	w.connM.Lock()
	conn := w.conn
	w.connM.Unlock()
	w.detach(conn, code, reason)
}

func (w *Watcher) listen(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	for {
		var msg boarddto.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if w.isStopping() {
				return
			}
			// 서버가 정상 종료하면 (세션 삭제 등) 재연결하지 않음
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				if w.detach(conn, websocket.StatusNormalClosure, "closed") {
					w.setState(WatchDisconnected)
				}
				return
			}
			if w.detach(conn, websocket.StatusGoingAway, "reconnect") {
				w.setState(WatchDisconnected)
				w.scheduleReconnect()
			}
			return
		}

		w.cbM.RLock()
		callbacks := make([]callbackEntry, len(w.msgCbs))
		copy(callbacks, w.msgCbs)
		w.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (w *Watcher) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer w.wg.Done()
	t := time.NewTicker(w.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				consecutivePingFailures = 0
				continue
			}
			consecutivePingFailures++
			if consecutivePingFailures >= 2 {
				if w.isStopping() {
					return
				}
				if w.detach(conn, websocket.StatusGoingAway, "ping failure") {
					w.setState(WatchDisconnected)
					w.scheduleReconnect()
				}
				return
			}
		}
	}
}

func (w *Watcher) scheduleReconnect() {
	if w.maxReconnectAttempts <= 0 || w.isStopping() {
		return
	}
	w.setState(WatchReconnecting)

	go func() {
		for attempt := 1; attempt <= w.maxReconnectAttempts; attempt++ {
			select {
			case <-w.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := w.dial(w.rootCtx)
			if err != nil {
				continue
			}
			if w.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			w.attach(conn)
			return
		}
		w.setState(WatchFailed)
	}()
}

func (w *Watcher) setState(state WatchState) {
	w.stateM.Lock()
	w.state = state
	w.stateM.Unlock()

	w.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(w.stateCbs))
	copy(callbacks, w.stateCbs)
	w.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (w *Watcher) isStopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Watcher) buildHeaders() http.Header {
	hdr := http.Header{}
	if w.headerProvider == nil {
		return hdr
	}
	for k, v := range w.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
