// Package app hosts the terminal's websocket process: the connection
// loop, the command dispatcher and the room router.
//
// All shared state (record cache, session store, room memberships) is
// owned here and mutated only under the dispatch lock, so commands from
// different connections serialize while each connection's own commands
// run in arrival order.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/sablegrid/syndnet/internal/platform/timeouts"
	"github.com/sablegrid/syndnet/internal/terminal/cache"
	"github.com/sablegrid/syndnet/internal/terminal/domain"
	"github.com/sablegrid/syndnet/internal/terminal/eventlog"
	"github.com/sablegrid/syndnet/internal/terminal/keyring"
	"github.com/sablegrid/syndnet/internal/terminal/session"
	"github.com/sablegrid/syndnet/internal/terminal/storage"
	"github.com/sablegrid/syndnet/internal/terminal/token"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

// Config defines the transport inputs for the terminal server.
type Config struct {
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Deps are the collaborators the command core runs against.
type Deps struct {
	Store    storage.RecordStore
	Cache    *cache.Cache
	Sessions *session.Store
	Keys     *keyring.Keyring
	Events   eventlog.Sink
	Tokens   *token.Issuer

	// LoginGate, when set, may refuse an authentication attempt before
	// it reaches the dispatcher. Rate limiting lives behind it.
	LoginGate func(remoteAddr string) bool
}

// terminal is the command core shared by every connection.
type terminal struct {
	store    storage.RecordStore
	cache    *cache.Cache
	sessions *session.Store
	keys     *keyring.Keyring
	events   eventlog.Sink
	tokens   *token.Issuer
	hub      *roomHub

	loginGate func(string) bool

	// dispatchMu serializes command execution across connections.
	dispatchMu sync.Mutex

	commands map[string]commandHandler

	freqMu      sync.Mutex
	frequencies map[domain.Squad]string
}

func defaultFrequencies() map[domain.Squad]string {
	return map[domain.Squad]string{
		domain.SquadAlpha: "142.7 MHz",
		domain.SquadBeta:  "148.8 MHz",
	}
}

func newTerminal(deps Deps) (*terminal, error) {
	if deps.Store == nil {
		return nil, errors.New("record store is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("record cache is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Keys == nil {
		return nil, errors.New("keyring is required")
	}
	if deps.Events == nil {
		deps.Events = eventlog.NewStoreSink(nil)
	}

	t := &terminal{
		store:       deps.Store,
		cache:       deps.Cache,
		sessions:    deps.Sessions,
		keys:        deps.Keys,
		events:      deps.Events,
		tokens:      deps.Tokens,
		hub:         newRoomHub(),
		loginGate:   deps.LoginGate,
		frequencies: defaultFrequencies(),
	}
	t.registerCommands()
	return t, nil
}

// termConn is one live connection's handle into the core.
type termConn struct {
	id     string
	remote string
	peer   *peer
}

func (c *termConn) sendOutput(text string) {
	_ = c.peer.writeFrame(outputFrame(text))
}

// NewHandler builds the terminal HTTP routes. Tests drive the full
// websocket surface through it.
func NewHandler(deps Deps) (http.Handler, error) {
	t, err := newTerminal(deps)
	if err != nil {
		return nil, err
	}
	return t.routes(), nil
}

func (t *terminal) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexPage)
	})

	wsHandler := websocket.Handler(t.handleConn)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

func (t *terminal) handleConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	remote := ""
	if request := conn.Request(); request != nil {
		remote = request.RemoteAddr
	}
	tc := &termConn{
		id:     uuid.NewString(),
		remote: remote,
		peer:   newPeer(json.NewEncoder(conn)),
	}

	t.sessions.Add(tc.id)
	t.hub.register(tc.id, tc.peer)
	defer func() {
		state, _ := t.sessions.Get(tc.id)
		t.hub.unregister(tc.id)
		t.sessions.Remove(tc.id)
		t.events.Log(eventlog.KindDisconnection, connActor(tc.id, state), "connection closed")
	}()

	_ = tc.peer.writeFrame(uiStateFrame(uiStatePayload{Role: string(domain.RoleGuest), ShowUIPanel: false}))
	t.events.Log(eventlog.KindConnection, "SID:"+tc.id, "new connection")

	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}

	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var f frame
		if err := decoder.Decode(&f); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			tc.sendOutput("invalid frame payload\n")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(f.Payload) > maxFramePayloadBytes {
			tc.sendOutput("payload too large\n")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			tc.sendOutput("rate limit exceeded\n")
			return
		}

		switch f.Event {
		case eventLogin:
			var payload loginPayload
			if err := json.Unmarshal(f.Payload, &payload); err != nil {
				tc.sendOutput("invalid login payload\n")
				continue
			}
			t.withDispatchLock(func() {
				t.login(ctx, tc, payload.UID, payload.Key)
			})
		case eventTerminalInput:
			var payload terminalInputPayload
			if err := json.Unmarshal(f.Payload, &payload); err != nil {
				tc.sendOutput("invalid terminal input payload\n")
				continue
			}
			t.dispatch(ctx, tc, payload.Command)
		case eventSessionResume:
			var payload sessionResumePayload
			if err := json.Unmarshal(f.Payload, &payload); err != nil {
				tc.sendOutput("invalid resume payload\n")
				continue
			}
			t.withDispatchLock(func() {
				t.resume(ctx, tc, payload.Token)
			})
		default:
			tc.sendOutput(fmt.Sprintf("unsupported event %q\n", f.Event))
		}
	}
}

func (t *terminal) withDispatchLock(fn func()) {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()
	fn()
}

// stateOf returns the existing session; a connection outside the store
// reads as guest.
func (t *terminal) stateOf(connID string) session.State {
	state, ok := t.sessions.Get(connID)
	if !ok {
		return session.State{Role: domain.RoleGuest, Squad: domain.SquadNone}
	}
	return state
}

func connActor(connID string, state session.State) string {
	if state.Anonymous() {
		return "SID:" + connID
	}
	return fmt.Sprintf("UID:%s, Callsign:%s, SID:%s", state.UID, state.Callsign, connID)
}

func actorDescriptor(state session.State) string {
	if state.Anonymous() {
		return fmt.Sprintf("Role:%s", state.Role)
	}
	return fmt.Sprintf("UID:%s, Callsign:%s, Role:%s", state.UID, state.Callsign, state.Role)
}

// refresh reloads the record cache, degrading to the previous snapshot
// when the store is unreachable.
func (t *terminal) refresh(ctx context.Context) *cache.Snapshot {
	if err := t.cache.Refresh(ctx); err != nil {
		log.Printf("terminal: cache refresh failed, serving last snapshot: %v", err)
	}
	return t.cache.Current()
}

// Server hosts the terminal HTTP/websocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// NewServer builds a configured terminal server.
func NewServer(config Config, deps Deps) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// Run creates and serves a terminal server until the context ends.
func Run(ctx context.Context, config Config, deps Deps) error {
	server, err := NewServer(config, deps)
	if err != nil {
		return fmt.Errorf("init terminal server: %w", err)
	}
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve terminal: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("terminal server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("terminal server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
