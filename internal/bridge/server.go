// Package bridge lets an out-of-process host drive the dispatcher over HTTP
// and websocket, and streams log records back to it.
package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/TheLazyLemur/scchost/internal/dispatch"
	"github.com/TheLazyLemur/scchost/internal/scc"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBody = 1 << 20

// ErrClosed is reported for commands received after Close.
var ErrClosed = errors.New("bridge is shutting down")

// Executor runs one named command.
type Executor interface {
	ExecuteNamed(ctx context.Context, name string, req dispatch.Request) (dispatch.Outcome, error)
}

// Verbosity toggles debug tracing.
type Verbosity interface {
	SetVerbose(on bool)
	Verbose() bool
}

// Result is the wire form of a command outcome.
type Result struct {
	Command  string            `json:"command"`
	Outcome  *dispatch.Outcome `json:"outcome,omitempty"`
	Kind     string            `json:"kind"`
	Code     scc.ReturnCode    `json:"code"`
	CodeName string            `json:"code_name"`
	Error    string            `json:"error,omitempty"`
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command string           `json:"command"`
	Request dispatch.Request `json:"request"`
}

// Server serves the bridge endpoints. Commands from every client run one at
// a time.
type Server struct {
	hub       *Hub
	upgrader  websocket.Upgrader
	exec      Executor
	verbosity Verbosity
	gatherer  prometheus.Gatherer
	token     string

	// mu serialises commands.
	mu sync.Mutex

	// life guards closed and inflight.
	life     sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewServer creates a bridge server. An empty token disables every route.
func NewServer(hub *Hub, exec Executor, verbosity Verbosity, gatherer prometheus.Gatherer, token string) *Server {
	return &Server{
		hub:       hub,
		exec:      exec,
		verbosity: verbosity,
		gatherer:  gatherer,
		token:     token,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// non-browser clients send no origin
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return u.Host == r.Host
			},
		},
	}
}

// Handler returns the HTTP handler for the bridge.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.token == "" {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bridge disabled (no token set)", http.StatusForbidden)
		})
		return mux
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.gatherer != nil {
		mux.Handle("/metrics", s.requireAuth(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	mux.Handle("/api/command", s.requireAuth(http.HandlerFunc(s.handleCommand)))
	mux.Handle("/ws", s.requireAuth(http.HandlerFunc(s.handleWS)))

	return mux
}

func (s *Server) isAuthenticated(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		// browsers cannot set headers on a websocket handshake
		token = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAuthenticated(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	res := s.execute(r.Context(), body.Command, body.Request)
	w.Header().Set("Content-Type", "application/json")
	if res.Error != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(res)
}

func (s *Server) execute(ctx context.Context, command string, req dispatch.Request) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return NewResult(command, dispatch.Outcome{}, ErrClosed)
	}
	out, err := s.exec.ExecuteNamed(ctx, command, req)
	return NewResult(command, out, err)
}

func (s *Server) isClosed() bool {
	s.life.Lock()
	defer s.life.Unlock()
	return s.closed
}

// track registers one background command. It reports false once the server
// is closed.
func (s *Server) track() bool {
	s.life.Lock()
	defer s.life.Unlock()
	if s.closed {
		return false
	}
	s.inflight.Add(1)
	return true
}

// Close refuses new commands and waits for running ones to return. After
// Close the caller may tear down the provider.
func (s *Server) Close() {
	s.life.Lock()
	s.closed = true
	s.life.Unlock()

	s.inflight.Wait()
	// an HTTP command may still hold mu
	s.mu.Lock()
	s.mu.Unlock()
}

// NewResult converts a dispatcher outcome and error into its wire form.
func NewResult(command string, out dispatch.Outcome, err error) *Result {
	res := &Result{
		Command:  command,
		Outcome:  &out,
		Kind:     out.Status.Kind.String(),
		Code:     out.Status.Code,
		CodeName: out.Status.Code.String(),
	}
	if err != nil {
		res.Kind = scc.KindError.String()
		res.Error = err.Error()
		if code, ok := scc.CodeOf(err); ok {
			res.Code = code
			res.CodeName = code.String()
		}
	}
	return res
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	if !s.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s.handleMessage)
}

func (s *Server) handleMessage(client *Client, msg Message) {
	switch msg.Type {
	case "command":
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		var req dispatch.Request
		if msg.Request != nil {
			req = *msg.Request
		}
		if !s.track() {
			client.Send(Message{Type: "result", ID: id, Result: NewResult(msg.Command, dispatch.Outcome{}, ErrClosed)})
			return
		}
		// Provider calls may block on UI for a long time; keep reading pongs.
		go func() {
			defer s.inflight.Done()
			res := s.execute(context.Background(), msg.Command, req)
			client.Send(Message{Type: "result", ID: id, Result: res})
		}()

	case "verbose":
		if s.verbosity != nil && msg.Enabled != nil {
			s.verbosity.SetVerbose(*msg.Enabled)
		}
		on := s.verbosity != nil && s.verbosity.Verbose()
		client.Send(Message{Type: "verbose", ID: msg.ID, Enabled: &on})

	default:
		client.Send(Message{Type: "error", ID: msg.ID, Msg: "unknown message type " + msg.Type})
	}
}
