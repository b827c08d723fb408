// Package inspector serves a JSON view of live component and node trees
// over HTTP for external tooling.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
)

// maxTreeDepth limits recursion depth to prevent stack overflow from malformed trees.
const maxTreeDepth = 500

// ComponentNode is one serialized component instance.
type ComponentNode struct {
	Type      string          `json:"type"`
	Component string          `json:"component,omitempty"`
	ID        string          `json:"id,omitempty"`
	Depth     int             `json:"depth"`
	Mounted   bool            `json:"mounted"`
	Dirty     []string        `json:"dirty,omitempty"`
	Children  []ComponentNode `json:"children,omitempty"`
}

// TreeResponse is the /inspector/tree payload.
type TreeResponse struct {
	Roots []ComponentNode `json:"roots"`
	Nodes int             `json:"nodes"`
}

// DocumentResponse is the /inspector/dom payload.
type DocumentResponse struct {
	HTML  string `json:"html"`
	Nodes int    `json:"nodes"`
}

// Server exposes a scheduler's component tree and a document root for
// inspection. Handlers read live state; callers must only serve between
// flushes (the scheduler is single-threaded, so any host that drives
// Flush from one goroutine satisfies this).
type Server struct {
	sched *runtime.Scheduler
	root  *dom.Element

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a server over sched. root is the document element generated
// components are mounted into; it may be nil, in which case /inspector/dom
// reports unavailable.
func New(sched *runtime.Scheduler, root *dom.Element) *Server {
	return &Server{sched: sched, root: root}
}

// Start binds a TCP listener on port and serves in the background. Returns
// the actual port, useful when port is 0 for ephemeral allocation. Calling
// Start on a running server returns the current port.
func (s *Server) Start(port int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return s.listener.Addr().(*net.TCPAddr).Port, nil
	}

	// Bind first to fail fast on port conflicts.
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, fmt.Errorf("inspector listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/inspector/tree", s.handleTree)
	mux.HandleFunc("/inspector/dom", s.handleDocument)
	mux.HandleFunc("/healthz", handleHealth)

	server := &http.Server{Handler: mux}
	s.server = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.mu.Lock()
			s.server = nil
			s.listener = nil
			s.mu.Unlock()
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port, nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Recover from panics during serialization.
	defer func() {
		if rec := recover(); rec != nil {
			http.Error(w, fmt.Sprintf("panic: %v", rec), http.StatusInternalServerError)
		}
	}()

	resp := TreeResponse{Roots: []ComponentNode{}}
	for _, root := range s.sched.Roots() {
		resp.Roots = append(resp.Roots, serializeComponent(root, 0))
	}
	if s.root != nil {
		resp.Nodes = countNodes(s.root)
	}

	writeJSON(w, resp)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.root == nil {
		http.Error(w, "no document", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, DocumentResponse{
		HTML:  s.root.OuterHTML(),
		Nodes: countNodes(s.root),
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	// Encode to a buffer first so errors surface as a status code.
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// instance is the bookkeeping surface every generated component carries
// through its embedded runtime base.
type instance interface {
	ID() string
	Name() string
	Mounted() bool
	Children() []runtime.Component
	DirtyWords() []uint32
}

// serializeComponent converts a component subtree to JSON-serializable
// form. The depth parameter limits recursion.
func serializeComponent(c runtime.Component, depth int) ComponentNode {
	node := ComponentNode{
		Type:  reflect.TypeOf(c).String(),
		Depth: c.Depth(),
	}
	inst, ok := c.(instance)
	if !ok {
		return node
	}

	node.Component = inst.Name()
	node.ID = inst.ID()
	node.Mounted = inst.Mounted()
	for _, word := range inst.DirtyWords() {
		node.Dirty = append(node.Dirty, fmt.Sprintf("0x%08x", word))
	}

	if depth < maxTreeDepth {
		for _, child := range inst.Children() {
			node.Children = append(node.Children, serializeComponent(child, depth+1))
		}
	}
	return node
}

// countNodes returns the number of nodes under root, inclusive.
func countNodes(root *dom.Element) int {
	count := 0
	root.Walk(func(dom.Node) bool {
		count++
		return true
	})
	return count
}
