package inspector

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/veld-ui/veld/pkg/dom"
	"github.com/veld-ui/veld/pkg/runtime"
)

// probeComponent is a minimal compiled-component stand-in.
type probeComponent struct {
	runtime.Base
}

func newProbe(sched *runtime.Scheduler, parent runtime.Component, name string) *probeComponent {
	c := &probeComponent{}
	c.Init(sched, parent, c, name, 2)
	return c
}

func (c *probeComponent) Create()                               {}
func (c *probeComponent) Mount(parent *dom.Element, _ dom.Node) {}
func (c *probeComponent) Patch(dirty []uint32)                  {}
func (c *probeComponent) Detach()                               {}

// waitForServer polls the health endpoint until ready or timeout.
func waitForServer(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("http://localhost:%d/healthz", port)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func waitForServerDown(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	url := fmt.Sprintf("http://localhost:%d/healthz", port)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err != nil {
			return nil
		}
		resp.Body.Close()
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("server still running after %v", timeout)
}

func TestStartStop(t *testing.T) {
	srv := New(runtime.NewScheduler(), nil)
	port, err := srv.Start(0)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Stop()

	if err := waitForServer(port, 2*time.Second); err != nil {
		t.Fatalf("server not ready: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/healthz", port))
	if err != nil {
		t.Fatalf("failed to reach health endpoint: %v", err)
	}
	defer resp.Body.Close()

	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", health["status"])
	}

	srv.Stop()
	if err := waitForServerDown(port, 2*time.Second); err != nil {
		t.Errorf("server did not stop: %v", err)
	}
}

func TestTreeEndpoint(t *testing.T) {
	sched := runtime.NewScheduler()
	body := dom.NewElement("body")

	root := newProbe(sched, nil, "App")
	child := newProbe(sched, root, "Card")
	runtime.MountComponent(root, body, nil)
	_ = child

	root.MarkDirty(1)

	srv := New(sched, body)
	port, err := srv.Start(0)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Stop()
	if err := waitForServer(port, 2*time.Second); err != nil {
		t.Fatalf("server not ready: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/inspector/tree", port))
	if err != nil {
		t.Fatalf("failed to reach tree endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var tree TreeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		t.Fatalf("failed to decode tree: %v", err)
	}
	if len(tree.Roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tree.Roots))
	}
	app := tree.Roots[0]
	if app.Component != "App" {
		t.Errorf("root component = %q, want App", app.Component)
	}
	if app.ID == "" {
		t.Error("root instance has no id")
	}
	if len(app.Dirty) != 1 || app.Dirty[0] != "0x00000002" {
		t.Errorf("dirty words = %v, want [0x00000002]", app.Dirty)
	}
	if len(app.Children) != 1 || app.Children[0].Component != "Card" {
		t.Errorf("children = %+v, want one Card", app.Children)
	}
	if app.Children[0].Depth != 1 {
		t.Errorf("child depth = %d, want 1", app.Children[0].Depth)
	}
}

func TestDocumentEndpoint(t *testing.T) {
	body := dom.NewElement("body")
	p := dom.NewElement("p")
	dom.Insert(body, p, nil)
	dom.Insert(p, dom.NewText("hello"), nil)

	srv := New(runtime.NewScheduler(), body)
	port, err := srv.Start(0)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Stop()
	if err := waitForServer(port, 2*time.Second); err != nil {
		t.Fatalf("server not ready: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/inspector/dom", port))
	if err != nil {
		t.Fatalf("failed to reach dom endpoint: %v", err)
	}
	defer resp.Body.Close()

	var doc DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if doc.HTML != "<body><p>hello</p></body>" {
		t.Errorf("html = %q", doc.HTML)
	}
	if doc.Nodes != 3 {
		t.Errorf("nodes = %d, want 3", doc.Nodes)
	}
}

func TestDocumentEndpoint_NoRoot(t *testing.T) {
	srv := New(runtime.NewScheduler(), nil)
	port, err := srv.Start(0)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Stop()
	if err := waitForServer(port, 2*time.Second); err != nil {
		t.Fatalf("server not ready: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/inspector/dom", port))
	if err != nil {
		t.Fatalf("failed to reach dom endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 with no document, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(runtime.NewScheduler(), nil)
	port, err := srv.Start(0)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Stop()
	if err := waitForServer(port, 2*time.Second); err != nil {
		t.Fatalf("server not ready: %v", err)
	}

	resp, err := http.Post(fmt.Sprintf("http://localhost:%d/healthz", port), "application/json", nil)
	if err != nil {
		t.Fatalf("failed to reach health endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405 for POST, got %d", resp.StatusCode)
	}
}

func TestFailFastOnPortConflict(t *testing.T) {
	blocker, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create blocker listener: %v", err)
	}
	defer blocker.Close()

	srv := New(runtime.NewScheduler(), nil)
	_, err = srv.Start(blocker.Addr().(*net.TCPAddr).Port)
	if err == nil {
		srv.Stop()
		t.Error("expected error when binding to occupied port, got nil")
	}
}

func TestAlreadyRunningReturnsPort(t *testing.T) {
	srv := New(runtime.NewScheduler(), nil)
	port1, err := srv.Start(0)
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer srv.Stop()

	port2, err := srv.Start(0)
	if err != nil {
		t.Fatalf("second start returned error: %v", err)
	}
	if port1 != port2 {
		t.Errorf("expected same port %d, got %d", port1, port2)
	}
}
