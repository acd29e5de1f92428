package sshserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/internal/eventbus"
	"pkt.systems/potatopad/internal/jsrun"
	"pkt.systems/potatopad/internal/share"
	"pkt.systems/potatopad/schema"
)

type harness struct {
	addr  string
	store *core.Store
}

func startServer(t *testing.T) *harness {
	t.Helper()
	bus := eventbus.New(nil)
	store, err := core.New(core.Config{}, core.Deps{EventSink: bus})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.SetEditor(core.NewTextBuffer())
	runner := jsrun.New(jsrun.Config{})
	store.SetRunCodeCallback(func(ctx context.Context) error {
		_, err := runner.Run(ctx, store.Editor(), store)
		return err
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &Server{
		HostKeyPath: filepath.Join(t.TempDir(), "host_key"),
		BaseURL:     "https://pad.example/",
		Listener:    ln,
		Playground:  store,
		EventBus:    bus,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("ssh server did not stop")
		}
	})
	return &harness{addr: ln.Addr().String(), store: store}
}

func (h *harness) session(t *testing.T) *ssh.Session {
	t.Helper()
	client, err := ssh.Dial("tcp", h.addr, &ssh.ClientConfig{
		User:            "potato",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return sess
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return -1
}

func TestRunCommandExecutesStdin(t *testing.T) {
	h := startServer(t)
	sess := h.session(t)
	var stdout, stderr bytes.Buffer
	sess.Stdin = strings.NewReader(`console.log("hi", 2); console.warn("careful")`)
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if err := sess.Run("run"); err != nil {
		t.Fatalf("run: %v (stderr %q)", err, stderr.String())
	}
	if got := stdout.String(); got != "hi 2\r\n"+schema.CompletionMessage+"\r\n" {
		t.Fatalf("unexpected stdout %q", got)
	}
	if got := stderr.String(); got != "careful\r\n" {
		t.Fatalf("unexpected stderr %q", got)
	}
	if code := h.store.Code(); !strings.Contains(code, `console.log("hi", 2)`) {
		t.Fatalf("expected editor to hold script, got %q", code)
	}
}

func TestRunCommandFailureExitsNonZero(t *testing.T) {
	h := startServer(t)
	sess := h.session(t)
	var stderr bytes.Buffer
	sess.Stdin = strings.NewReader(`throw new Error("boom")`)
	sess.Stderr = &stderr
	err := sess.Run("run")
	if code := exitStatus(err); code != 1 {
		t.Fatalf("expected exit 1, got %d (%v)", code, err)
	}
	if got := stderr.String(); got != "Error: boom\r\n" {
		t.Fatalf("unexpected stderr %q", got)
	}
}

func TestLogsAndShareCommands(t *testing.T) {
	h := startServer(t)
	h.store.AddLog(schema.LogInfo, "kept")

	sess := h.session(t)
	out, err := sess.Output("logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if string(out) != "kept\r\n" {
		t.Fatalf("unexpected logs output %q", out)
	}

	sess = h.session(t)
	out, err = sess.Output("share")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	link := strings.TrimSpace(string(out))
	if !strings.HasPrefix(link, "https://pad.example/#") {
		t.Fatalf("unexpected link %q", link)
	}
	code, err := share.Decode(share.FragmentFromURL(link))
	if err != nil || code != schema.DefaultCode {
		t.Fatalf("expected default code from link, got %q (%v)", code, err)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := startServer(t)
	sess := h.session(t)
	var stderr bytes.Buffer
	sess.Stderr = &stderr
	err := sess.Run("dance")
	if code := exitStatus(err); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "usage:") {
		t.Fatalf("expected usage, got %q", stderr.String())
	}
}

func TestWatchStreamsConsole(t *testing.T) {
	h := startServer(t)
	sess := h.session(t)
	stdout, err := sess.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	if err := sess.Start("watch"); err != nil {
		t.Fatalf("start: %v", err)
	}
	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- strings.TrimRight(scanner.Text(), "\r")
		}
		close(lines)
	}()

	// Keep publishing until the subscriber has attached.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case line := <-lines:
			if line == "ping" {
				_ = sess.Close()
				return
			}
		case <-tick.C:
			h.store.AddLog(schema.LogInfo, "ping")
		case <-deadline:
			t.Fatalf("timed out waiting for watched output")
		}
	}
}
