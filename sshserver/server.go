package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"

	"pkt.systems/potatopad/internal/eventbus"
	"pkt.systems/potatopad/internal/format"
	"pkt.systems/potatopad/internal/logx"
	"pkt.systems/potatopad/internal/share"
	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

// Playground is the state the console reads and drives.
type Playground interface {
	Code() string
	SetCodeAndRun(ctx context.Context, code string) error
	Logs() []schema.LogEntry
	Theme() schema.ThemeName
}

const maxScriptBytes = 1 << 20

const usage = `usage: ssh <host> <command>

commands:
  run     read a script from stdin, run it and print the console
  logs    print the console of the last run
  code    print the editor text
  watch   stream console output until disconnect
  share   print a share link for the editor text
`

// Server exposes the playground console over SSH exec requests.
type Server struct {
	Addr        string
	HostKeyPath string
	BaseURL     string
	Listener    net.Listener
	Playground  Playground
	EventBus    *eventbus.Bus
	logger      pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Playground == nil {
		return errors.New("playground is required for SSH")
	}

	signer, err := LoadHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	s.logger.Debug("ssh host key", "path", s.HostKeyPath, "fingerprint", gossh.FingerprintSHA256(signer.PublicKey()))

	// No auth handlers are set, so gliderlabs accepts every client.
	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh listening", "addr", s.listenAddr())

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listenAddr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) handleSession(sess gliderssh.Session) {
	remote := sess.RemoteAddr().String()
	log := s.logger.With("remote", remote)
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ctx := logx.ContextWithRemoteLogger(sess.Context(), log, remote)

	args := sess.Command()
	command := ""
	if len(args) > 0 {
		command = strings.ToLower(args[0])
	}
	log.Info("ssh session opened", "command", command)

	renderer := s.renderer(sess)
	var code int
	switch command {
	case "run":
		code = s.runScript(ctx, sess, renderer)
	case "logs":
		code = printLogs(sess, renderer, s.Playground.Logs())
	case "code":
		_, _ = io.WriteString(sess, s.Playground.Code())
		code = 0
	case "watch":
		code = s.watch(ctx, sess, renderer)
	case "share":
		code = s.share(ctx, sess)
	case "", "help":
		_, _ = io.WriteString(sess, usage)
		code = 0
	default:
		_, _ = fmt.Fprintf(sess.Stderr(), "unknown command %q\n\n%s", command, usage)
		code = 2
	}
	log.Info("ssh session closed", "command", command, "exit", code)
	_ = sess.Exit(code)
}

func (s *Server) renderer(sess gliderssh.Session) format.Renderer {
	if _, _, isPty := sess.Pty(); isPty {
		return format.NewANSIRenderer(s.Playground.Theme())
	}
	return format.NewPlainRenderer()
}

func (s *Server) runScript(ctx context.Context, sess gliderssh.Session, renderer format.Renderer) int {
	log := pslog.Ctx(ctx)
	data, err := io.ReadAll(io.LimitReader(sess, maxScriptBytes+1))
	if err != nil {
		log.Warn("ssh run read failed", "err", err)
		_, _ = fmt.Fprintf(sess.Stderr(), "read script: %v\n", err)
		return 1
	}
	if len(data) > maxScriptBytes {
		_, _ = fmt.Fprintf(sess.Stderr(), "script exceeds %d bytes\n", maxScriptBytes)
		return 1
	}
	if err := s.Playground.SetCodeAndRun(ctx, string(data)); err != nil {
		log.Warn("ssh run failed", "err", err)
		_, _ = fmt.Fprintf(sess.Stderr(), "%v\n", err)
		return 1
	}
	return printLogs(sess, renderer, s.Playground.Logs())
}

func printLogs(sess gliderssh.Session, renderer format.Renderer, logs []schema.LogEntry) int {
	for _, entry := range logs {
		writeEntry(sess, renderer, entry)
	}
	if format.Failed(logs) {
		return 1
	}
	return 0
}

func writeEntry(sess gliderssh.Session, renderer format.Renderer, entry schema.LogEntry) {
	var out io.Writer = sess
	if format.ToStderr(entry.Kind) {
		out = sess.Stderr()
	}
	for _, line := range renderer.FormatEntry(entry) {
		_, _ = io.WriteString(out, line+"\r\n")
	}
}

func (s *Server) watch(ctx context.Context, sess gliderssh.Session, renderer format.Renderer) int {
	if s.EventBus == nil {
		_, _ = io.WriteString(sess.Stderr(), "watch unavailable\n")
		return 1
	}
	events, unsubscribe := s.EventBus.Subscribe(eventbus.EventConsole)
	defer unsubscribe()
	for _, entry := range s.Playground.Logs() {
		writeEntry(sess, renderer, entry)
	}
	for {
		select {
		case <-ctx.Done():
			return 0
		case event, ok := <-events:
			if !ok {
				return 0
			}
			switch event.Console.Type {
			case schema.ConsoleClear:
				_, _ = io.WriteString(sess, "----\r\n")
			case schema.ConsoleAppend:
				writeEntry(sess, renderer, event.Console.Entry)
			}
		}
	}
}

func (s *Server) share(ctx context.Context, sess gliderssh.Session) int {
	link, err := share.Link(s.BaseURL, s.Playground.Code())
	if err != nil {
		pslog.Ctx(ctx).Warn("ssh share failed", "err", err)
		_, _ = fmt.Fprintf(sess.Stderr(), "%v\n", err)
		return 1
	}
	_, _ = io.WriteString(sess, link+"\n")
	return 0
}
