package potatopad

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/httpapi"
	"pkt.systems/potatopad/internal/eventbus"
	"pkt.systems/potatopad/sshserver"
	"pkt.systems/pslog"
)

// Server composes the playground with its HTTP and SSH front ends.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	Playground() *Playground
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Playground PlaygroundConfig
	HTTP       httpapi.Config
	SSH        sshserver.Config
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	Core core.Deps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH console.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable potatopad server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}

	coreDeps := deps.Core
	var hub *httpapi.Hub
	var bus *eventbus.Bus
	if options.enableSSH {
		bus = eventbus.New(coreDeps.Logger)
	}
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HTTP.History)
		if coreDeps.Logger != nil {
			hub.SetLogger(coreDeps.Logger)
		}
	}

	sinks := make([]core.EventSink, 0, 3)
	if coreDeps.EventSink != nil {
		sinks = append(sinks, coreDeps.EventSink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if bus != nil {
		sinks = append(sinks, bus)
	}
	switch len(sinks) {
	case 0:
		coreDeps.EventSink = nil
	case 1:
		coreDeps.EventSink = sinks[0]
	default:
		coreDeps.EventSink = eventFanout{sinks: sinks}
	}

	pad, err := NewPlayground(cfg.Playground, coreDeps)
	if err != nil {
		return nil, err
	}

	var httpSrv *httpapi.Server
	var sshSrv *sshserver.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, pad.Store, hub)
	}
	if options.enableSSH {
		baseURL := cfg.SSH.BaseURL
		if baseURL == "" {
			baseURL = cfg.HTTP.BaseURL
		}
		sshSrv = &sshserver.Server{
			Addr:        cfg.SSH.Addr,
			HostKeyPath: cfg.SSH.HostKeyPath,
			BaseURL:     baseURL,
			Playground:  pad.Store,
			EventBus:    bus,
		}
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		pad:     pad,
		httpSrv: httpSrv,
		sshSrv:  sshSrv,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	pad     *Playground
	httpSrv *httpapi.Server
	sshSrv  *sshserver.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Playground() *Playground {
	return s.pad
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_url", s.cfg.HTTP.BaseURL,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := s.httpSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableSSH && s.sshSrv != nil {
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	srvCtx := s.ctx
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-srvCtx.Done():
		log.Info("server stopped")
		return nil
	}
}
