package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/potatopad/internal/logx"
	"pkt.systems/potatopad/internal/share"
	"pkt.systems/potatopad/internal/version"
	"pkt.systems/potatopad/schema"
)

// Playground is the state the API reads and mutates.
type Playground interface {
	Snapshot() schema.Snapshot
	Settings() schema.Settings
	Code() string
	SetCode(code string) error
	SetCodeAndRun(ctx context.Context, code string) error
	Observe(fn func(schema.Snapshot))
	SetTheme(theme schema.ThemeName) error
	SetFontSize(size int) error
	SetLang(lang schema.Lang)
	SetAutoRun(enabled bool)
	AutoRun() bool
	Snippets() []schema.Snippet
	AddSnippet(label, code string) error
	Logs() []schema.LogEntry
	ClearConsole()
	RunCode(ctx context.Context) error
}

const maxBodyBytes = 1 << 20

// Server serves the HTTP API.
type Server struct {
	cfg      Config
	pad      Playground
	hub      *Hub
	basePath string
	linkBase string
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, pad Playground, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(cfg.History)
	}
	return &Server{
		cfg:      cfg,
		pad:      pad,
		hub:      hub,
		basePath: normalizeBasePath(cfg.BasePath),
		linkBase: linkBase(cfg.BaseURL, cfg.BasePath),
	}
}

// Hub returns the event hub feeding the streams.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/code", s.handleCode)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/snippets", s.handleSnippets)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/console/clear", s.handleClear)
	mux.HandleFunc("/api/run", s.handleRun)
	mux.HandleFunc("/api/share", s.handleShare)
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/ws", s.handleWebsocket)

	return mountAt(s.basePath, withRequestLogging(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, version.Describe())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.pad.Snapshot())
}

func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"code": s.pad.Code()})
	case http.MethodPut:
		var payload struct {
			Code *string `json:"code"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil || payload.Code == nil {
			log.Warn("http code decode failed", "err", err)
			writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
			return
		}
		// With auto-run on, a busy playground rejects the edit as a whole.
		ran := s.pad.AutoRun()
		var err error
		if ran {
			err = s.pad.SetCodeAndRun(r.Context(), *payload.Code)
		} else {
			err = s.pad.SetCode(*payload.Code)
		}
		if err != nil {
			log.Warn("http code update failed", "err", err, "auto_run", ran)
			writeError(w, statusFor(err), err)
			return
		}
		log.Debug("http code updated", "bytes", len(*payload.Code), "ran", ran)
		writeJSON(w, http.StatusOK, map[string]any{"code": *payload.Code, "ran": ran})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type settingsPatch struct {
	Theme    *string `json:"theme"`
	FontSize *int    `json:"font_size"`
	Lang     *string `json:"lang"`
	AutoRun  *bool   `json:"auto_run"`
}

func (p settingsPatch) validate() error {
	if p.Theme != nil {
		if _, ok := schema.NormalizeThemeName(*p.Theme); !ok {
			return schema.ErrInvalidTheme
		}
	}
	if p.FontSize != nil && *p.FontSize <= 0 {
		return schema.ErrInvalidFontSize
	}
	return nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.pad.Settings())
	case http.MethodPut, http.MethodPatch:
		var patch settingsPatch
		if err := decodeJSON(r.Body, &patch); err != nil {
			log.Warn("http settings decode failed", "err", err)
			writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
			return
		}
		if err := patch.validate(); err != nil {
			log.Warn("http settings rejected", "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var errs []error
		if patch.Theme != nil {
			theme, _ := schema.NormalizeThemeName(*patch.Theme)
			errs = append(errs, s.pad.SetTheme(theme))
		}
		if patch.FontSize != nil {
			errs = append(errs, s.pad.SetFontSize(*patch.FontSize))
		}
		if patch.Lang != nil {
			s.pad.SetLang(schema.Lang(strings.TrimSpace(*patch.Lang)))
		}
		if patch.AutoRun != nil {
			s.pad.SetAutoRun(*patch.AutoRun)
		}
		if err := errors.Join(errs...); err != nil {
			// The in-memory settings are already applied; only persistence failed.
			log.Error("http settings persist failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":    err.Error(),
				"settings": s.pad.Settings(),
			})
			return
		}
		writeJSON(w, http.StatusOK, s.pad.Settings())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSnippets(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"snippets": s.pad.Snippets()})
	case http.MethodPost:
		var payload struct {
			Label string  `json:"label"`
			Code  *string `json:"code"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			log.Warn("http snippet decode failed", "err", err)
			writeError(w, http.StatusBadRequest, schema.ErrInvalidRequest)
			return
		}
		label := strings.TrimSpace(payload.Label)
		if label == "" {
			writeError(w, http.StatusBadRequest, schema.ErrInvalidSnippet)
			return
		}
		code := s.pad.Code()
		if payload.Code != nil {
			code = *payload.Code
		}
		if err := s.pad.AddSnippet(label, code); err != nil {
			log.Error("http snippet persist failed", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"snippets": s.pad.Snippets()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.pad.Logs()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.pad.ClearConsole()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	start := time.Now()
	if err := s.pad.RunCode(r.Context()); err != nil {
		log.Warn("http run failed", "err", err)
		writeError(w, statusFor(err), err)
		return
	}
	logs := s.pad.Logs()
	log.Debug("http run ok", "entries", len(logs), "duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	code := s.pad.Code()
	fragment, err := share.Encode(code)
	if err != nil {
		logx.Ctx(r.Context()).Error("http share encode failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	link, err := share.Link(s.publicBase(r), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fragment": fragment, "link": link})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	ch, unsubscribe, seq, history, snapshot := s.subscribe()
	defer unsubscribe()

	// Resume from history when it still covers the gap, otherwise reseed.
	replay, resumed := replayFrom(history, seq, lastID)
	if lastID == 0 {
		resumed = false
	}
	if resumed {
		for _, event := range replay {
			_ = writeSSEvent(w, event)
		}
	} else {
		_ = writeSSEvent(w, StreamEvent{
			Seq:       seq,
			Type:      StreamSnapshot,
			Snapshot:  &snapshot,
			Timestamp: time.Now(),
		})
	}
	flusher.Flush()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "resumed", resumed, "replay", len(replay))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

// subscribe registers with the hub while the playground holds its state
// still, so the snapshot covers exactly the events up to the returned seq.
func (s *Server) subscribe() (<-chan StreamEvent, func(), uint64, []StreamEvent, schema.Snapshot) {
	var (
		ch       <-chan StreamEvent
		unsub    func()
		seq      uint64
		history  []StreamEvent
		snapshot schema.Snapshot
	)
	s.pad.Observe(func(snap schema.Snapshot) {
		snapshot = snap
		ch, unsub, seq, history = s.hub.Subscribe()
	})
	return ch, unsub, seq, history, snapshot
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrRunBusy):
		return http.StatusConflict
	case errors.Is(err, schema.ErrNoEditor):
		return http.StatusServiceUnavailable
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidTheme),
		errors.Is(err, schema.ErrInvalidFontSize),
		errors.Is(err, schema.ErrInvalidSnippet):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
