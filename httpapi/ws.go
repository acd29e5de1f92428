package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/potatopad/internal/logx"
	"pkt.systems/potatopad/schema"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The playground is a single local document; any origin may attach.
		return true
	},
}

// wsCommand is a client request received over the websocket.
type wsCommand struct {
	Type      string  `json:"type"`
	RequestID string  `json:"request_id,omitempty"`
	Code      *string `json:"code,omitempty"`
}

// wsReply answers a wsCommand.
type wsReply struct {
	Type      string            `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	Logs      []schema.LogEntry `json:"logs,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("http websocket upgrade failed", "err", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, seq, _, snapshot := s.subscribe()
	defer unsubscribe()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(StreamEvent{Seq: seq, Type: StreamSnapshot, Snapshot: &snapshot, Timestamp: time.Now()}); err != nil {
		log.Warn("http websocket snapshot failed", "err", err)
		_ = conn.Close()
		return
	}

	out := make(chan any, 64)
	log.Info("http websocket opened")
	go s.wsReadPump(ctx, cancel, conn, out)
	s.wsWritePump(ctx, conn, events, out)
	log.Info("http websocket closed")
}

// wsWritePump owns all writes to the connection.
func (s *Server) wsWritePump(ctx context.Context, conn *websocket.Conn, events <-chan StreamEvent, out <-chan any) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	write := func(payload any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(payload); err != nil {
			logx.Ctx(ctx).Debug("http websocket write failed", "err", err)
			return false
		}
		return true
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case payload := <-out:
			if !write(payload) {
				return
			}
		case event, ok := <-events:
			if !ok || !write(event) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) wsReadPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- any) {
	defer cancel()
	log := logx.Ctx(ctx)
	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("http websocket read failed", "err", err)
			}
			return
		}
		reply := s.wsHandle(ctx, cmd)
		select {
		case out <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) wsHandle(ctx context.Context, cmd wsCommand) wsReply {
	reply := wsReply{Type: cmd.Type, RequestID: cmd.RequestID}
	var err error
	switch cmd.Type {
	case "run":
		if err = s.pad.RunCode(ctx); err == nil {
			reply.Logs = s.pad.Logs()
		}
	case "code":
		if cmd.Code == nil {
			err = schema.ErrInvalidRequest
			break
		}
		if s.pad.AutoRun() {
			err = s.pad.SetCodeAndRun(ctx, *cmd.Code)
		} else {
			err = s.pad.SetCode(*cmd.Code)
		}
	case "clear":
		s.pad.ClearConsole()
	default:
		err = schema.ErrInvalidRequest
	}
	if err != nil {
		logx.Ctx(ctx).Warn("http websocket command failed", "type", cmd.Type, "err", err)
		reply.Type = "error"
		reply.Error = err.Error()
	}
	reply.Timestamp = time.Now()
	return reply
}
