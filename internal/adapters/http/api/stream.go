package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/okian/visualverse/pkg/logger"
	"github.com/okian/visualverse/pkg/metrics"
)

// Stream interval bounds.
const (
	MinStreamInterval = 10 * time.Millisecond
	MaxStreamInterval = 5 * time.Second

	streamWriteTimeout = 5 * time.Second
	maxStreamParams    = 64 << 10
)

// Client playback commands.
const (
	cmdPause  = "pause"
	cmdResume = "resume"
	cmdStop   = "stop"
)

type frameMessage struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Frame any    `json:"frame"`
}

type doneMessage struct {
	Type    string `json:"type"`
	Total   int    `json:"total"`
	Sent    int    `json:"sent"`
	Stopped bool   `json:"stopped,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreamHandler plays a rendered sequence over a WebSocket.
type StreamHandler struct {
	renderer Renderer
	interval time.Duration
}

// NewStreamHandler creates a new stream handler with a default frame interval.
func NewStreamHandler(r Renderer, interval time.Duration) *StreamHandler {
	return &StreamHandler{renderer: r, interval: ClampInterval(interval)}
}

// ClampInterval bounds d to [MinStreamInterval, MaxStreamInterval].
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d < MinStreamInterval:
		return MinStreamInterval
	case d > MaxStreamInterval:
		return MaxStreamInterval
	default:
		return d
	}
}

// HandleStream handles GET /api/v1/stream/{domain}/{kind}?params=&interval_ms=.
// Frames are sent as {type:"frame"} messages followed by {type:"done"}.
// Text messages "pause", "resume" and "stop" control playback.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	interval := h.interval
	if v := r.URL.Query().Get("interval_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("interval_ms: %w", err)))
			return
		}
		interval = ClampInterval(time.Duration(ms) * time.Millisecond)
	}
	params := r.URL.Query().Get("params")
	if len(params) > maxStreamParams {
		writeError(w, r, WrapKind(op, ErrBadRequest, errors.New("params too long")))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := logger.FromContext(ctx)
	metrics.UpdateStreamSessions(1)
	defer metrics.UpdateStreamSessions(-1)

	domain, kind := chi.URLParam(r, "domain"), chi.URLParam(r, "kind")
	res, err := h.renderer.Render(ctx, domain, kind, json.RawMessage(params))
	if err != nil {
		_, code := classify(err)
		_ = write(ctx, conn, errorMessage{Type: "error", Code: code, Message: err.Error()})
		_ = conn.Close(websocket.StatusPolicyViolation, code)
		return
	}

	ctrl := make(chan string, 4)
	go readControl(ctx, conn, ctrl)

	seq := res.Sequence
	total := seq.Len()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	paused := false
	sent := 0
	for sent < total {
		if !paused {
			msg := frameMessage{Type: "frame", Index: sent, Total: total, Frame: seq.FrameAt(sent)}
			if err := write(ctx, conn, msg); err != nil {
				log.Debug(ctx, "stream write failed", logger.Error(err))
				return
			}
			metrics.RecordStreamFrameSent()
			sent++
			if sent == total {
				break
			}
		}
	wait:
		for {
			select {
			case <-ctx.Done():
				return
			case cmd, ok := <-ctrl:
				if !ok {
					return
				}
				switch cmd {
				case cmdPause:
					paused = true
				case cmdResume:
					paused = false
				case cmdStop:
					_ = write(ctx, conn, doneMessage{Type: "done", Total: total, Sent: sent, Stopped: true})
					_ = conn.Close(websocket.StatusNormalClosure, "stopped")
					return
				}
			case <-ticker.C:
				if !paused {
					break wait
				}
			}
		}
	}

	_ = write(ctx, conn, doneMessage{Type: "done", Total: total, Sent: sent})
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

// readControl forwards client text commands until the connection closes.
func readControl(ctx context.Context, conn *websocket.Conn, out chan<- string) {
	defer close(out)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		select {
		case out <- strings.ToLower(strings.TrimSpace(string(data))):
		case <-ctx.Done():
			return
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
