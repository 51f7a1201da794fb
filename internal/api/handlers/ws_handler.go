package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Devansh978/AI-Interview-Assistant/internal/interview"
	"github.com/Devansh978/AI-Interview-Assistant/internal/models"
	"github.com/Devansh978/AI-Interview-Assistant/internal/services"
	"github.com/Devansh978/AI-Interview-Assistant/internal/utils"
)

// WSHandler streams the countdown and transcript growth to the client and
// accepts draft-answer updates, so the page always shows live remaining
// time without polling.
type WSHandler struct {
	svc      services.InterviewService
	upgrader websocket.Upgrader
}

func NewWSHandler(svc services.InterviewService) *WSHandler {
	return &WSHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsClientMsg struct {
	Type  string `json:"type"` // draft
	Draft string `json:"draft"`
}

type wsTickMsg struct {
	Type         string       `json:"type"` // tick
	Phase        models.Phase `json:"phase"`
	ActiveIndex  int          `json:"active_index"`
	RemainingSec *int         `json:"remaining_sec,omitempty"`
	ChatLen      int          `json:"chat_len"`
	Completed    bool         `json:"completed"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) InterviewWS(c *gin.Context) {
	candidateID := c.Param("candidate_id")
	if candidateID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.InterviewWS", "missing candidate_id", nil))
		return
	}
	if _, err := h.svc.Get(c.Request.Context(), candidateID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// reader: draft updates
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
				continue
			}

			switch msg.Type {
			case "draft":
				if err := h.svc.SetDraft(ctx, candidateID, msg.Draft); err != nil {
					_ = wc.writeText([]byte(`{"type":"error","code":"NOT_FOUND","message":"candidate gone"}`))
				}
			default:
				_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
			}
		}
	}()

	// writer: countdown ticks
	ticker := time.NewTicker(interview.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			cand, err := h.svc.Get(ctx, candidateID)
			if err != nil {
				return
			}
			msg := wsTickMsg{Type: "tick", Completed: cand.Completed}
			if s := cand.Session; s != nil {
				msg.Phase = s.Phase
				msg.ActiveIndex = s.ActiveIndex
				msg.ChatLen = len(s.Chat)
				if left, started := interview.RemainingSec(s.ActiveQuestion(), time.Now()); started {
					msg.RemainingSec = &left
				}
			}
			b, _ := json.Marshal(msg)
			if werr := wc.writeText(b); werr != nil {
				return
			}
		}
	}
}
