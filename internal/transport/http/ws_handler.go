package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-attempt-engine/internal/attempt"
	"quiz-attempt-engine/internal/domain"
)

// WSHandler is the gateway presentation layers talk to: each connection
// drives exactly one attempt session, and the session's tick/status events
// stream back over the socket.
type WSHandler struct {
	authority attempt.GradingAuthority
	upgrader  websocket.Upgrader
}

func NewWSHandler(authority attempt.GradingAuthority) *WSHandler {
	return &WSHandler{
		authority: authority,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID      string `json:"questionId"`
	SelectedIndex   *int   `json:"selectedIndex,omitempty"`
	SelectedIndexes []int  `json:"selectedIndexes,omitempty"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type statusPayload struct {
	Status attempt.Status `json:"status"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and runs the per-connection session loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 32)
	writerDone := make(chan struct{})
	closeSignals := make(chan struct{})

	// Single writer goroutine; callbacks and the read loop both publish
	// through send, so the connection never sees concurrent writes.
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		default:
			// Drop the oldest pending message rather than block a tick or
			// status callback on a slow client.
			select {
			case <-send:
			default:
			}
			select {
			case send <- msg:
			default:
			}
		}
	}

	session := attempt.NewSession(quizID, h.authority, attempt.Callbacks{
		OnStatusChange: func(st attempt.Status) {
			push(outboundMessage{Type: "status", Payload: statusPayload{Status: st}})
		},
		OnTick: func(remaining int) {
			push(outboundMessage{Type: "tick", Payload: tickPayload{RemainingSeconds: remaining}})
		},
	})
	defer session.Close()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r, session, inbound, push)
	}

	close(closeSignals)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, session *attempt.Session, inbound inboundMessage, push func(outboundMessage)) {
	fail := func(err error) {
		push(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	switch inbound.Type {
	case "start":
		seed, err := session.Start(r.Context())
		if err != nil {
			fail(err)
			return
		}
		push(outboundMessage{Type: "started", Payload: seed})
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid select payload"}})
			return
		}
		sel, ok := toSelection(payload)
		if !ok {
			push(outboundMessage{Type: "error", Payload: errorPayload{Message: "select needs selectedIndex or selectedIndexes"}})
			return
		}
		if err := session.SelectAnswer(payload.QuestionID, sel); err != nil {
			fail(err)
		}
	case "goto":
		var payload gotoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}})
			return
		}
		session.GoTo(payload.Index)
	case "next":
		session.Next()
	case "previous":
		session.Previous()
	case "submit":
		result, err := session.Submit(r.Context())
		if err != nil {
			fail(err)
			return
		}
		push(outboundMessage{Type: "result", Payload: result})
		if review, err := session.Review(); err == nil {
			push(outboundMessage{Type: "review", Payload: review})
		}
	case "retry":
		seed, err := session.Retry(r.Context())
		if err != nil {
			fail(err)
			return
		}
		push(outboundMessage{Type: "started", Payload: seed})
	default:
		push(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}

func toSelection(payload selectPayload) (domain.Selection, bool) {
	switch {
	case payload.SelectedIndex != nil:
		return domain.SingleIndex(*payload.SelectedIndex), true
	case payload.SelectedIndexes != nil:
		return domain.IndexSet(payload.SelectedIndexes), true
	default:
		return nil, false
	}
}
