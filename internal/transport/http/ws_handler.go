package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"training-quiz-service/internal/app"
	"training-quiz-service/internal/domain"
)

const (
	msgBegin    = "begin"
	msgAnswer   = "answer"
	msgNavigate = "navigate"
	msgSubmit   = "submit"
	msgRetry    = "retry"
	msgAbandon  = "abandon"

	msgError  = "error"
	msgClosed = "closed"
)

// WSHandler drives a single quiz session over a websocket: commands come in
// as messages, session events go out as they are broadcast.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
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

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ServeWS upgrades the request and attaches it to the session named by the
// sessionId query parameter. The subscription opens with a state snapshot.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	enqueue := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			if msg.Type == msgClosed {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				// Unblocks the read loop.
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				msg := outboundMessage{Type: msgClosed, Payload: sessionID}
				if ok {
					msg = outboundMessage{Type: string(ev.Type), Payload: ev.Session}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
				if !ok {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r.Context(), sessionID, inbound); err != nil {
			enqueue(errorMessage(err))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch runs one inbound command. Successful commands answer through the
// session broadcast, so only failures produce a direct reply.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, in inboundMessage) error {
	var err error
	switch in.Type {
	case msgBegin:
		_, err = h.service.Begin(ctx, sessionID)
	case msgAnswer:
		var sub domain.AnswerSubmission
		if err := json.Unmarshal(in.Payload, &sub); err != nil {
			return fmt.Errorf("%w: invalid answer payload", domain.ErrValidation)
		}
		_, err = h.service.Answer(ctx, sessionID, sub)
	case msgNavigate:
		var req navigateRequest
		if err := json.Unmarshal(in.Payload, &req); err != nil {
			return fmt.Errorf("%w: invalid navigate payload", domain.ErrValidation)
		}
		_, err = h.service.Navigate(ctx, sessionID, req.Position)
	case msgSubmit:
		_, err = h.service.Submit(ctx, sessionID)
	case msgRetry:
		_, err = h.service.RetryPersist(ctx, sessionID)
	case msgAbandon:
		err = h.service.Abandon(ctx, sessionID)
	default:
		return fmt.Errorf("%w: unsupported message type %q", domain.ErrValidation, in.Type)
	}
	return err
}

func errorMessage(err error) outboundMessage {
	_, code := classify(err)
	return outboundMessage{Type: msgError, Payload: errorPayload{Code: code, Message: err.Error()}}
}
