package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-funnel-service/internal/app"
	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/validation"
	"github.com/gorilla/websocket"
)

// WSHandler drives one quiz Controller per websocket connection.
type WSHandler struct {
	runtime  *app.Runtime
	logger   logging.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(runtime *app.Runtime, logger logging.Logger) *WSHandler {
	return &WSHandler{
		runtime: runtime,
		logger:  logger,
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
	StepID string `json:"step_id"`
	Option string `json:"option"`
}

type submitPayload struct {
	StepID string `json:"step_id"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  validation.Errors `json:"fields,omitempty"`
}

type leadAccepted struct {
	LeadID   string `json:"lead_id"`
	PersonID string `json:"person_id"`
}

// ServeWS upgrades the request and hands the connection a fresh quiz runtime for the
// slug query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		http.Error(w, "missing slug", http.StatusBadRequest)
		return
	}
	controller, err := h.runtime.Open(r.Context(), slug)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer controller.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("visitor_id", controller.ID(), "slug", slug)
	updates, cancel := controller.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: state}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	sendErr := func(err error) {
		payload := errorPayload{Message: err.Error()}
		var ve validation.Errors
		if errors.As(err, &ve) {
			payload.Fields = ve
		}
		select {
		case send <- outboundMessage[any]{Type: "error", Payload: payload}:
		case <-writerDone:
		}
	}

	if err := controller.Initialize(r.Context()); err != nil {
		sendErr(initFailure(controller, err))
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.runtime.Touch(r.Context(), controller)
		reply, err := h.dispatch(r, controller, inbound)
		if err != nil {
			sendErr(err)
			continue
		}
		if reply != nil {
			select {
			case send <- *reply:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch applies one inbound message. State changes reach the client through the
// subscription; only lead acceptance produces a direct reply.
func (h *WSHandler) dispatch(r *http.Request, c *app.Controller, in inboundMessage) (*outboundMessage[any], error) {
	switch in.Type {
	case "select":
		var p selectPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, errors.New("invalid select payload")
		}
		return nil, c.SelectOption(p.StepID, p.Option)
	case "submit":
		var p submitPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, errors.New("invalid submit payload")
		}
		return nil, c.SubmitAnswer(p.StepID)
	case "next":
		return nil, c.Advance()
	case "back":
		return nil, c.Retreat()
	case "retry":
		if err := c.Initialize(r.Context()); err != nil {
			return nil, initFailure(c, err)
		}
		return nil, nil
	case "lead":
		var form validation.LeadForm
		if err := json.Unmarshal(in.Payload, &form); err != nil {
			return nil, errors.New("invalid lead payload")
		}
		receipt, err := c.SubmitLead(r.Context(), form)
		if err != nil {
			return nil, leadFailure(c, err)
		}
		return &outboundMessage[any]{Type: "lead", Payload: leadAccepted{LeadID: receipt.LeadID, PersonID: receipt.PersonID}}, nil
	default:
		return nil, errors.New("unsupported message type")
	}
}

// leadFailure hides backend details behind the visitor-facing lead error.
func leadFailure(c *app.Controller, err error) error {
	var ve validation.Errors
	switch {
	case errors.As(err, &ve):
		return ve
	case errors.Is(err, domain.ErrLeadAlreadySubmitted),
		errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrControllerClosed):
		return err
	}
	if msg := c.Snapshot().LeadError; msg != "" {
		return errors.New(msg)
	}
	return err
}

func initFailure(c *app.Controller, err error) error {
	if errors.Is(err, domain.ErrControllerClosed) {
		return err
	}
	if msg := c.Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}
