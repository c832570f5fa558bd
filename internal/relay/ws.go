package relay

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Sean0418/Twilio-Alpha-Insurance-Agent/internal/conversation"
)

// inboundMessage is the ConversationRelay event envelope. Twilio sends one
// JSON text frame per event on the call's connection.
type inboundMessage struct {
	Type                    string `json:"type"`
	CallSid                 string `json:"callSid,omitempty"`
	VoicePrompt             string `json:"voicePrompt,omitempty"`
	UtteranceUntilInterrupt string `json:"utteranceUntilInterrupt,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Twilio connects from its media infrastructure, not a browser origin.
		return true
	},
}

// Handler bridges one ConversationRelay WebSocket connection per live call
// to the conversation controller.
type Handler struct {
	controller *conversation.Controller
}

// NewHandler returns a relay handler over the given controller.
func NewHandler(c *conversation.Controller) *Handler {
	return &Handler{controller: c}
}

// ServeRelay upgrades the request and processes the call's events in
// arrival order until the socket closes. The connection learns its CallSid
// from the setup event; the session is torn down when the loop exits.
func (h *Handler) ServeRelay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("relay: ws upgrade error: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var callSid string
	defer func() {
		if callSid != "" {
			h.controller.HandleClose(callSid)
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("relay: ws read error: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("relay: bad frame: %v", err)
			continue
		}

		switch msg.Type {
		case "setup":
			callSid = msg.CallSid
			log.Printf("relay: setup for call %s", callSid)
			h.controller.HandleSetup(callSid)

		case "prompt":
			out, ok := h.controller.HandlePrompt(r.Context(), callSid, msg.VoicePrompt)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(out); err != nil {
				log.Printf("relay: send failed for call %s: %v", callSid, err)
				return
			}

		case "interrupt":
			h.controller.HandleInterrupt(callSid, msg.UtteranceUntilInterrupt)

		default:
			log.Printf("relay: unknown message type %q ignored", msg.Type)
		}
	}
}
