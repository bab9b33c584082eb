package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/chat"
	"github.com/kshitizb/talk/internal/observability"
)

var upgrader = websocket.Upgrader{
	// Local control surface; the daemon binds loopback only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventBuffer is the bus subscription buffer for the events stream.
const eventBuffer = 64

// WatchConversations streams registry snapshots over a websocket. Every
// store change delivers the full summary collection.
func (h *Handler) WatchConversations(c *gin.Context) {
	stream, err := h.engine.ListConversations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		stream.Cancel()
		return
	}

	observability.IncStream("conversations")
	go func() {
		defer observability.DecStream("conversations")
		defer stream.Cancel()
		defer conn.Close()
		go discardReads(conn, stream.Cancel)

		for summaries := range stream.C {
			if summaries == nil {
				summaries = []chat.ConversationSummary{}
			}
			if err := conn.WriteJSON(gin.H{"conversations": summaries}); err != nil {
				h.logger.Info("conversation watch closed", zap.Error(err))
				return
			}
		}
	}()
}

// WatchMessages streams message log snapshots for one conversation.
func (h *Handler) WatchMessages(c *gin.Context) {
	stream, err := h.engine.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		stream.Cancel()
		return
	}

	observability.IncStream("messages")
	go func() {
		defer observability.DecStream("messages")
		defer stream.Cancel()
		defer conn.Close()
		go discardReads(conn, stream.Cancel)

		for messages := range stream.C {
			if messages == nil {
				messages = []chat.Message{}
			}
			if err := conn.WriteJSON(gin.H{"messages": messages}); err != nil {
				h.logger.Info("message watch closed", zap.Error(err))
				return
			}
		}
	}()
}

// WatchEvents streams bus event envelopes. Each envelope carries a fresh
// uuid so clients can dedupe across reconnects.
func (h *Handler) WatchEvents(c *gin.Context) {
	events, unsub := h.events.Subscribe("", eventBuffer)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		unsub()
		return
	}

	observability.IncStream("events")
	go func() {
		defer observability.DecStream("events")
		defer unsub()
		defer conn.Close()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case evt := <-events:
				envelope := gin.H{
					"id":        uuid.New().String(),
					"kind":      evt.Kind,
					"timestamp": evt.Timestamp,
					"payload":   evt.Payload,
				}
				if err := conn.WriteJSON(envelope); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}()
}

// discardReads drains the client side of the socket so close frames are
// processed; a read error means the peer went away.
func discardReads(conn *websocket.Conn, cancel func()) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			return
		}
	}
}
