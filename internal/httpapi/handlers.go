package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kshitizb/talk/internal/chat"
)

// snapshotWait bounds how long a one-shot list waits for the stream's
// initial snapshot.
const snapshotWait = 5 * time.Second

// Healthz reports liveness and the state machine's current state.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": h.machine.Current()})
}

// Status reports the daemon state machine's current state.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.machine.Current()})
}

// Me reports the local user's identity.
func (h *Handler) Me(c *gin.Context) {
	self, err := h.ident.Current(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": self.UID, "email": self.Email, "name": self.DisplayName})
}

// ListUsers returns the whole directory sequence.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.directory.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SearchUsers runs a name-prefix search with ?q=, excluding the local user.
func (h *Handler) SearchUsers(c *gin.Context) {
	ctx := c.Request.Context()
	self, err := h.ident.Current(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity unavailable"})
		return
	}
	users, err := h.directory.Search(ctx, c.Query("q"), self.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UserExists reports whether a profile record exists for the uid.
func (h *Handler) UserExists(c *gin.Context) {
	exists, err := h.directory.UserExists(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

// InsertUser registers a user profile and appends it to the directory.
func (h *Handler) InsertUser(c *gin.Context) {
	var req struct {
		UID       string `json:"uid" binding:"required"`
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Email     string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := chat.NewUserRecord(req.UID, req.FirstName, req.LastName, req.Email)
	if err := h.directory.InsertUser(c.Request.Context(), user); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"uid": user.UID})
}

// SetAvatar uploads the local user's profile picture.
func (h *Handler) SetAvatar(c *gin.Context) {
	var req struct {
		Data []byte `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	url, err := h.engine.SetProfilePicture(c.Request.Context(), req.Data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// AvatarURL resolves a user's profile picture URL.
func (h *Handler) AvatarURL(c *gin.Context) {
	url, err := h.engine.ProfilePictureURL(c.Request.Context(), c.Param("uid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ListConversations returns the current registry snapshot.
func (h *Handler) ListConversations(c *gin.Context) {
	stream, err := h.engine.ListConversations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	defer stream.Cancel()

	select {
	case summaries := <-stream.C:
		if summaries == nil {
			summaries = []chat.ConversationSummary{}
		}
		c.JSON(http.StatusOK, gin.H{"conversations": summaries})
	case <-time.After(snapshotWait):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "snapshot timed out"})
	}
}

// sendRequest carries one outgoing message of any kind. Photo and video
// sends put base64 bytes in data; location sends use the coordinates.
type sendRequest struct {
	CounterpartyUID   string  `json:"counterparty_uid" binding:"required"`
	CounterpartyEmail string  `json:"counterparty_email"`
	CounterpartyName  string  `json:"counterparty_name"`
	Kind              string  `json:"kind" binding:"required"`
	Content           string  `json:"content"`
	Data              []byte  `json:"data"`
	Longitude         float64 `json:"longitude"`
	Latitude          float64 `json:"latitude"`
}

func (r *sendRequest) counterparty() chat.DirectoryEntry {
	return chat.DirectoryEntry{UID: r.CounterpartyUID, Name: r.CounterpartyName, Email: r.CounterpartyEmail}
}

// CreateConversation starts (or resumes) a conversation carrying the
// first message.
func (h *Handler) CreateConversation(c *gin.Context) {
	h.send(c, "")
}

// SendMessage appends a message to an existing conversation.
func (h *Handler) SendMessage(c *gin.Context) {
	h.send(c, c.Param("id"))
}

func (h *Handler) send(c *gin.Context, conversationID string) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind, ok := chat.NormalizeKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message kind"})
		return
	}

	ctx := c.Request.Context()
	counterparty := req.counterparty()

	var (
		id  string
		msg chat.Message
		err error
	)
	switch kind {
	case chat.KindText:
		id, msg, err = h.engine.SendText(ctx, conversationID, counterparty, req.Content)
	case chat.KindPhoto:
		id, msg, err = h.engine.SendPhoto(ctx, conversationID, counterparty, req.Data)
	case chat.KindVideo:
		id, msg, err = h.engine.SendVideo(ctx, conversationID, counterparty, req.Data)
	case chat.KindLocation:
		id, msg, err = h.engine.SendLocation(ctx, conversationID, counterparty, req.Longitude, req.Latitude)
	}
	if err != nil {
		h.logger.Warn("send failed",
			zap.String("conversation_id", conversationID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation_id": id, "message": msg})
}

// ConversationExists probes for a conversation with ?uid=.
func (h *Handler) ConversationExists(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}

	id, err := h.engine.ConversationExists(c.Request.Context(), uid)
	if errors.Is(err, chat.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true, "conversation_id": id})
}

// DeleteConversation removes the conversation from the local user's
// registry only.
func (h *Handler) DeleteConversation(c *gin.Context) {
	if err := h.engine.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns the current message log snapshot.
func (h *Handler) ListMessages(c *gin.Context) {
	stream, err := h.engine.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer stream.Cancel()

	select {
	case messages := <-stream.C:
		if messages == nil {
			messages = []chat.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	case <-time.After(snapshotWait):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "snapshot timed out"})
	}
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrUploadFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrDownloadURLUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrFetchFailed), errors.Is(err, chat.ErrWriteFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
