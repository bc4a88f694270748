package api

import (
	"net/http"
	"strconv"
	"time"

	"MeetChat/middleware"
	chatmodel "MeetChat/module/chat/model"
	chatsvc "MeetChat/module/chat/service"
	usersvc "MeetChat/module/user/service"
	"MeetChat/tools/errs"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
)

// Handler is the REST surface for non-websocket clients. Every route is a
// thin wrapper over the chat engine; the engine owns all invariants.
// onMarkRead pushes the zeroed counter to the user's live sessions so a REST
// mark-all-read reaches connected devices too; nil means no push.
type Handler struct {
	chat       *chatsvc.Service
	users      *usersvc.Service
	onMarkRead func(userID string)
}

func New(chat *chatsvc.Service, users *usersvc.Service, onMarkRead func(userID string)) *Handler {
	return &Handler{chat: chat, users: users, onMarkRead: onMarkRead}
}

// Register mounts the routes on an authenticated group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/contacts", h.Contacts)
	g.GET("/messages/:otherID", h.Messages)
	g.POST("/rooms/mark-all-read", h.MarkAllRead)
	g.POST("/send", h.Send)
	g.GET("/notifications/unread", h.Unread)
}

// httpStatus maps the error taxonomy onto response codes.
func httpStatus(err error) int {
	switch {
	case pkgerrors.Is(err, errs.ErrProtocol):
		return http.StatusBadRequest
	case pkgerrors.Is(err, errs.ErrUserNotFound):
		return http.StatusNotFound
	case pkgerrors.Is(err, errs.ErrFatalAuth):
		return http.StatusUnauthorized
	case pkgerrors.Is(err, errs.ErrConsistency):
		return http.StatusConflict
	case pkgerrors.Is(err, errs.ErrTransientInfra):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	code, msg := errs.ErrInternal.Code, errs.ErrInternal.Msg
	var ce *errs.CodeError
	if pkgerrors.As(err, &ce) {
		code, msg = ce.Code, ce.Msg
	}
	c.JSON(httpStatus(err), gin.H{"code": code, "message": msg})
}

type contactView struct {
	UserID        string    `json:"user_id"`
	FullName      string    `json:"full_name"`
	AvatarURL     *string   `json:"avatar_url"`
	Online        bool      `json:"online"`
	Unread        int64     `json:"unread"`
	LastMessageID int64     `json:"last_message_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Contacts lists the caller's conversation summaries, most recent first.
func (h *Handler) Contacts(c *gin.Context) {
	uid := middleware.UserID(c)
	contacts, err := h.chat.ContactsOf(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]contactView, 0, len(contacts))
	for _, ct := range contacts {
		other := ct.OtherSide(uid)
		view := contactView{
			UserID:        other,
			Unread:        ct.UnreadFor(uid),
			LastMessageID: ct.LastMessageID,
			UpdatedAt:     ct.UpdatedAt,
			Online:        h.users.IsOnline(c.Request.Context(), other),
		}
		if u, err := h.users.Resolve(c.Request.Context(), other); err == nil {
			view.FullName = u.FullName
			view.AvatarURL = u.AvatarURL
		}
		out = append(out, view)
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

type messageView struct {
	ID       int64  `json:"id"`
	Content  string `json:"content"`
	IsRead   bool   `json:"isRead"`
	IsSent   bool   `json:"isSent"`
	SentDate string `json:"sentDate"`
}

func toMessageView(m *chatmodel.Message, viewer string) messageView {
	return messageView{
		ID:       m.ID,
		Content:  m.Content,
		IsRead:   m.IsRead,
		IsSent:   m.SenderID == viewer,
		SentDate: m.Timestamp.Format(time.RFC3339),
	}
}

// Messages returns the 1:1 history with another user, newest first.
func (h *Handler) Messages(c *gin.Context) {
	uid := middleware.UserID(c)
	otherID := c.Param("otherID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.chat.MessagesBetween(c.Request.Context(), uid, otherID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageView(m, uid))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// MarkAllRead resets the caller's unread state across every conversation.
func (h *Handler) MarkAllRead(c *gin.Context) {
	uid := middleware.UserID(c)
	if err := h.chat.MarkAllRead(c.Request.Context(), uid); err != nil {
		fail(c, err)
		return
	}
	if h.onMarkRead != nil {
		h.onMarkRead(uid)
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": 0})
}

type sendReq struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	Message     string `json:"message" binding:"required"`
}

// Send commits a message outside a websocket session. Post-commit fanout runs
// the same way as for socket sends, so connected recipients still get pushes.
func (h *Handler) Send(c *gin.Context) {
	uid := middleware.UserID(c)
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrProtocol.WrapMsg(err.Error()))
		return
	}
	m, err := h.chat.RecordMessage(c.Request.Context(), uid, req.RecipientID, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": toMessageView(m, uid)})
}

// Unread reports the caller's total unread counter (cache-first).
func (h *Handler) Unread(c *gin.Context) {
	uid := middleware.UserID(c)
	n, err := h.chat.UnreadCount(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}
