package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vkuzmin/chatrelay/internal/app"
	"github.com/vkuzmin/chatrelay/internal/core"
	"github.com/vkuzmin/chatrelay/internal/domain"
	"github.com/vkuzmin/chatrelay/internal/store"
)

// API is the conventional request/response surface around the relay: chat
// and message CRUD against the document store, uploads against the file
// store. Posting a message pushes it through the same fan-out the socket
// path uses.
type API struct {
	Chats    store.ChatStore
	Identity store.IdentityProvider
	Files    store.FileStore
	Relay    *app.Relay
}

func currentUser(c *gin.Context) domain.User {
	return c.MustGet("user").(domain.User)
}

type createChatRequest struct {
	Name    string        `json:"name"`
	IsGroup bool          `json:"isGroupChat"`
	Users   []domain.User `json:"users" binding:"required,min=1"`
}

func (a *API) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat payload"})
		return
	}
	me := currentUser(c)
	users := req.Users
	found := false
	for _, u := range users {
		if u.ID == me.ID {
			found = true
			break
		}
	}
	if !found {
		users = append(users, me)
	}

	chat := &store.Chat{Name: req.Name, IsGroup: req.IsGroup, Users: users}
	if err := a.Chats.CreateChat(c.Request.Context(), chat); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create chat")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
		return
	}
	c.JSON(http.StatusCreated, chat)
}

func (a *API) ListChats(c *gin.Context) {
	me := currentUser(c)
	chats, err := a.Chats.ChatsForUser(c.Request.Context(), me.ID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list chats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
		return
	}
	c.JSON(http.StatusOK, chats)
}

// memberOf reports whether user belongs to chat.
func memberOf(chat *store.Chat, user domain.UserID) bool {
	for _, u := range chat.Users {
		if u.ID == user {
			return true
		}
	}
	return false
}

func (a *API) ListMessages(c *gin.Context) {
	me := currentUser(c)
	chat, err := a.Chats.FindChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if !memberOf(chat, me.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	msgs, err := a.Chats.MessagesForChat(c.Request.Context(), chat.ID, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// messageEvent mirrors the socket path's message envelope so clients handle
// both origins identically.
type messageEvent struct {
	ID        string      `json:"_id"`
	Chat      *store.Chat `json:"chat"`
	Sender    domain.User `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (a *API) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message payload"})
		return
	}
	me := currentUser(c)
	chat, err := a.Chats.FindChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if !memberOf(chat, me.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msg := &store.Message{ChatID: chat.ID, Sender: me, Content: req.Content}
	if err := a.Chats.AppendMessage(c.Request.Context(), msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("append message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store failure"})
		return
	}

	event := messageEvent{
		ID:        msg.ID,
		Chat:      chat,
		Sender:    me,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	frame, err := core.MarshalFrame("message received", event)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("frame message received")
	} else {
		for _, u := range chat.Users {
			if u.ID == me.ID {
				continue
			}
			a.Relay.DeliverToIdentity(u.ID, frame)
		}
	}

	c.JSON(http.StatusCreated, msg)
}

func (a *API) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	url, err := a.Files.Save(c.Request.Context(), fh.Filename, data)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("save upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failure"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (a *API) ListCalls(c *gin.Context) {
	if a.Relay.Calls == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, a.Relay.Calls.Snapshot())
}

func (a *API) RegistryStats(c *gin.Context) {
	c.JSON(http.StatusOK, a.Relay.Registry.Snapshot())
}
