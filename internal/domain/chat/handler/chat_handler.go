package handler

import (
	"net/http"

	"campusfind/internal/domain/chat/service"
	"campusfind/internal/pkg/middleware"
	"campusfind/pkg/response"
	"campusfind/pkg/security"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service service.ChatService
}

func NewChatHandler(s service.ChatService) *ChatHandler {
	return &ChatHandler{service: s}
}

// MessageInput 发送消息输入
type MessageInput struct {
	Text string `json:"text" binding:"required,max=2000"`
}

func participant(c *gin.Context) service.Participant {
	return service.Participant{ID: middleware.CurrentUserID(c), Name: middleware.CurrentUserName(c)}
}

// Open 与帖主的会话
// @Summary 打开（或创建）与帖主的私信会话
// @Tags Chat
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.Chat}
// @Router /posts/{id}/chat [post]
func (h *ChatHandler) Open(c *gin.Context) {
	chat, err := h.service.OpenChatWithOwner(c.Request.Context(), c.Param("id"), participant(c))
	if err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}
	response.Success(c, chat)
}

// List 我的会话
// @Summary 会话列表（最近消息在前）
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Chat}
// @Router /chats [get]
func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.service.ListChatsForUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err, response.ErrChatNotFound)
		return
	}
	response.Success(c, chats)
}

// Get 会话详情
// @Summary 会话与消息
// @Tags Chat
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} response.Response{data=model.Chat}
// @Router /chats/{id} [get]
func (h *ChatHandler) Get(c *gin.Context) {
	chat, err := h.service.GetChat(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err, response.ErrChatNotFound)
		return
	}
	response.Success(c, chat)
}

// Send 发送消息
// @Summary 发送私信
// @Tags Chat
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param input body MessageInput true "消息"
// @Success 201 {object} response.Response{data=model.Message}
// @Router /chats/{id}/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), c.Param("id"), participant(c), input.Text)
	if err != nil {
		response.FromError(c, err, response.ErrChatNotFound)
		return
	}
	response.Created(c, msg)
}
