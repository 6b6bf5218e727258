package handler

import (
	"net/http"

	"campusfind/internal/domain/notification/service"
	"campusfind/internal/pkg/middleware"
	"campusfind/pkg/response"
	"campusfind/pkg/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service service.NotificationService
}

func NewNotificationHandler(s service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: s}
}

// List 当前用户的通知
// @Summary 通知列表（最新在前）
// @Tags Notification
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	list, err := h.service.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err, response.ErrNotificationNotFound)
		return
	}

	page := utils.Paginate(list, p)
	response.Success(c, utils.PageResult{List: page, Total: int64(len(list)), Page: p.Page, Limit: p.Limit})
}

// UnreadCount 未读数量
// @Summary 未读通知数
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Response
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err, response.ErrNotificationNotFound)
		return
	}
	response.Success(c, gin.H{"unread": n})
}

// MarkRead 标记单条已读
// @Summary 标记已读
// @Tags Notification
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.FromError(c, err, response.ErrNotificationNotFound)
		return
	}
	response.Success(c, nil)
}

// MarkAllRead 全部标记已读
// @Summary 全部已读
// @Tags Notification
// @Success 200 {object} response.Response
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.service.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err, response.ErrNotificationNotFound)
		return
	}
	response.Success(c, gin.H{"updated": n})
}
