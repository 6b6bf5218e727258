package handler

import (
	"errors"
	"net/http"
	"time"

	"campusfind/internal/domain/post/model"
	"campusfind/internal/domain/post/repository"
	"campusfind/internal/domain/post/service"
	"campusfind/internal/pkg/middleware"
	"campusfind/pkg/response"
	"campusfind/pkg/security"

	"github.com/gin-gonic/gin"
)

// PostHandler 帖子处理器
type PostHandler struct {
	service service.PostService
}

// NewPostHandler 创建处理器
func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

// CreatePostInput 发帖输入
type CreatePostInput struct {
	PostType     string    `json:"postType" binding:"required,oneof=lost found"`
	Title        string    `json:"title" binding:"required,max=200"`
	Description  string    `json:"description" binding:"required"`
	Location     string    `json:"location" binding:"required,max=200"`
	Date         time.Time `json:"date" binding:"required"`
	ItemImageURL string    `json:"itemImageURL" binding:"omitempty,imageref"`
}

// ReplyInput 回复输入
type ReplyInput struct {
	Message       string `json:"message" binding:"required"`
	ParentReplyID string `json:"parentReplyId"`
}

// PostDetail 帖子详情；tree=true 时 Replies 为嵌套结构
type PostDetail struct {
	Post    *model.Post `json:"post"`
	Replies interface{} `json:"replies"`
}

func author(c *gin.Context) service.Author {
	return service.Author{
		ID:      middleware.CurrentUserID(c),
		Name:    middleware.CurrentUserName(c),
		IsAdmin: middleware.IsAdmin(c),
	}
}

// Create 发帖
// @Summary 发布失物/招领帖
// @Tags Post
// @Accept json
// @Produce json
// @Param input body CreatePostInput true "帖子内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), author(c), service.CreatePostInput{
		PostType:     model.PostType(input.PostType),
		Title:        input.Title,
		Description:  input.Description,
		Location:     input.Location,
		Date:         input.Date,
		ItemImageURL: input.ItemImageURL,
	})
	if err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}
	response.Created(c, post)
}

// List 未过期帖子
// @Summary 帖子列表（最新在前）
// @Tags Post
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Post}
// @Router /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.service.ListOpenPosts(c.Request.Context())
	if err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}
	response.Success(c, posts)
}

// Get 帖子详情
// @Summary 帖子与回复
// @Tags Post
// @Produce json
// @Param id path string true "帖子ID"
// @Param tree query bool false "按层级返回回复"
// @Success 200 {object} response.Response{data=PostDetail}
// @Failure 404 {object} response.Response
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	post, replies, err := h.service.GetPostWithReplies(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}

	detail := PostDetail{Post: post, Replies: replies}
	if c.Query("tree") == "true" {
		detail.Replies = model.BuildReplyTree(replies)
	}
	response.Success(c, detail)
}

// Reply 回复
// @Summary 回复帖子（可指定父回复）
// @Tags Post
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param input body ReplyInput true "回复内容"
// @Success 201 {object} response.Response{data=model.Reply}
// @Router /posts/{id}/replies [post]
func (h *PostHandler) Reply(c *gin.Context) {
	var input ReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	reply, err := h.service.AddReply(c.Request.Context(), c.Param("id"), author(c), input.Message, input.ParentReplyID)
	if errors.Is(err, repository.ErrInvalidParent) {
		response.Error(c, http.StatusBadRequest, response.ErrReplyParent, "parent reply does not belong to this post")
		return
	}
	if err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}
	response.Created(c, reply)
}

// Resolve 标记已解决
// @Summary 帖主标记已解决
// @Tags Post
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.Post}
// @Router /posts/{id}/resolve [put]
func (h *PostHandler) Resolve(c *gin.Context) {
	post, err := h.service.ResolvePost(c.Request.Context(), c.Param("id"), author(c))
	if err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}
	response.Success(c, post)
}

// Delete 删除帖子
// @Summary 删除帖子（帖主或管理员）
// @Tags Post
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.service.DeletePost(c.Request.Context(), c.Param("id"), author(c)); err != nil {
		response.FromError(c, err, response.ErrPostNotFound)
		return
	}
	response.Success(c, nil)
}
