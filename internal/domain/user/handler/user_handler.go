package handler

import (
	"errors"
	"net/http"
	"time"

	"campusfind/internal/domain/user/model"
	"campusfind/internal/domain/user/repository"
	"campusfind/internal/domain/user/service"
	"campusfind/internal/pkg/middleware"
	"campusfind/pkg/response"
	"campusfind/pkg/security"
	"campusfind/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// SignupInput 注册输入
type SignupInput struct {
	FullName       string `json:"fullName" binding:"required,min=3,max=100"`
	USN            string `json:"usn" binding:"required,usn"`
	IDCardImageURL string `json:"idCardImageURL" binding:"required,imageref"`
}

// LoginInput 登录输入
type LoginInput struct {
	FullName string `json:"fullName" binding:"required"`
	USN      string `json:"usn" binding:"required"`
}

// AdminLoginInput 管理员登录输入
type AdminLoginInput struct {
	Key string `json:"key" binding:"required"`
}

// ProfileInput 修改资料输入
type ProfileInput struct {
	FullName string `json:"fullName" binding:"required,min=3,max=100"`
	USN      string `json:"usn" binding:"required,usn"`
}

// StatusInput 审核输入
type StatusInput struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// AuthResult 登录结果
type AuthResult struct {
	User      *model.User `json:"user,omitempty"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	Existing  bool        `json:"isExistingUser"`
	Message   string      `json:"message"`
}

// Signup 注册
// @Summary 注册（USN 已存在时返回已有账号，不签发 token）
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body SignupInput true "注册信息"
// @Success 201 {object} response.Response{data=AuthResult}
// @Router /auth/signup [post]
func (h *UserHandler) Signup(c *gin.Context) {
	var input SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	user, existing, err := h.service.Signup(c.Request.Context(), input.FullName, input.USN, input.IDCardImageURL)
	if err != nil {
		response.FromError(c, err, response.ErrUserNotFound)
		return
	}

	if existing {
		response.Success(c, AuthResult{
			User:     user,
			Existing: true,
			Message:  "An account with this USN already exists. Please log in.",
		})
		return
	}

	token, expireAt, err := utils.GenerateToken(user.ID, utils.RoleUser)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "failed to issue token")
		return
	}
	response.Created(c, AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: expireAt,
		Message:   "Signup successful! Your account is pending approval.",
	})
}

// Login 登录
// @Summary 姓名 + USN 登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body LoginInput true "登录信息"
// @Success 200 {object} response.Response{data=AuthResult}
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Both fields are required.")
		return
	}

	user, err := h.service.Login(c.Request.Context(), input.FullName, input.USN)
	if err != nil {
		response.FromError(c, err, response.ErrAuthFailed)
		return
	}

	token, expireAt, err := utils.GenerateToken(user.ID, utils.RoleUser)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "failed to issue token")
		return
	}
	response.Success(c, AuthResult{User: user, Token: token, ExpiresAt: expireAt, Message: "Login successful!"})
}

// AdminLogin 管理员口令登录
// @Summary 管理员登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param input body AdminLoginInput true "管理员口令"
// @Success 200 {object} response.Response{data=AuthResult}
// @Router /auth/admin [post]
func (h *UserHandler) AdminLogin(c *gin.Context) {
	var input AdminLoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	token, expireAt, err := h.service.AdminLogin(input.Key)
	if err != nil {
		response.FromError(c, err, response.ErrAuthFailed)
		return
	}
	response.Success(c, AuthResult{Token: token, ExpiresAt: expireAt, Message: "Admin login successful!"})
}

// Me 当前用户
// @Summary 当前用户资料
// @Tags User
// @Produce json
// @Success 200 {object} response.Response{data=model.User}
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err, response.ErrUserNotFound)
		return
	}
	response.Success(c, user)
}

// UpdateProfile 修改资料
// @Summary 修改姓名与 USN
// @Tags User
// @Accept json
// @Produce json
// @Param input body ProfileInput true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 409 {object} response.Response
// @Router /me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), input.FullName, input.USN)
	if errors.Is(err, repository.ErrUSNTaken) {
		response.Error(c, http.StatusConflict, response.ErrUSNTaken, "USN is already registered")
		return
	}
	if err != nil {
		response.FromError(c, err, response.ErrUserNotFound)
		return
	}
	response.Success(c, user)
}

// ListUsers 审核列表 (管理员)
// @Summary 按状态列出用户
// @Tags Admin
// @Produce json
// @Param status query string false "pending|approved|rejected"
// @Success 200 {object} response.Response{data=[]model.User}
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), model.VerificationStatus(c.Query("status")))
	if err != nil {
		response.FromError(c, err, response.ErrUserNotFound)
		return
	}
	response.Success(c, users)
}

// SetStatus 审核用户 (管理员)
// @Summary 通过或拒绝用户
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "用户ID"
// @Param input body StatusInput true "审核状态"
// @Success 200 {object} response.Response{data=model.User}
// @Router /admin/users/{id}/status [put]
func (h *UserHandler) SetStatus(c *gin.Context) {
	var input StatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, security.Describe(err))
		return
	}

	user, err := h.service.SetVerificationStatus(c.Request.Context(), c.Param("id"), model.VerificationStatus(input.Status))
	if err != nil {
		response.FromError(c, err, response.ErrUserNotFound)
		return
	}
	response.Success(c, user)
}

// VerifyID 模型辅助核验 (管理员)
// @Summary ID 卡辅助核验
// @Tags Admin
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /admin/users/{id}/verify-id [post]
func (h *UserHandler) VerifyID(c *gin.Context) {
	result, err := h.service.VerifyIDCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, response.ErrUserNotFound)
		return
	}
	response.Success(c, gin.H{"verificationResult": result})
}
