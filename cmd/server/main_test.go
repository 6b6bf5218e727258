package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusfind/internal/pkg/config"
	"campusfind/internal/pkg/middleware"
	"campusfind/internal/pkg/registry"
	"campusfind/pkg/cache"
	"campusfind/pkg/memdb"
	"campusfind/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, security.RegisterRules("4VM"))

	cfg := config.Config{
		Store:     config.StoreConfig{Driver: config.DriverMemory},
		JWT:       config.JWTConfig{Secret: "test-secret-key-with-at-least-32-chars", Expire: 1},
		App:       config.AppConfig{Env: "test", AdminKey: "298761", USNPrefix: "4VM", PostTTLDays: 30},
		RateLimit: config.RateLimitConfig{QPS: 1000, Burst: 1000},
	}
	config.GlobalConfig = cfg

	c, err := cache.NewMemoryCache(100)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware())
	ctx := &registry.ModuleContext{
		Config: &cfg,
		Driver: config.DriverMemory,
		Memory: memdb.New(),
		Cache:  c,
		Router: r,
	}
	require.NoError(t, registry.InitModules(ctx))
	t.Cleanup(ctx.Shutdown)

	return &testServer{t: t, router: r}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type authResult struct {
	User struct {
		ID                 string `json:"userId"`
		VerificationStatus string `json:"verificationStatus"`
	} `json:"user"`
	Token    string `json:"token"`
	Existing bool   `json:"isExistingUser"`
}

func (s *testServer) signup(name, usn string) authResult {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/auth/signup", "", gin.H{
		"fullName": name, "usn": usn, "idCardImageURL": "https://img.example.com/id.png",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	return decode[authResult](s.t, env)
}

func (s *testServer) setStatus(adminToken, userID, status string) {
	s.t.Helper()
	code, env := s.do(http.MethodPut, "/admin/users/"+userID+"/status", adminToken, gin.H{"status": status})
	require.Equal(s.t, http.StatusOK, code, env.Message)
}

func TestServer_LostAndFoundFlow(t *testing.T) {
	s := newTestServer(t)

	// 注册与幂等
	jane := s.signup("Jane Doe", "4VM21CS001")
	assert.Equal(t, "pending", jane.User.VerificationStatus)
	assert.NotEmpty(t, jane.Token)

	code, env := s.do(http.MethodPost, "/auth/signup", "", gin.H{
		"fullName": "Jane Doe", "usn": "4vm21cs001", "idCardImageURL": "https://img.example.com/id.png",
	})
	require.Equal(t, http.StatusOK, code)
	again := decode[authResult](t, env)
	assert.True(t, again.Existing)
	assert.Equal(t, jane.User.ID, again.User.ID)
	assert.Empty(t, again.Token)

	// 待审核用户不能访问帖子
	code, env = s.do(http.MethodGet, "/posts", jane.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, "/auth/admin", "", gin.H{"key": "298761"})
	require.Equal(t, http.StatusOK, code)
	admin := decode[authResult](t, env)

	john := s.signup("John Roe", "4VM21CS002")
	s.setStatus(admin.Token, jane.User.ID, "approved")
	s.setStatus(admin.Token, john.User.ID, "approved")
	s.setStatus(admin.Token, jane.User.ID, "approved")

	// 发帖与回复
	code, env = s.do(http.MethodPost, "/posts", jane.Token, gin.H{
		"postType": "lost", "title": "Lost Wallet", "description": "Brown leather",
		"location": "Library", "date": "2024-04-30T18:00:00Z",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	post := decode[struct {
		ID         string `json:"postId"`
		ReplyCount int    `json:"replyCount"`
	}](t, env)

	code, env = s.do(http.MethodPost, "/posts/"+post.ID+"/replies", john.Token, gin.H{"message": "Found it!"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(http.MethodPost, "/posts/"+post.ID+"/replies", john.Token, gin.H{"message": "x", "parentReplyId": "ghost"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodGet, "/posts/"+post.ID+"?tree=true", jane.Token, nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[struct {
		Post struct {
			ReplyCount int `json:"replyCount"`
		} `json:"post"`
		Replies []json.RawMessage `json:"replies"`
	}](t, env)
	assert.Equal(t, 1, detail.Post.ReplyCount)
	assert.Len(t, detail.Replies, 1)

	// 私信
	code, env = s.do(http.MethodPost, "/posts/"+post.ID+"/chat", john.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	chat := decode[struct {
		ID string `json:"chatId"`
	}](t, env)

	code, env = s.do(http.MethodPost, "/chats/"+chat.ID+"/messages", john.Token, gin.H{"text": "hi"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(http.MethodGet, "/chats", jane.Token, nil)
	require.Equal(t, http.StatusOK, code)
	chats := decode[[]struct {
		ID       string `json:"chatId"`
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}](t, env)
	require.Len(t, chats, 1)
	require.Len(t, chats[0].Messages, 1)
	assert.Equal(t, "hi", chats[0].Messages[0].Text)

	// approval（仅一次）+ reply + message
	code, env = s.do(http.MethodGet, "/notifications", jane.Token, nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[struct {
		List []struct {
			Type string `json:"type"`
		} `json:"list"`
		Total int `json:"total"`
	}](t, env)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, "message", page.List[0].Type, "newest first")

	code, env = s.do(http.MethodPut, "/notifications/read-all", jane.Token, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = s.do(http.MethodGet, "/notifications/unread-count", jane.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unread":0}`, string(env.Data))

	// 拒绝后下一次请求即失效
	s.setStatus(admin.Token, john.User.ID, "rejected")
	code, _ = s.do(http.MethodGet, "/posts", john.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// 管理员删除帖子，级联删除会话
	code, env = s.do(http.MethodDelete, "/posts/"+post.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	code, _ = s.do(http.MethodGet, "/posts/"+post.ID, jane.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, "/chats/"+chat.ID, jane.Token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_LoginFailureIsGeneric(t *testing.T) {
	s := newTestServer(t)
	s.signup("Jane Doe", "4VM21CS001")

	code, env := s.do(http.MethodPost, "/auth/login", "", gin.H{"fullName": "jane  doe", "usn": "4vm21cs001"})
	assert.Equal(t, http.StatusOK, code)

	code, wrongName := s.do(http.MethodPost, "/auth/login", "", gin.H{"fullName": "Janet", "usn": "4VM21CS001"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, unknown := s.do(http.MethodPost, "/auth/login", "", gin.H{"fullName": "Jane Doe", "usn": "4VM99XX999"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, wrongName.Message, unknown.Message)
	assert.NotEmpty(t, env.Data)
}

func TestServer_SignupValidation(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(http.MethodPost, "/auth/signup", "", gin.H{
		"fullName": "Jo", "usn": "1XY001", "idCardImageURL": "not a url",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, env.Message)
}
