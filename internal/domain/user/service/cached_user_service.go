package service

import (
	"context"
	"fmt"
	"time"

	"campusfind/internal/domain/user/model"
	"campusfind/pkg/cache"

	"go.uber.org/zap"
)

// CachedUserService 带缓存的用户服务。
// 审核中间件每个请求都会读取用户，缓存单个用户；状态或资料变更后立即失效。
type CachedUserService struct {
	UserService
	cache cache.CacheService
	log   *zap.Logger
}

// NewCachedUserService 创建带缓存的用户服务
func NewCachedUserService(inner UserService, c cache.CacheService, log *zap.Logger) UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedUserService{UserService: inner, cache: c, log: log}
}

// 缓存键常量
const (
	UserCacheKeyPrefix = "user:"
	UserCacheTTL       = time.Minute * 10
)

// getUserCacheKey 获取用户缓存键
func (s *CachedUserService) getUserCacheKey(id string) string {
	return fmt.Sprintf("%s%s", UserCacheKeyPrefix, id)
}

// invalidateUserCache 清除用户缓存，失败只记录日志
func (s *CachedUserService) invalidateUserCache(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, s.getUserCacheKey(userID)); err != nil {
		s.log.Warn("failed to invalidate user cache", zap.String("user_id", userID), zap.Error(err))
	}
}

// GetUser 获取单个用户（带缓存）
func (s *CachedUserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	cacheKey := s.getUserCacheKey(id)

	var user model.User
	if err := s.cache.Get(ctx, cacheKey, &user); err == nil {
		return &user, nil
	}

	// 缓存未命中
	u, err := s.UserService.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, u, UserCacheTTL); err != nil {
		s.log.Warn("failed to cache user", zap.String("user_id", id), zap.Error(err))
	}
	return u, nil
}

// Approval 读取走缓存
func (s *CachedUserService) Approval(ctx context.Context, id string) (string, bool, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return "", false, err
	}
	return user.FullName, user.IsApproved(), nil
}

// SetVerificationStatus 更新状态（带缓存失效）
func (s *CachedUserService) SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (*model.User, error) {
	user, err := s.UserService.SetVerificationStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.invalidateUserCache(ctx, id)
	return user, nil
}

// UpdateProfile 更新资料（带缓存失效）
func (s *CachedUserService) UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error) {
	user, err := s.UserService.UpdateProfile(ctx, id, fullName, usn)
	if err != nil {
		return nil, err
	}
	s.invalidateUserCache(ctx, id)
	return user, nil
}
