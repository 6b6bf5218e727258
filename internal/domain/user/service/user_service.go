package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	notifymodel "campusfind/internal/domain/notification/model"
	notifyservice "campusfind/internal/domain/notification/service"
	"campusfind/internal/domain/user/model"
	"campusfind/internal/domain/user/repository"
	"campusfind/internal/pkg/verifier"
	"campusfind/pkg/errs"
	"campusfind/pkg/metrics"
	basemodel "campusfind/pkg/model"
	"campusfind/pkg/utils"

	"go.uber.org/zap"
)

// UserService 用户服务接口
type UserService interface {
	// Signup USN 已存在时不写入，返回已有用户与 existing=true
	Signup(ctx context.Context, fullName, usn, idCardImageURL string) (user *model.User, existing bool, err error)
	// Login 姓名与 USN 均需匹配（忽略大小写），失败统一返回 ErrInvalidCredentials
	Login(ctx context.Context, fullName, usn string) (*model.User, error)
	// AdminLogin 校验管理员口令并签发管理员 token
	AdminLogin(key string) (string, *time.Time, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, status model.VerificationStatus) ([]model.User, error)
	SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (*model.User, error)
	UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error)
	// VerifyIDCard 调用外部模型核验 ID 卡，结果仅供管理员参考
	VerifyIDCard(ctx context.Context, id string) (string, error)
	// Approval 返回显示名与是否审核通过，供审核中间件使用
	Approval(ctx context.Context, id string) (fullName string, approved bool, err error)
}

// Options 用户服务依赖
type Options struct {
	Notifier notifyservice.Emitter
	Verifier verifier.Verifier // 为 nil 时 VerifyIDCard 返回 ErrExternalService
	AdminKey string
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Clock    basemodel.Clock
}

// userService 实现
type userService struct {
	repo repository.UserRepository
	opts Options
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, opts Options) UserService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &userService{repo: repo, opts: opts}
}

func (s *userService) Signup(ctx context.Context, fullName, usn, idCardImageURL string) (*model.User, bool, error) {
	fullName = utils.NormalizeName(fullName)
	usn = utils.NormalizeUSN(usn)
	idCardImageURL = strings.TrimSpace(idCardImageURL)
	if fullName == "" || usn == "" {
		return nil, false, errs.Validation("fullName and usn are required")
	}

	// 1. 已注册则直接返回，不做任何写入
	existing, err := s.repo.GetByUSN(ctx, usn)
	if err == nil {
		s.opts.Metrics.Signup(true)
		return existing, true, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, false, err
	}

	// 2. 新用户，待审核
	user := &model.User{
		ID:                 basemodel.NewID(),
		FullName:           fullName,
		USN:                usn,
		IDCardImageURL:     idCardImageURL,
		VerificationStatus: model.StatusPending,
		CreatedAt:          s.opts.Clock.Now(),
	}
	created, isExisting, err := s.repo.CreateIfAbsent(ctx, user)
	if err != nil {
		return nil, false, err
	}
	s.opts.Metrics.Signup(isExisting)
	return created, isExisting, nil
}

func (s *userService) Login(ctx context.Context, fullName, usn string) (*model.User, error) {
	user, err := s.repo.GetByUSN(ctx, utils.NormalizeUSN(usn))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.SameName(user.FullName, fullName) {
		return nil, errs.ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) AdminLogin(key string) (string, *time.Time, error) {
	if s.opts.AdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.AdminKey)) != 1 {
		return "", nil, errs.ErrInvalidCredentials
	}
	return utils.GenerateToken("admin", utils.RoleAdmin)
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context, status model.VerificationStatus) ([]model.User, error) {
	if status != "" && !status.Valid() {
		return nil, errs.Validation("unknown status %q", status)
	}
	return s.repo.List(ctx, status)
}

func (s *userService) SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (*model.User, error) {
	if status != model.StatusApproved && status != model.StatusRejected {
		return nil, errs.Validation("status must be approved or rejected")
	}

	user, notify, err := s.repo.SetVerificationStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	// 同一状态只通知一次；通知失败不回滚状态
	if notify && s.opts.Notifier != nil {
		if status == model.StatusApproved {
			s.opts.Notifier.Notify(ctx, user.ID, notifymodel.TypeApproval, notifymodel.ApprovalContent, notifymodel.ProfileLink)
		} else {
			s.opts.Notifier.Notify(ctx, user.ID, notifymodel.TypeRejection, notifymodel.RejectionContent, notifymodel.ProfileLink)
		}
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error) {
	fullName = utils.NormalizeName(fullName)
	usn = utils.NormalizeUSN(usn)
	if fullName == "" || usn == "" {
		return nil, errs.Validation("fullName and usn are required")
	}
	return s.repo.UpdateProfile(ctx, id, fullName, usn)
}

func (s *userService) VerifyIDCard(ctx context.Context, id string) (string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.opts.Verifier == nil {
		return "", fmt.Errorf("%w: id verification is not configured", errs.ErrExternalService)
	}
	if user.IDCardImageURL == "" {
		return "", errs.Validation("user has no id card image")
	}

	result, err := s.opts.Verifier.VerifyID(ctx, verifier.Input{
		IDCardImage: user.IDCardImageURL,
		FullName:    user.FullName,
		USN:         user.USN,
	})
	if err != nil {
		s.opts.Logger.Warn("id verification failed", zap.String("user_id", id), zap.Error(err))
		if !errors.Is(err, errs.ErrExternalService) {
			err = fmt.Errorf("%w: %v", errs.ErrExternalService, err)
		}
		return "", err
	}
	return result, nil
}

func (s *userService) Approval(ctx context.Context, id string) (string, bool, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", false, err
	}
	return user.FullName, user.IsApproved(), nil
}
