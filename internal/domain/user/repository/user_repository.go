package repository

import (
	"context"
	"errors"
	"fmt"

	"campusfind/internal/domain/user/model"
	"campusfind/pkg/database"
	"campusfind/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUSNTaken 修改资料时 USN 已被其他用户占用
var ErrUSNTaken = fmt.Errorf("usn already registered: %w", errs.ErrConflict)

// UserRepository 接口定义。所有实现的 USN 均为规范化后的值。
type UserRepository interface {
	// CreateIfAbsent 插入新用户；USN 已存在时不写入，返回已有记录与 true
	CreateIfAbsent(ctx context.Context, user *model.User) (*model.User, bool, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUSN(ctx context.Context, usn string) (*model.User, error)
	// List 按 createdAt 倒序；status 为空时返回全部
	List(ctx context.Context, status model.VerificationStatus) ([]model.User, error)
	// SetVerificationStatus 原子地更新状态与 NotifiedStatus，
	// 返回值 notify 表示本次写入是否是该状态的首次通知
	SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (user *model.User, notify bool, err error)
	// UpdateProfile USN 与其他用户冲突时返回 ErrUSNTaken
	UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error)
}

// userRepository postgres 实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建新的仓库实例
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *model.User) (*model.User, bool, error) {
	err := r.db.WithContext(ctx).Create(user).Error
	if err == nil {
		return user, false, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	// 并发注册同一 USN，返回先写入的那条
	existing, err := r.GetByUSN(ctx, user.USN)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *userRepository) GetByUSN(ctx context.Context, usn string) (*model.User, error) {
	return r.first(r.db.WithContext(ctx).Where("usn = ?", usn))
}

func (r *userRepository) first(q *gorm.DB) (*model.User, error) {
	var user model.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, status model.VerificationStatus) ([]model.User, error) {
	var users []model.User
	q := r.db.WithContext(ctx).Model(&model.User{})
	if status != "" {
		q = q.Where("verification_status = ?", status)
	}
	if err := q.Order("created_at desc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (*model.User, bool, error) {
	var (
		user   model.User
		notify bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("user")
			}
			return err
		}

		notify = user.NotifiedStatus != status
		user.VerificationStatus = status
		user.NotifiedStatus = status
		return tx.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
			"verification_status": status,
			"notified_status":     status,
		}).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("set verification status: %w", err)
	}
	return &user, notify, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("user")
			}
			return err
		}

		if usn != user.USN {
			var taken int64
			if err := tx.Model(&model.User{}).Where("usn = ? AND id <> ?", usn, id).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrUSNTaken
			}
		}

		user.FullName = fullName
		user.USN = usn
		return tx.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
			"full_name": fullName,
			"usn":       usn,
		}).Error
	})
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, ErrUSNTaken):
		return nil, err
	case database.IsUniqueViolation(err):
		return nil, ErrUSNTaken
	default:
		return nil, fmt.Errorf("update profile: %w", err)
	}
}
