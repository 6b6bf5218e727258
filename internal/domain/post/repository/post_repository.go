package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	chatmodel "campusfind/internal/domain/chat/model"
	"campusfind/internal/domain/post/model"
	"campusfind/pkg/errs"

	"gorm.io/gorm"
)

// ErrInvalidParent 父回复不存在或不属于该帖子
var ErrInvalidParent = fmt.Errorf("%w: parent reply does not exist on this post", errs.ErrValidation)

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	// ListActive 返回 expiresAt > now 的帖子，按 createdAt 倒序
	ListActive(ctx context.Context, now time.Time) ([]model.Post, error)
	// ListReplies 按 createdAt 升序
	ListReplies(ctx context.Context, postID string) ([]model.Reply, error)
	// AddReply 校验父回复、写入回复并原子递增 replyCount，返回更新后的帖子
	AddReply(ctx context.Context, reply *model.Reply) (*model.Post, error)
	UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Post, error)
	// DeletePost 在一个事务中删除帖子及其回复、会话和消息
	DeletePost(ctx context.Context, id string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository postgres 实现
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *postRepository) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return getPost(r.db.WithContext(ctx), id)
}

func getPost(db *gorm.DB, id string) (*model.Post, error) {
	var post model.Post
	if err := db.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("post")
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) ListActive(ctx context.Context, now time.Time) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Where("expires_at > ?", now).
		Order("created_at desc").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (r *postRepository) ListReplies(ctx context.Context, postID string) ([]model.Reply, error) {
	var replies []model.Reply
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at asc").
		Find(&replies).Error
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

func (r *postRepository) AddReply(ctx context.Context, reply *model.Reply) (*model.Post, error) {
	var post *model.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 计数递增与插入在同一事务，行锁保证并发回复不丢失
		res := tx.Model(&model.Post{}).Where("id = ?", reply.PostID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("post")
		}

		if reply.ParentReplyID != "" {
			var n int64
			if err := tx.Model(&model.Reply{}).
				Where("id = ? AND post_id = ?", reply.ParentReplyID, reply.PostID).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrInvalidParent
			}
		}

		if err := tx.Create(reply).Error; err != nil {
			return err
		}

		var err error
		post, err = getPost(tx, reply.PostID)
		return err
	})
	if err != nil {
		return nil, wrapTxError("add reply", err)
	}
	return post, nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Post, error) {
	res := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("update post status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("post")
	}
	return r.GetPost(ctx, id)
}

func (r *postRepository) DeletePost(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chatIDs []string
		if err := tx.Model(&chatmodel.Chat{}).Where("post_id = ?", id).Pluck("id", &chatIDs).Error; err != nil {
			return err
		}
		if len(chatIDs) > 0 {
			if err := tx.Where("chat_id IN ?", chatIDs).Delete(&chatmodel.Message{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", id).Delete(&chatmodel.Chat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Reply{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("post")
		}
		return nil
	})
	if err != nil {
		return wrapTxError("delete post", err)
	}
	return nil
}
