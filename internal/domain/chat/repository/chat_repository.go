package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"campusfind/internal/domain/chat/model"
	"campusfind/pkg/database"
	"campusfind/pkg/errs"

	"gorm.io/gorm"
)

type ChatRepository interface {
	// GetOrCreate 按 (PostID, PairKey) 查找会话，不存在则创建；created 表示本次新建
	GetOrCreate(ctx context.Context, chat *model.Chat) (out *model.Chat, created bool, err error)
	// GetChat 返回会话及按时间升序的消息
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	// AddMessage 写入消息并更新会话的 LastMessageAt，返回会话（不含消息）
	AddMessage(ctx context.Context, msg *model.Message) (*model.Chat, error)
	// ListForUser 用户参与的会话，最近有消息的在前，无消息的排在最后
	ListForUser(ctx context.Context, userID string) ([]model.Chat, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository postgres 实现
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) find(ctx context.Context, postID, pairKey string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND pair_key = ?", postID, pairKey).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	chat.Messages = []model.Message{}
	return &chat, nil
}

func (r *chatRepository) GetOrCreate(ctx context.Context, chat *model.Chat) (*model.Chat, bool, error) {
	existing, err := r.find(ctx, chat.PostID, chat.PairKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("find chat: %w", err)
	}

	err = r.db.WithContext(ctx).Create(chat).Error
	if database.IsUniqueViolation(err) {
		// 并发创建，读取对方写入的记录
		existing, err := r.find(ctx, chat.PostID, chat.PairKey)
		if err != nil {
			return nil, false, fmt.Errorf("find chat: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create chat: %w", err)
	}
	chat.Messages = []model.Message{}
	return chat, true, nil
}

func (r *chatRepository) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("chat")
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	chat.Messages = []model.Message{}
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", id).
		Order("timestamp asc").
		Find(&chat.Messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &chat, nil
}

func (r *chatRepository) AddMessage(ctx context.Context, msg *model.Message) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Chat{}).Where("id = ?", msg.ChatID).Update("last_message_at", msg.Timestamp)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("chat")
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", msg.ChatID).First(&chat).Error
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("add message: %w", err)
	}
	return &chat, nil
}

func (r *chatRepository) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("last_message_at desc nulls last").
		Order("created_at desc").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	if len(chats) == 0 {
		return chats, nil
	}

	ids := make([]string, len(chats))
	byID := make(map[string]*model.Chat, len(chats))
	for i := range chats {
		ids[i] = chats[i].ID
		chats[i].Messages = []model.Message{}
		byID[chats[i].ID] = &chats[i]
	}

	var messages []model.Message
	err = r.db.WithContext(ctx).
		Where("chat_id IN ?", ids).
		Order("timestamp asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, m := range messages {
		if c, ok := byID[m.ChatID]; ok {
			c.Messages = append(c.Messages, m)
		}
	}
	return chats, nil
}

// sortByRecent 最近消息在前，无消息的按创建时间排在最后
func sortByRecent(chats []model.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		a, b := chats[i].LastMessageAt, chats[j].LastMessageAt
		switch {
		case a != nil && b != nil:
			return a.After(*b)
		case a != nil:
			return true
		case b != nil:
			return false
		}
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
}

func sortMessages(messages []model.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}
