package repository

import (
	"context"

	"campusfind/internal/domain/chat/model"
	"campusfind/pkg/errs"
	"campusfind/pkg/memdb"
)

type memoryRepository struct {
	db       *memdb.DB
	chats    *memdb.Collection[model.Chat]
	pairs    *memdb.Collection[string] // postId/pairKey -> chatId
	messages *memdb.Collection[model.Message]
}

// NewMemoryRepository 内存实现，chats/messages 集合与 post 模块共享
func NewMemoryRepository(db *memdb.DB) ChatRepository {
	return &memoryRepository{
		db:       db,
		chats:    memdb.Use[model.Chat](db, "chats"),
		pairs:    memdb.Use[string](db, "chats.pair"),
		messages: memdb.Use[model.Message](db, "messages"),
	}
}

func pairIndex(postID, pairKey string) string {
	return postID + "/" + pairKey
}

func (r *memoryRepository) GetOrCreate(ctx context.Context, chat *model.Chat) (*model.Chat, bool, error) {
	var (
		out     model.Chat
		created bool
	)
	err := r.db.Write(func() error {
		key := pairIndex(chat.PostID, chat.PairKey)
		if id, ok := r.pairs.Get(key); ok {
			// 帖子级联删除只清理 chats，索引可能残留
			if c, ok := r.chats.Get(id); ok {
				out = c
				return nil
			}
		}
		if err := r.chats.Insert(chat.ID, *chat); err != nil {
			return err
		}
		r.pairs.Put(key, chat.ID)
		out = *chat
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	out.Messages = []model.Message{}
	return &out, created, nil
}

func (r *memoryRepository) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	var (
		c  model.Chat
		ok bool
	)
	r.db.Read(func() {
		if c, ok = r.chats.Get(id); ok {
			c.Messages = r.messages.Filter(func(m model.Message) bool { return m.ChatID == id })
		}
	})
	if !ok {
		return nil, errs.NotFound("chat")
	}
	sortMessages(c.Messages)
	return &c, nil
}

func (r *memoryRepository) AddMessage(ctx context.Context, msg *model.Message) (*model.Chat, error) {
	var c model.Chat
	err := r.db.Write(func() error {
		var ok bool
		if c, ok = r.chats.Get(msg.ChatID); !ok {
			return errs.NotFound("chat")
		}
		if err := r.messages.Insert(msg.ID, *msg); err != nil {
			return err
		}
		ts := msg.Timestamp
		c.LastMessageAt = &ts
		r.chats.Put(c.ID, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *memoryRepository) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	var list []model.Chat
	r.db.Read(func() {
		list = r.chats.Filter(func(c model.Chat) bool { return c.HasParticipant(userID) })
		for i := range list {
			id := list[i].ID
			list[i].Messages = r.messages.Filter(func(m model.Message) bool { return m.ChatID == id })
		}
	})
	for i := range list {
		sortMessages(list[i].Messages)
	}
	sortByRecent(list)
	return list, nil
}
