package repository

import (
	"context"
	"sort"
	"time"

	chatmodel "campusfind/internal/domain/chat/model"
	"campusfind/internal/domain/post/model"
	"campusfind/pkg/errs"
	"campusfind/pkg/memdb"
)

type memoryRepository struct {
	db       *memdb.DB
	posts    *memdb.Collection[model.Post]
	replies  *memdb.Collection[model.Reply]
	chats    *memdb.Collection[chatmodel.Chat]
	messages *memdb.Collection[chatmodel.Message]
}

// NewMemoryRepository 内存实现，与 chat 模块共享 chats/messages 集合
func NewMemoryRepository(db *memdb.DB) PostRepository {
	return &memoryRepository{
		db:       db,
		posts:    memdb.Use[model.Post](db, "posts"),
		replies:  memdb.Use[model.Reply](db, "replies"),
		chats:    memdb.Use[chatmodel.Chat](db, "chats"),
		messages: memdb.Use[chatmodel.Message](db, "messages"),
	}
}

func (r *memoryRepository) CreatePost(ctx context.Context, post *model.Post) error {
	return r.db.Write(func() error {
		return r.posts.Insert(post.ID, *post)
	})
}

func (r *memoryRepository) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var (
		p  model.Post
		ok bool
	)
	r.db.Read(func() { p, ok = r.posts.Get(id) })
	if !ok {
		return nil, errs.NotFound("post")
	}
	return &p, nil
}

func (r *memoryRepository) ListActive(ctx context.Context, now time.Time) ([]model.Post, error) {
	var list []model.Post
	r.db.Read(func() {
		list = r.posts.Filter(func(p model.Post) bool { return !p.Expired(now) })
	})
	sortByCreatedDesc(list)
	return list, nil
}

func (r *memoryRepository) ListReplies(ctx context.Context, postID string) ([]model.Reply, error) {
	var list []model.Reply
	r.db.Read(func() {
		list = r.replies.Filter(func(rp model.Reply) bool { return rp.PostID == postID })
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *memoryRepository) AddReply(ctx context.Context, reply *model.Reply) (*model.Post, error) {
	var p model.Post
	err := r.db.Write(func() error {
		var ok bool
		if p, ok = r.posts.Get(reply.PostID); !ok {
			return errs.NotFound("post")
		}
		if reply.ParentReplyID != "" {
			parent, ok := r.replies.Get(reply.ParentReplyID)
			if !ok || parent.PostID != reply.PostID {
				return ErrInvalidParent
			}
		}
		if err := r.replies.Insert(reply.ID, *reply); err != nil {
			return err
		}
		p.ReplyCount++
		r.posts.Put(p.ID, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Post, error) {
	var p model.Post
	err := r.db.Write(func() error {
		var ok bool
		if p, ok = r.posts.Get(id); !ok {
			return errs.NotFound("post")
		}
		p.Status = status
		r.posts.Put(id, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *memoryRepository) DeletePost(ctx context.Context, id string) error {
	return r.db.Write(func() error {
		if !r.posts.Delete(id) {
			return errs.NotFound("post")
		}
		r.replies.DeleteWhere(func(rp model.Reply) bool { return rp.PostID == id })

		chatIDs := make(map[string]struct{})
		for _, c := range r.chats.Filter(func(c chatmodel.Chat) bool { return c.PostID == id }) {
			chatIDs[c.ID] = struct{}{}
			r.chats.Delete(c.ID)
		}
		r.messages.DeleteWhere(func(m chatmodel.Message) bool {
			_, ok := chatIDs[m.ChatID]
			return ok
		})
		return nil
	})
}
