package repository

import (
	"context"
	"sort"

	"campusfind/internal/domain/notification/model"
	"campusfind/pkg/errs"
	"campusfind/pkg/memdb"
)

type memoryRepository struct {
	db   *memdb.DB
	rows *memdb.Collection[model.Notification]
}

// NewMemoryRepository 内存实现
func NewMemoryRepository(db *memdb.DB) NotificationRepository {
	return &memoryRepository{db: db, rows: memdb.Use[model.Notification](db, "notifications")}
}

func (r *memoryRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.Write(func() error {
		return r.rows.Insert(n.ID, *n)
	})
}

func (r *memoryRepository) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	var list []model.Notification
	r.db.Read(func() {
		list = r.rows.Filter(func(n model.Notification) bool { return n.UserID == userID })
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *memoryRepository) MarkRead(ctx context.Context, userID, id string) error {
	return r.db.Write(func() error {
		n, ok := r.rows.Get(id)
		if !ok || n.UserID != userID {
			return errs.NotFound("notification")
		}
		n.ReadStatus = true
		r.rows.Put(id, n)
		return nil
	})
}

func (r *memoryRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var changed int64
	err := r.db.Write(func() error {
		for _, n := range r.rows.Filter(func(n model.Notification) bool { return n.UserID == userID && !n.ReadStatus }) {
			n.ReadStatus = true
			r.rows.Put(n.ID, n)
			changed++
		}
		return nil
	})
	return changed, err
}

func (r *memoryRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int
	r.db.Read(func() {
		n = len(r.rows.Filter(func(x model.Notification) bool { return x.UserID == userID && !x.ReadStatus }))
	})
	return int64(n), nil
}
