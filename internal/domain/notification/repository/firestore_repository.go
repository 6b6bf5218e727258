package repository

import (
	"context"
	"fmt"

	"campusfind/internal/domain/notification/model"
	"campusfind/pkg/database"
	"campusfind/pkg/errs"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// 通知存放在 users/{userId}/notifications/{id}
type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository Firestore 实现
func NewFirestoreRepository(client *firestore.Client) NotificationRepository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) col(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("notifications")
}

func (r *firestoreRepository) Create(ctx context.Context, n *model.Notification) error {
	if _, err := r.col(n.UserID).Doc(n.ID).Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *firestoreRepository) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	iter := r.col(userID).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	list := make([]model.Notification, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}

		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", doc.Ref.ID, err)
		}
		n.ID = doc.Ref.ID
		list = append(list, n)
	}
	return list, nil
}

func (r *firestoreRepository) MarkRead(ctx context.Context, userID, id string) error {
	_, err := r.col(userID).Doc(id).Update(ctx, []firestore.Update{
		{Path: "readStatus", Value: true},
	})
	if database.IsFirestoreNotFound(err) {
		return errs.NotFound("notification")
	}
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *firestoreRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	iter := r.col(userID).Where("readStatus", "==", false).Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var changed int64
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return changed, fmt.Errorf("mark all notifications read: %w", err)
		}
		if _, err := bw.Update(doc.Ref, []firestore.Update{{Path: "readStatus", Value: true}}); err != nil {
			bw.End()
			return changed, fmt.Errorf("mark all notifications read: %w", err)
		}
		changed++
	}
	bw.End()
	return changed, nil
}

func (r *firestoreRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	q := r.col(userID).Where("readStatus", "==", false)
	res, err := q.NewAggregationQuery().WithCount("unread").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return aggregateInt(res["unread"])
}

func aggregateInt(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case interface{ GetIntegerValue() int64 }:
		return x.GetIntegerValue(), nil
	default:
		return 0, fmt.Errorf("unexpected aggregation result %T", v)
	}
}
