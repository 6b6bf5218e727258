package repository

import (
	"context"
	"errors"
	"fmt"

	"campusfind/internal/domain/user/model"
	"campusfind/pkg/database"
	"campusfind/pkg/errs"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const (
	usersCollection = "users"
	usnsCollection  = "usns" // usns/{USN} -> {userId}，保证 USN 唯一
)

type usnMarker struct {
	UserID string `firestore:"userId"`
}

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository Firestore 实现
func NewFirestoreRepository(client *firestore.Client) UserRepository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) userDoc(id string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(id)
}

func (r *firestoreRepository) usnDoc(usn string) *firestore.DocumentRef {
	return r.client.Collection(usnsCollection).Doc(usn)
}

func decodeUser(doc *firestore.DocumentSnapshot) (*model.User, error) {
	var u model.User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	u.ID = doc.Ref.ID
	return &u, nil
}

func (r *firestoreRepository) CreateIfAbsent(ctx context.Context, user *model.User) (*model.User, bool, error) {
	var (
		out      *model.User
		existing bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		out, existing = nil, false

		markerSnap, err := tx.Get(r.usnDoc(user.USN))
		if err != nil && !database.IsFirestoreNotFound(err) {
			return err
		}
		if err == nil {
			var marker usnMarker
			if err := markerSnap.DataTo(&marker); err != nil {
				return err
			}
			snap, err := tx.Get(r.userDoc(marker.UserID))
			if err != nil {
				return err
			}
			out, err = decodeUser(snap)
			existing = true
			return err
		}

		if err := tx.Create(r.usnDoc(user.USN), usnMarker{UserID: user.ID}); err != nil {
			return err
		}
		if err := tx.Create(r.userDoc(user.ID), user); err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return out, existing, nil
}

func (r *firestoreRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	snap, err := r.userDoc(id).Get(ctx)
	if database.IsFirestoreNotFound(err) {
		return nil, errs.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return decodeUser(snap)
}

func (r *firestoreRepository) GetByUSN(ctx context.Context, usn string) (*model.User, error) {
	snap, err := r.usnDoc(usn).Get(ctx)
	if database.IsFirestoreNotFound(err) {
		return nil, errs.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("get user by usn: %w", err)
	}
	var marker usnMarker
	if err := snap.DataTo(&marker); err != nil {
		return nil, fmt.Errorf("decode usn marker: %w", err)
	}
	return r.GetByID(ctx, marker.UserID)
}

func (r *firestoreRepository) List(ctx context.Context, status model.VerificationStatus) ([]model.User, error) {
	q := r.client.Collection(usersCollection).Query
	if status != "" {
		q = q.Where("verificationStatus", "==", string(status))
	}
	iter := q.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	users := make([]model.User, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		u, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, nil
}

func (r *firestoreRepository) SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (*model.User, bool, error) {
	var (
		user   *model.User
		notify bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(r.userDoc(id))
		if database.IsFirestoreNotFound(err) {
			return errs.NotFound("user")
		}
		if err != nil {
			return err
		}
		if user, err = decodeUser(snap); err != nil {
			return err
		}

		notify = user.NotifiedStatus != status
		user.VerificationStatus = status
		user.NotifiedStatus = status
		return tx.Update(snap.Ref, []firestore.Update{
			{Path: "verificationStatus", Value: string(status)},
			{Path: "notifiedStatus", Value: string(status)},
		})
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("set verification status: %w", err)
	}
	return user, notify, nil
}

func (r *firestoreRepository) UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error) {
	var user *model.User
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(r.userDoc(id))
		if database.IsFirestoreNotFound(err) {
			return errs.NotFound("user")
		}
		if err != nil {
			return err
		}
		if user, err = decodeUser(snap); err != nil {
			return err
		}

		if usn != user.USN {
			markerSnap, err := tx.Get(r.usnDoc(usn))
			if err == nil {
				var marker usnMarker
				if err := markerSnap.DataTo(&marker); err != nil {
					return err
				}
				if marker.UserID != id {
					return ErrUSNTaken
				}
			} else if !database.IsFirestoreNotFound(err) {
				return err
			}

			if err := tx.Delete(r.usnDoc(user.USN)); err != nil {
				return err
			}
			if err := tx.Set(r.usnDoc(usn), usnMarker{UserID: id}); err != nil {
				return err
			}
		}

		user.FullName = fullName
		user.USN = usn
		return tx.Update(snap.Ref, []firestore.Update{
			{Path: "fullName", Value: fullName},
			{Path: "usn", Value: usn},
		})
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, ErrUSNTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}
