package repository

import (
	"context"
	"sort"

	"campusfind/internal/domain/user/model"
	"campusfind/pkg/errs"
	"campusfind/pkg/memdb"
)

type memoryRepository struct {
	db    *memdb.DB
	users *memdb.Collection[model.User]
	usns  *memdb.Collection[string] // usn -> userId
}

// NewMemoryRepository 内存实现
func NewMemoryRepository(db *memdb.DB) UserRepository {
	return &memoryRepository{
		db:    db,
		users: memdb.Use[model.User](db, "users"),
		usns:  memdb.Use[string](db, "users.usn"),
	}
}

func (r *memoryRepository) CreateIfAbsent(ctx context.Context, user *model.User) (*model.User, bool, error) {
	var (
		out      model.User
		existing bool
	)
	err := r.db.Write(func() error {
		if id, ok := r.usns.Get(user.USN); ok {
			out, _ = r.users.Get(id)
			existing = true
			return nil
		}
		if err := r.users.Insert(user.ID, *user); err != nil {
			return err
		}
		r.usns.Put(user.USN, user.ID)
		out = *user
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, existing, nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.db.Read(func() { u, ok = r.users.Get(id) })
	if !ok {
		return nil, errs.NotFound("user")
	}
	return &u, nil
}

func (r *memoryRepository) GetByUSN(ctx context.Context, usn string) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.db.Read(func() {
		var id string
		if id, ok = r.usns.Get(usn); ok {
			u, ok = r.users.Get(id)
		}
	})
	if !ok {
		return nil, errs.NotFound("user")
	}
	return &u, nil
}

func (r *memoryRepository) List(ctx context.Context, status model.VerificationStatus) ([]model.User, error) {
	var list []model.User
	r.db.Read(func() {
		list = r.users.Filter(func(u model.User) bool {
			return status == "" || u.VerificationStatus == status
		})
	})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (r *memoryRepository) SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus) (*model.User, bool, error) {
	var (
		u      model.User
		notify bool
	)
	err := r.db.Write(func() error {
		var ok bool
		if u, ok = r.users.Get(id); !ok {
			return errs.NotFound("user")
		}
		notify = u.NotifiedStatus != status
		u.VerificationStatus = status
		u.NotifiedStatus = status
		r.users.Put(id, u)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &u, notify, nil
}

func (r *memoryRepository) UpdateProfile(ctx context.Context, id, fullName, usn string) (*model.User, error) {
	var u model.User
	err := r.db.Write(func() error {
		var ok bool
		if u, ok = r.users.Get(id); !ok {
			return errs.NotFound("user")
		}
		if usn != u.USN {
			if owner, taken := r.usns.Get(usn); taken && owner != id {
				return ErrUSNTaken
			}
			r.usns.Delete(u.USN)
			r.usns.Put(usn, id)
		}
		u.FullName = fullName
		u.USN = usn
		r.users.Put(id, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
