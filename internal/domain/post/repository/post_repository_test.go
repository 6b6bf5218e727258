package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"campusfind/internal/domain/post/model"
	"campusfind/pkg/errs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPostRepository_ListActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE expires_at > $1 ORDER BY created_at desc`)).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "reply_count"}).
			AddRow("p2", "Found Keys", 0).
			AddRow("p1", "Lost Wallet", 2))

	posts, err := repo.ListActive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, 2, posts[1].ReplyCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_AddReply(t *testing.T) {
	t.Run("missing post rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "reply_count"=reply_count + $1`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.AddReply(context.Background(), &model.Reply{ID: "r1", PostID: "missing", Message: "hi"})
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown parent rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "reply_count"=reply_count + $1`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "replies"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectRollback()

		_, err := repo.AddReply(context.Background(), &model.Reply{ID: "r2", PostID: "p1", ParentReplyID: "ghost", Message: "hi"})
		assert.ErrorIs(t, err, ErrInvalidParent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
