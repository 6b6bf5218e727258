package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	notifymodel "campusfind/internal/domain/notification/model"
	"campusfind/internal/domain/post/model"
	"campusfind/internal/domain/post/repository"
	"campusfind/pkg/errs"
	"campusfind/pkg/memdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier 记录收到的通知
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifymodel.Notification
}

func (r *recordingNotifier) Emit(ctx context.Context, userID string, typ notifymodel.Type, content, link string) (*notifymodel.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := notifymodel.Notification{UserID: userID, Type: typ, Content: content, Link: link}
	r.sent = append(r.sent, n)
	return &n, nil
}

func (r *recordingNotifier) Notify(ctx context.Context, userID string, typ notifymodel.Type, content, link string) {
	_, _ = r.Emit(ctx, userID, typ, content, link)
}

func (r *recordingNotifier) all() []notifymodel.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifymodel.Notification(nil), r.sent...)
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	owner    = Author{ID: "u1", Name: "Jane Doe"}
	replier  = Author{ID: "u2", Name: "John Roe"}
	stranger = Author{ID: "u3", Name: "Sam Poe"}
	admin    = Author{ID: "admin", Name: "Admin", IsAdmin: true}
)

func setup(t *testing.T) (PostService, repository.PostRepository, *recordingNotifier, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	repo := repository.NewMemoryRepository(memdb.New())
	svc := NewPostService(repo, Options{Notifier: notifier, Clock: clock.Now})
	return svc, repo, notifier, clock
}

func walletInput() CreatePostInput {
	return CreatePostInput{
		PostType:    model.TypeLost,
		Title:       "Lost Wallet",
		Description: "Brown leather wallet",
		Location:    "Library",
		Date:        time.Date(2024, 4, 30, 18, 0, 0, 0, time.UTC),
	}
}

func TestPostService_CreatePost(t *testing.T) {
	svc, _, _, clock := setup(t)

	post, err := svc.CreatePost(context.Background(), owner, walletInput())
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, model.StatusOpen, post.Status)
	assert.Equal(t, 0, post.ReplyCount)
	assert.Equal(t, clock.Now(), post.CreatedAt)
	assert.Equal(t, clock.Now().Add(30*24*time.Hour), post.ExpiresAt)
	assert.Equal(t, "Jane Doe", post.PostedByName)

	t.Run("rejects bad input", func(t *testing.T) {
		in := walletInput()
		in.PostType = "stolen"
		_, err := svc.CreatePost(context.Background(), owner, in)
		assert.ErrorIs(t, err, errs.ErrValidation)

		in = walletInput()
		in.Title = "  "
		_, err = svc.CreatePost(context.Background(), owner, in)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestPostService_ListOpenPosts(t *testing.T) {
	svc, _, _, clock := setup(t)
	ctx := context.Background()

	old, err := svc.CreatePost(ctx, owner, walletInput())
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	newer, err := svc.CreatePost(ctx, replier, walletInput())
	require.NoError(t, err)

	list, err := svc.ListOpenPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest first")
	assert.Equal(t, old.ID, list[1].ID)

	// 第一篇帖子已过 30 天有效期
	clock.Advance(29*24*time.Hour + 12*time.Hour)
	list, err = svc.ListOpenPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)
	for _, p := range list {
		assert.True(t, p.ExpiresAt.After(clock.Now()))
	}

	// 恰好到期也不再展示
	clock.Advance(newer.ExpiresAt.Sub(clock.Now()))
	list, err = svc.ListOpenPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostService_AddReply(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies owner once", func(t *testing.T) {
		svc, _, notifier, _ := setup(t)
		post, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)

		reply, err := svc.AddReply(ctx, post.ID, replier, "Found it!", "")
		require.NoError(t, err)
		assert.Equal(t, "John Roe", reply.RepliedByName)

		got, err := svc.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReplyCount)

		sent := notifier.all()
		require.Len(t, sent, 1)
		assert.Equal(t, "u1", sent[0].UserID)
		assert.Equal(t, notifymodel.TypeReply, sent[0].Type)
		assert.Contains(t, sent[0].Content, "John Roe")
		assert.Contains(t, sent[0].Content, "Lost Wallet")
		assert.Equal(t, "/app/post/"+post.ID, sent[0].Link)
	})

	t.Run("self reply is silent", func(t *testing.T) {
		svc, _, notifier, _ := setup(t)
		post, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)

		_, err = svc.AddReply(ctx, post.ID, owner, "Still missing", "")
		require.NoError(t, err)
		assert.Empty(t, notifier.all())

		got, err := svc.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ReplyCount)
	})

	t.Run("unknown post", func(t *testing.T) {
		svc, _, notifier, _ := setup(t)
		_, err := svc.AddReply(ctx, "missing", replier, "hello", "")
		assert.ErrorIs(t, err, errs.ErrNotFound)
		assert.Empty(t, notifier.all())
	})

	t.Run("nested replies", func(t *testing.T) {
		svc, _, _, clock := setup(t)
		post, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)

		top, err := svc.AddReply(ctx, post.ID, replier, "Which floor?", "")
		require.NoError(t, err)
		clock.Advance(time.Minute)
		child, err := svc.AddReply(ctx, post.ID, owner, "Second", top.ID)
		require.NoError(t, err)

		_, replies, err := svc.GetPostWithReplies(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, replies, 2)
		assert.Equal(t, top.ID, replies[0].ID, "oldest first")

		tree := model.BuildReplyTree(replies)
		require.Len(t, tree, 1)
		require.Len(t, tree[0].Children, 1)
		assert.Equal(t, child.ID, tree[0].Children[0].ID)
	})

	t.Run("parent must belong to post", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		a, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)
		b, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)

		onA, err := svc.AddReply(ctx, a.ID, replier, "on a", "")
		require.NoError(t, err)

		_, err = svc.AddReply(ctx, b.ID, replier, "wrong thread", onA.ID)
		assert.ErrorIs(t, err, repository.ErrInvalidParent)
		_, err = svc.AddReply(ctx, b.ID, replier, "dangling", "nope")
		assert.ErrorIs(t, err, errs.ErrValidation)

		got, err := svc.GetPost(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.ReplyCount, "failed replies are not counted")
	})

	t.Run("concurrent replies keep count", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		post, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)

		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.AddReply(ctx, post.ID, replier, fmt.Sprintf("reply %d", i), "")
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, replies, err := svc.GetPostWithReplies(ctx, post.ID)
		require.NoError(t, err)
		assert.Len(t, replies, n)
		assert.Equal(t, n, got.ReplyCount)
	})
}

func TestPostService_ResolvePost(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()
	post, err := svc.CreatePost(ctx, owner, walletInput())
	require.NoError(t, err)

	_, err = svc.ResolvePost(ctx, post.ID, replier)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	got, err := svc.ResolvePost(ctx, post.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, got.Status)

	list, err := svc.ListOpenPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "resolved posts stay listed until expiry")
}

func TestPostService_DeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes with replies", func(t *testing.T) {
		svc, repo, _, _ := setup(t)
		post, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)
		_, err = svc.AddReply(ctx, post.ID, replier, "Found it!", "")
		require.NoError(t, err)

		require.NoError(t, svc.DeletePost(ctx, post.ID, owner))

		_, _, err = svc.GetPostWithReplies(ctx, post.ID)
		assert.ErrorIs(t, err, errs.ErrNotFound)
		replies, err := repo.ListReplies(ctx, post.ID)
		require.NoError(t, err)
		assert.Empty(t, replies)
	})

	t.Run("stranger forbidden, admin allowed", func(t *testing.T) {
		svc, _, _, _ := setup(t)
		post, err := svc.CreatePost(ctx, owner, walletInput())
		require.NoError(t, err)

		assert.ErrorIs(t, svc.DeletePost(ctx, post.ID, stranger), errs.ErrForbidden)
		require.NoError(t, svc.DeletePost(ctx, post.ID, admin))
		assert.ErrorIs(t, svc.DeletePost(ctx, post.ID, admin), errs.ErrNotFound)
	})
}
