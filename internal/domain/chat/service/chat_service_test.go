package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusfind/internal/domain/chat/repository"
	notifymodel "campusfind/internal/domain/notification/model"
	postmodel "campusfind/internal/domain/post/model"
	postrepo "campusfind/internal/domain/post/repository"
	"campusfind/pkg/errs"
	"campusfind/pkg/memdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

var (
	alice = Participant{ID: "u1", Name: "Alice"}
	bob   = Participant{ID: "u2", Name: "Bob"}
	carol = Participant{ID: "u3", Name: "Carol"}
)

type fixture struct {
	svc      ChatService
	db       *memdb.DB
	notifier *recordingNotifier

	mu  sync.Mutex
	now time.Time
}

// tick 每次调用前进一分钟
func (f *fixture) tick() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Minute)
	return f.now
}

// setup 在共享的内存库中准备帖子 p1（Alice 发布）
func setup(t *testing.T) *fixture {
	t.Helper()
	db := memdb.New()
	posts := postrepo.NewMemoryRepository(db)
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, posts.CreatePost(context.Background(), &postmodel.Post{
		ID: "p1", Title: "Lost Wallet", PostedBy: alice.ID, PostedByName: alice.Name,
		CreatedAt: start, ExpiresAt: start.Add(postmodel.TTL),
	}))

	f := &fixture{db: db, notifier: &recordingNotifier{}, now: start}
	f.svc = NewChatService(repository.NewMemoryRepository(db), Options{
		Posts:    posts,
		Notifier: f.notifier,
		Clock:    f.tick,
	})
	return f
}

func TestChatService_GetOrCreateChat(t *testing.T) {
	ctx := context.Background()

	t.Run("same chat in either order", func(t *testing.T) {
		f := setup(t)
		first, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
		require.NoError(t, err)
		second, err := f.svc.GetOrCreateChat(ctx, "p1", bob, alice)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, alice.ID, second.UserAID, "identity fields keep the first caller's order")

		chats, err := f.svc.ListChatsForUser(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, chats, 1)
	})

	t.Run("scoped by post", func(t *testing.T) {
		f := setup(t)
		a, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
		require.NoError(t, err)
		b, err := f.svc.GetOrCreateChat(ctx, "p2", alice, bob)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("concurrent callers share one chat", func(t *testing.T) {
		f := setup(t)
		const n = 20
		ids := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, b := alice, bob
				if i%2 == 1 {
					a, b = b, a
				}
				chat, err := f.svc.GetOrCreateChat(ctx, "p1", a, b)
				if assert.NoError(t, err) {
					ids[i] = chat.ID
				}
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("rejects self chat", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.GetOrCreateChat(ctx, "p1", alice, alice)
		assert.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestChatService_OpenChatWithOwner(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	chat, err := f.svc.OpenChatWithOwner(ctx, "p1", bob)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, chat.UserAID)
	assert.Equal(t, "Alice", chat.UserAName)
	assert.Equal(t, bob.ID, chat.UserBID)
	assert.Empty(t, chat.Messages)

	_, err = f.svc.OpenChatWithOwner(ctx, "missing", bob)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.OpenChatWithOwner(ctx, "p1", alice)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestChatService_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("listed with message for other participant", func(t *testing.T) {
		f := setup(t)
		chat, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
		require.NoError(t, err)

		msg, err := f.svc.SendMessage(ctx, chat.ID, bob, "hi")
		require.NoError(t, err)
		assert.Equal(t, "Bob", msg.SenderName)

		chats, err := f.svc.ListChatsForUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		require.Len(t, chats[0].Messages, 1)
		assert.Equal(t, "hi", chats[0].Messages[0].Text)
		require.NotNil(t, chats[0].LastMessageAt)
		assert.Equal(t, msg.Timestamp, *chats[0].LastMessageAt)

		sent := f.notifier.all()
		require.Len(t, sent, 1)
		assert.Equal(t, alice.ID, sent[0].UserID)
		assert.Equal(t, notifymodel.TypeMessage, sent[0].Type)
		assert.Equal(t, `Bob sent you a message about "Lost Wallet"`, sent[0].Content)
		assert.Equal(t, "/app/chat/p1", sent[0].Link)
	})

	t.Run("outsider and unknown chat", func(t *testing.T) {
		f := setup(t)
		chat, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
		require.NoError(t, err)

		_, err = f.svc.SendMessage(ctx, chat.ID, carol, "let me in")
		assert.ErrorIs(t, err, errs.ErrForbidden)
		_, err = f.svc.SendMessage(ctx, "missing", bob, "hi")
		assert.ErrorIs(t, err, errs.ErrNotFound)
		_, err = f.svc.SendMessage(ctx, chat.ID, bob, "   ")
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.Empty(t, f.notifier.all())
	})

	t.Run("messages ordered by timestamp", func(t *testing.T) {
		f := setup(t)
		chat, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
		require.NoError(t, err)
		for _, text := range []string{"one", "two", "three"} {
			_, err := f.svc.SendMessage(ctx, chat.ID, alice, text)
			require.NoError(t, err)
		}

		got, err := f.svc.GetChat(ctx, chat.ID, bob.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		assert.Equal(t, "one", got.Messages[0].Text)
		assert.Equal(t, "three", got.Messages[2].Text)

		_, err = f.svc.GetChat(ctx, chat.ID, carol.ID)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})
}

func TestChatService_ListChatsForUserOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	quiet, err := f.svc.GetOrCreateChat(ctx, "p1", alice, carol)
	require.NoError(t, err)
	older, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
	require.NoError(t, err)
	newer, err := f.svc.GetOrCreateChat(ctx, "p2", alice, bob)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, older.ID, bob, "first")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, newer.ID, bob, "second")
	require.NoError(t, err)

	chats, err := f.svc.ListChatsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, newer.ID, chats[0].ID)
	assert.Equal(t, older.ID, chats[1].ID)
	assert.Equal(t, quiet.ID, chats[2].ID, "chats without messages sort last")
}

func TestChatService_PostDeleteRemovesChats(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	chat, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, chat.ID, bob, "hi")
	require.NoError(t, err)

	require.NoError(t, postrepo.NewMemoryRepository(f.db).DeletePost(ctx, "p1"))

	_, err = f.svc.GetChat(ctx, chat.ID, alice.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	chats, err := f.svc.ListChatsForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)

	// 重新打开时创建新会话
	again, err := f.svc.GetOrCreateChat(ctx, "p1", alice, bob)
	require.NoError(t, err)
	assert.NotEqual(t, chat.ID, again.ID)
}
