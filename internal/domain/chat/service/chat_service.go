package service

import (
	"context"
	"strings"

	"campusfind/internal/domain/chat/model"
	"campusfind/internal/domain/chat/repository"
	notifymodel "campusfind/internal/domain/notification/model"
	notifyservice "campusfind/internal/domain/notification/service"
	postmodel "campusfind/internal/domain/post/model"
	"campusfind/pkg/errs"
	"campusfind/pkg/metrics"
	basemodel "campusfind/pkg/model"
	"campusfind/pkg/utils"

	"go.uber.org/zap"
)

// Participant 会话参与者（显示名在写入时快照）
type Participant struct {
	ID   string
	Name string
}

// PostLookup 查询会话所属帖子
type PostLookup interface {
	GetPost(ctx context.Context, id string) (*postmodel.Post, error)
}

// ChatService 私信服务接口
type ChatService interface {
	// GetOrCreateChat 同一帖子下同一对用户（不分顺序）只有一个会话
	GetOrCreateChat(ctx context.Context, postID string, a, b Participant) (*model.Chat, error)
	// OpenChatWithOwner 当前用户与帖主的会话，帖主为 userA
	OpenChatWithOwner(ctx context.Context, postID string, viewer Participant) (*model.Chat, error)
	// SendMessage 仅会话双方可发送，并通知另一方
	SendMessage(ctx context.Context, chatID string, sender Participant, text string) (*model.Message, error)
	ListChatsForUser(ctx context.Context, userID string) ([]model.Chat, error)
	// GetChat 仅会话双方可查看
	GetChat(ctx context.Context, chatID, viewerID string) (*model.Chat, error)
}

// Options 私信服务依赖
type Options struct {
	Posts    PostLookup
	Notifier notifyservice.Emitter
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Clock    basemodel.Clock
}

type chatService struct {
	repo repository.ChatRepository
	opts Options
}

// NewChatService 创建私信服务
func NewChatService(repo repository.ChatRepository, opts Options) ChatService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &chatService{repo: repo, opts: opts}
}

func (s *chatService) GetOrCreateChat(ctx context.Context, postID string, a, b Participant) (*model.Chat, error) {
	if postID == "" || a.ID == "" || b.ID == "" {
		return nil, errs.Validation("post and both participants are required")
	}
	if a.ID == b.ID {
		return nil, errs.Validation("cannot start a chat with yourself")
	}

	chat := &model.Chat{
		ID:        basemodel.NewID(),
		PostID:    postID,
		PairKey:   utils.PairKey(a.ID, b.ID),
		UserAID:   a.ID,
		UserAName: a.Name,
		UserBID:   b.ID,
		UserBName: b.Name,
		CreatedAt: s.opts.Clock.Now(),
	}
	out, created, err := s.repo.GetOrCreate(ctx, chat)
	if err != nil {
		return nil, err
	}
	if created {
		s.opts.Logger.Debug("chat created", zap.String("chat_id", out.ID), zap.String("post_id", postID))
	}
	return out, nil
}

func (s *chatService) OpenChatWithOwner(ctx context.Context, postID string, viewer Participant) (*model.Chat, error) {
	post, err := s.opts.Posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.GetOrCreateChat(ctx, post.ID, Participant{ID: post.PostedBy, Name: post.PostedByName}, viewer)
}

func (s *chatService) SendMessage(ctx context.Context, chatID string, sender Participant, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.Validation("text is required")
	}

	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(sender.ID) {
		return nil, errs.ErrForbidden
	}

	msg := &model.Message{
		ID:         basemodel.NewID(),
		ChatID:     chatID,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
		Timestamp:  s.opts.Clock.Now(),
	}
	if _, err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.opts.Metrics.Message()

	s.notifyCounterpart(ctx, chat, sender)
	return msg, nil
}

// notifyCounterpart 通知失败不影响消息发送
func (s *chatService) notifyCounterpart(ctx context.Context, chat *model.Chat, sender Participant) {
	if s.opts.Notifier == nil {
		return
	}
	title := ""
	if s.opts.Posts != nil {
		post, err := s.opts.Posts.GetPost(ctx, chat.PostID)
		if err != nil {
			s.opts.Logger.Warn("message notification skipped",
				zap.String("chat_id", chat.ID), zap.Error(err))
			return
		}
		title = post.Title
	}

	to, _ := chat.Counterpart(sender.ID)
	s.opts.Notifier.Notify(ctx, to, notifymodel.TypeMessage,
		notifymodel.MessageContent(sender.Name, title), notifymodel.ChatLink(chat.PostID))
}

func (s *chatService) ListChatsForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *chatService) GetChat(ctx context.Context, chatID, viewerID string) (*model.Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(viewerID) {
		return nil, errs.ErrForbidden
	}
	return chat, nil
}
