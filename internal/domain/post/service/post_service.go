package service

import (
	"context"
	"strings"
	"time"

	notifymodel "campusfind/internal/domain/notification/model"
	notifyservice "campusfind/internal/domain/notification/service"
	"campusfind/internal/domain/post/model"
	"campusfind/internal/domain/post/repository"
	"campusfind/pkg/errs"
	"campusfind/pkg/metrics"
	basemodel "campusfind/pkg/model"

	"go.uber.org/zap"
)

// Author 发帖/回复人（显示名在写入时快照）
type Author struct {
	ID      string
	Name    string
	IsAdmin bool
}

// CreatePostInput 发帖参数
type CreatePostInput struct {
	PostType     model.PostType
	Title        string
	Description  string
	Location     string
	Date         time.Time
	ItemImageURL string
}

// PostService 帖子服务接口
type PostService interface {
	CreatePost(ctx context.Context, author Author, in CreatePostInput) (*model.Post, error)
	// ListOpenPosts 未过期的帖子，按创建时间倒序
	ListOpenPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id string) (*model.Post, error)
	// GetPostWithReplies 回复按创建时间升序
	GetPostWithReplies(ctx context.Context, id string) (*model.Post, []model.Reply, error)
	// AddReply 非本人回复时通知帖主
	AddReply(ctx context.Context, postID string, author Author, message, parentReplyID string) (*model.Reply, error)
	ResolvePost(ctx context.Context, postID string, actor Author) (*model.Post, error)
	// DeletePost 帖主或管理员可删，级联删除回复与会话
	DeletePost(ctx context.Context, postID string, actor Author) error
}

// Options 帖子服务依赖
type Options struct {
	Notifier notifyservice.Emitter
	TTL      time.Duration // 默认 model.TTL
	Logger   *zap.Logger
	Metrics  *metrics.Collector
	Clock    basemodel.Clock
}

type postService struct {
	repo repository.PostRepository
	opts Options
}

// NewPostService 创建帖子服务
func NewPostService(repo repository.PostRepository, opts Options) PostService {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = model.TTL
	}
	return &postService{repo: repo, opts: opts}
}

func (s *postService) CreatePost(ctx context.Context, author Author, in CreatePostInput) (*model.Post, error) {
	if in.PostType != model.TypeLost && in.PostType != model.TypeFound {
		return nil, errs.Validation("postType must be lost or found")
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	location := strings.TrimSpace(in.Location)
	if title == "" || description == "" || location == "" {
		return nil, errs.Validation("title, description and location are required")
	}
	if in.Date.IsZero() {
		return nil, errs.Validation("date is required")
	}
	if author.ID == "" {
		return nil, errs.Validation("author is required")
	}

	now := s.opts.Clock.Now()
	post := &model.Post{
		ID:           basemodel.NewID(),
		PostType:     in.PostType,
		Title:        title,
		Description:  description,
		Location:     location,
		Date:         in.Date,
		ItemImageURL: strings.TrimSpace(in.ItemImageURL),
		PostedBy:     author.ID,
		PostedByName: author.Name,
		Status:       model.StatusOpen,
		ReplyCount:   0,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.opts.TTL),
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) ListOpenPosts(ctx context.Context) ([]model.Post, error) {
	return s.repo.ListActive(ctx, s.opts.Clock.Now())
}

func (s *postService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return s.repo.GetPost(ctx, id)
}

func (s *postService) GetPostWithReplies(ctx context.Context, id string) (*model.Post, []model.Reply, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	replies, err := s.repo.ListReplies(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return post, replies, nil
}

func (s *postService) AddReply(ctx context.Context, postID string, author Author, message, parentReplyID string) (*model.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errs.Validation("message is required")
	}
	if author.ID == "" {
		return nil, errs.Validation("author is required")
	}

	reply := &model.Reply{
		ID:            basemodel.NewID(),
		PostID:        postID,
		ParentReplyID: strings.TrimSpace(parentReplyID),
		RepliedBy:     author.ID,
		RepliedByName: author.Name,
		Message:       message,
		CreatedAt:     s.opts.Clock.Now(),
	}
	post, err := s.repo.AddReply(ctx, reply)
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.Reply()

	// 回复自己的帖子不通知
	if author.ID != post.PostedBy && s.opts.Notifier != nil {
		s.opts.Notifier.Notify(ctx, post.PostedBy, notifymodel.TypeReply,
			notifymodel.ReplyContent(author.Name, post.Title), notifymodel.PostLink(post.ID))
	}
	return reply, nil
}

func (s *postService) ResolvePost(ctx context.Context, postID string, actor Author) (*model.Post, error) {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.PostedBy != actor.ID {
		return nil, errs.ErrForbidden
	}
	if post.Status == model.StatusResolved {
		return post, nil
	}
	return s.repo.UpdateStatus(ctx, postID, model.StatusResolved)
}

func (s *postService) DeletePost(ctx context.Context, postID string, actor Author) error {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && post.PostedBy != actor.ID {
		return errs.ErrForbidden
	}
	if err := s.repo.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.opts.Logger.Info("post deleted", zap.String("post_id", postID), zap.String("by", actor.ID))
	return nil
}
