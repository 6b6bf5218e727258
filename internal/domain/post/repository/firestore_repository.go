package repository

import (
	"context"
	"fmt"
	"time"

	"campusfind/internal/domain/post/model"
	"campusfind/pkg/database"
	"campusfind/pkg/errs"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// posts/{postId}、posts/{postId}/replies/{replyId}、chats/{chatId}/messages/{messageId}
const (
	postsCollection    = "posts"
	repliesCollection  = "replies"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository Firestore 实现
func NewFirestoreRepository(client *firestore.Client) PostRepository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) postDoc(id string) *firestore.DocumentRef {
	return r.client.Collection(postsCollection).Doc(id)
}

func (r *firestoreRepository) replies(postID string) *firestore.CollectionRef {
	return r.postDoc(postID).Collection(repliesCollection)
}

func decodePost(doc *firestore.DocumentSnapshot) (*model.Post, error) {
	var p model.Post
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", doc.Ref.ID, err)
	}
	p.ID = doc.Ref.ID
	return &p, nil
}

func (r *firestoreRepository) CreatePost(ctx context.Context, post *model.Post) error {
	if _, err := r.postDoc(post.ID).Create(ctx, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *firestoreRepository) GetPost(ctx context.Context, id string) (*model.Post, error) {
	doc, err := r.postDoc(id).Get(ctx)
	if database.IsFirestoreNotFound(err) {
		return nil, errs.NotFound("post")
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return decodePost(doc)
}

func (r *firestoreRepository) ListActive(ctx context.Context, now time.Time) ([]model.Post, error) {
	// 不等式过滤只能按 expiresAt 排序，createdAt 倒序在内存中完成
	iter := r.client.Collection(postsCollection).Where("expiresAt", ">", now).Documents(ctx)
	defer iter.Stop()

	list := make([]model.Post, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		p, err := decodePost(doc)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	sortByCreatedDesc(list)
	return list, nil
}

func (r *firestoreRepository) ListReplies(ctx context.Context, postID string) ([]model.Reply, error) {
	iter := r.replies(postID).OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	list := make([]model.Reply, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list replies: %w", err)
		}
		var rp model.Reply
		if err := doc.DataTo(&rp); err != nil {
			return nil, fmt.Errorf("decode reply %s: %w", doc.Ref.ID, err)
		}
		rp.ID = doc.Ref.ID
		list = append(list, rp)
	}
	return list, nil
}

func (r *firestoreRepository) AddReply(ctx context.Context, reply *model.Reply) (*model.Post, error) {
	var post *model.Post
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(r.postDoc(reply.PostID))
		if database.IsFirestoreNotFound(err) {
			return errs.NotFound("post")
		}
		if err != nil {
			return err
		}
		if post, err = decodePost(snap); err != nil {
			return err
		}

		if reply.ParentReplyID != "" {
			_, err := tx.Get(r.replies(reply.PostID).Doc(reply.ParentReplyID))
			if database.IsFirestoreNotFound(err) {
				return ErrInvalidParent
			}
			if err != nil {
				return err
			}
		}

		if err := tx.Create(r.replies(reply.PostID).Doc(reply.ID), reply); err != nil {
			return err
		}
		post.ReplyCount++
		return tx.Update(r.postDoc(reply.PostID), []firestore.Update{
			{Path: "replyCount", Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		return nil, wrapTxError("add reply", err)
	}
	return post, nil
}

func (r *firestoreRepository) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Post, error) {
	_, err := r.postDoc(id).Update(ctx, []firestore.Update{{Path: "status", Value: status}})
	if database.IsFirestoreNotFound(err) {
		return nil, errs.NotFound("post")
	}
	if err != nil {
		return nil, fmt.Errorf("update post status: %w", err)
	}
	return r.GetPost(ctx, id)
}

func (r *firestoreRepository) DeletePost(ctx context.Context, id string) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// 事务内先完成全部读取再写入
		if _, err := tx.Get(r.postDoc(id)); err != nil {
			if database.IsFirestoreNotFound(err) {
				return errs.NotFound("post")
			}
			return err
		}

		replyRefs, err := refs(tx.Documents(r.replies(id)))
		if err != nil {
			return err
		}
		chatRefs, err := refs(tx.Documents(r.client.Collection(chatsCollection).Where("postId", "==", id)))
		if err != nil {
			return err
		}
		var messageRefs []*firestore.DocumentRef
		for _, c := range chatRefs {
			m, err := refs(tx.Documents(c.Collection(messagesCollection)))
			if err != nil {
				return err
			}
			messageRefs = append(messageRefs, m...)
		}

		for _, group := range [][]*firestore.DocumentRef{messageRefs, chatRefs, replyRefs} {
			for _, ref := range group {
				if err := tx.Delete(ref); err != nil {
					return err
				}
			}
		}
		return tx.Delete(r.postDoc(id))
	})
	if err != nil {
		return wrapTxError("delete post", err)
	}
	return nil
}

func refs(iter *firestore.DocumentIterator) ([]*firestore.DocumentRef, error) {
	defer iter.Stop()

	var out []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Ref)
	}
}
