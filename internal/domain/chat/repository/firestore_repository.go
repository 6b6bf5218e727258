package repository

import (
	"context"
	"errors"
	"fmt"

	"campusfind/internal/domain/chat/model"
	"campusfind/pkg/database"
	"campusfind/pkg/errs"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// chats/{postId_pairKey}，消息存放在 chats/{chatId}/messages
type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository Firestore 实现。会话文档 ID 由 (PostID, PairKey) 决定，
// 以 Create 的 AlreadyExists 保证唯一。
func NewFirestoreRepository(client *firestore.Client) ChatRepository {
	return &firestoreRepository{client: client}
}

// DocID 会话文档 ID
func DocID(postID, pairKey string) string {
	return postID + "_" + pairKey
}

func (r *firestoreRepository) chatDoc(id string) *firestore.DocumentRef {
	return r.client.Collection("chats").Doc(id)
}

func (r *firestoreRepository) messages(chatID string) *firestore.CollectionRef {
	return r.chatDoc(chatID).Collection("messages")
}

func decodeChat(doc *firestore.DocumentSnapshot) (*model.Chat, error) {
	var c model.Chat
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", doc.Ref.ID, err)
	}
	c.ID = doc.Ref.ID
	c.Messages = []model.Message{}
	return &c, nil
}

func (r *firestoreRepository) GetOrCreate(ctx context.Context, chat *model.Chat) (*model.Chat, bool, error) {
	chat.ID = DocID(chat.PostID, chat.PairKey)
	chat.Members = chat.Participants()

	_, err := r.chatDoc(chat.ID).Create(ctx, chat)
	if err == nil {
		chat.Messages = []model.Message{}
		return chat, true, nil
	}
	if !database.IsFirestoreAlreadyExists(err) {
		return nil, false, fmt.Errorf("create chat: %w", err)
	}

	doc, err := r.chatDoc(chat.ID).Get(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("get chat: %w", err)
	}
	existing, err := decodeChat(doc)
	return existing, false, err
}

func (r *firestoreRepository) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	doc, err := r.chatDoc(id).Get(ctx)
	if database.IsFirestoreNotFound(err) {
		return nil, errs.NotFound("chat")
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	chat, err := decodeChat(doc)
	if err != nil {
		return nil, err
	}
	if chat.Messages, err = r.listMessages(ctx, id); err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *firestoreRepository) listMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	iter := r.messages(chatID).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	list := make([]model.Message, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		var m model.Message
		if err := doc.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", doc.Ref.ID, err)
		}
		m.ID = doc.Ref.ID
		list = append(list, m)
	}
	return list, nil
}

func (r *firestoreRepository) AddMessage(ctx context.Context, msg *model.Message) (*model.Chat, error) {
	var chat *model.Chat
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(r.chatDoc(msg.ChatID))
		if database.IsFirestoreNotFound(err) {
			return errs.NotFound("chat")
		}
		if err != nil {
			return err
		}
		if chat, err = decodeChat(snap); err != nil {
			return err
		}

		if err := tx.Create(r.messages(msg.ChatID).Doc(msg.ID), msg); err != nil {
			return err
		}
		ts := msg.Timestamp
		chat.LastMessageAt = &ts
		return tx.Update(r.chatDoc(msg.ChatID), []firestore.Update{
			{Path: "lastMessageAt", Value: ts},
		})
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("add message: %w", err)
	}
	return chat, nil
}

func (r *firestoreRepository) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	iter := r.client.Collection("chats").Where("participants", "array-contains", userID).Documents(ctx)
	defer iter.Stop()

	list := make([]model.Chat, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list chats: %w", err)
		}
		c, err := decodeChat(doc)
		if err != nil {
			return nil, err
		}
		if c.Messages, err = r.listMessages(ctx, c.ID); err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	sortByRecent(list)
	return list, nil
}
