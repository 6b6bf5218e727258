package database

import (
	"context"
	"fmt"
	"log"
	"os"

	"campusfind/internal/pkg/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InitFirestore 通过 Firebase Admin SDK 创建 Firestore 客户端
func InitFirestore(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase credentials file not found at %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore: %w", err)
	}

	log.Println("Firestore client initialized")
	return client, nil
}

// IsFirestoreNotFound 文档不存在
func IsFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsFirestoreAlreadyExists Create 时文档已存在
func IsFirestoreAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}
