// Package forum はフォーラム投稿・コメント・ユーザープロフィールの
// ストア転送サービスを提供する。耐久状態は外部ストアが所有し、
// 本サービス自体はリクエスト間で状態を持たない。
package forum

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/golazo/internal/model"
	"github.com/hitoshi/golazo/internal/store"
)

// ストア内のツリーパス。
const (
	postsPath = "forum_posts"
	usersPath = "users"
)

// Sanitizer はユーザー投稿テキストのサニタイズに必要なインターフェース。
// security.ContentSanitizerService の部分集合として定義する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Service はフォーラム関連のストア操作を提供する。
type Service struct {
	tree      store.TreeClient
	sanitizer Sanitizer
	logger    *slog.Logger
	now       func() time.Time // テスト用に差し替え可能な時計
}

// NewService はServiceを生成する。
func NewService(tree store.TreeClient, sanitizer Sanitizer, logger *slog.Logger) *Service {
	return &Service{
		tree:      tree,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePost は新しいフォーラム投稿をストアに追記し、採番されたキーを返す。
// レコードはサーバー側で組み立てる: created_atは現在時刻、likes=0、comments=[]。
func (s *Service) CreatePost(ctx context.Context, userID, title, content string) (*model.PostRef, error) {
	post := model.ForumPost{
		UserID:    userID,
		Title:     s.sanitizer.Sanitize(title),
		Content:   s.sanitizer.Sanitize(content),
		CreatedAt: s.now().Format(time.RFC3339),
		Likes:     0,
		Comments:  []model.Comment{},
	}

	key, err := s.tree.Push(ctx, postsPath, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create forum post: %w", err)
	}

	s.logger.Info("forum post created",
		slog.String("post_id", key),
		slog.String("user_id", userID),
	)

	return &model.PostRef{Name: key}, nil
}

// GetPost は投稿を1件読み取る。存在しない場合はnilを返す。
func (s *Service) GetPost(ctx context.Context, postID string) (*model.ForumPost, error) {
	var post *model.ForumPost
	if err := s.tree.Get(ctx, postsPath+"/"+postID, &post); err != nil {
		return nil, fmt.Errorf("failed to get forum post: %w", err)
	}
	return post, nil
}

// AddComment は投稿のコメント配列にコメントを追記する。
//
// この操作は非アトミックな read-modify-write である:
// 現在のコメント配列を読み取り、末尾に追記し、配列全体を書き戻す。
// 楽観ロックもトランザクションも行わないため、同一投稿への同時追記は
// 後勝ち（last-writer-wins）になり、一方のコメントが失われうる。
func (s *Service) AddComment(ctx context.Context, postID, userID, comment string) error {
	path := postsPath + "/" + postID + "/comments"

	var comments []model.Comment
	if err := s.tree.Get(ctx, path, &comments); err != nil {
		return fmt.Errorf("failed to read comments: %w", err)
	}

	comments = append(comments, model.Comment{
		UserID:    userID,
		Comment:   s.sanitizer.Sanitize(comment),
		CreatedAt: s.now().Format(time.RFC3339),
	})

	if err := s.tree.Set(ctx, path, comments); err != nil {
		return fmt.Errorf("failed to write comments: %w", err)
	}

	s.logger.Info("comment added",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
		slog.Int("comment_count", len(comments)),
	)

	return nil
}

// GetUserProfile はユーザープロフィールを読み取る。未登録の場合はnilを返す。
func (s *Service) GetUserProfile(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	if err := s.tree.Get(ctx, usersPath+"/"+userID, &user); err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return user, nil
}

// UpdateUserProfile はユーザープロフィールをマージ更新する。
// 指定されたフィールドのみ変更され、他のフィールドは保持される。
func (s *Service) UpdateUserProfile(ctx context.Context, userID string, partial map[string]any) error {
	if len(partial) == 0 {
		return fmt.Errorf("no fields to update")
	}
	if err := s.tree.Update(ctx, usersPath+"/"+userID, partial); err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}
