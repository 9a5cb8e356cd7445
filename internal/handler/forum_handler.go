package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/golazo/internal/middleware"
	"github.com/hitoshi/golazo/internal/model"
)

// ForumServiceInterface はフォーラムハンドラーが必要とするサービスインターフェース。
type ForumServiceInterface interface {
	// CreatePost は新しいフォーラム投稿を作成し、ストアが採番したキーを返す。
	CreatePost(ctx context.Context, userID, title, content string) (*model.PostRef, error)
	// AddComment は投稿にコメントを追記する。
	AddComment(ctx context.Context, postID, userID, comment string) error
}

// ForumHandler はフォーラム投稿・コメントのHTTPハンドラー。
type ForumHandler struct {
	service  ForumServiceInterface
	validate *validator.Validate
}

// NewForumHandler はForumHandlerを生成する。
func NewForumHandler(service ForumServiceInterface) *ForumHandler {
	return &ForumHandler{
		service:  service,
		validate: validator.New(),
	}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=10000"`
}

// addCommentRequest はコメント追記リクエストのボディ。
type addCommentRequest struct {
	Comment string `json:"comment" validate:"required,max=2000"`
}

// ackResponse は書き込み系ルートの成功応答。
type ackResponse struct {
	Status string `json:"status"`
}

// CreatePost はフォーラム投稿を作成する。
// POST /forum/post
func (h *ForumHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	claim, err := middleware.ClaimFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	ref, err := h.service.CreatePost(r.Context(), claim.UID, req.Title, req.Content)
	if err != nil {
		handleDelegateError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ref)
}

// AddComment は投稿にコメントを追記する。
// POST /forum/post/{postId}/comment
func (h *ForumHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	claim, err := middleware.ClaimFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	postID := chi.URLParam(r, "postId")

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "comment is required")
		return
	}

	if err := h.service.AddComment(r.Context(), postID, claim.UID, req.Comment); err != nil {
		handleDelegateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Status: "success"})
}
