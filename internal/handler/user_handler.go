package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/golazo/internal/middleware"
	"github.com/hitoshi/golazo/internal/model"
)

// UserProfileService はプロフィールハンドラーが必要とするサービスインターフェース。
type UserProfileService interface {
	// GetUserProfile はプロフィールを読み取る。未登録の場合はnilを返す。
	GetUserProfile(ctx context.Context, userID string) (*model.User, error)
	// UpdateUserProfile はプロフィールをマージ更新する。
	UpdateUserProfile(ctx context.Context, userID string, partial map[string]any) error
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserProfileService
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserProfileService) *UserHandler {
	return &UserHandler{service: service}
}

// updatableProfileFields はマージ更新で受け付けるフィールド。
// uidは認証済みIDと不可分なので書き換え不可。
var updatableProfileFields = map[string]struct{}{
	"email":            {},
	"username":         {},
	"favorite_teams":   {},
	"favorite_leagues": {},
}

// GetProfile は認証済みユーザー自身のプロフィールを返す。
// GET /user/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claim, err := middleware.ClaimFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetUserProfile(r.Context(), claim.UID)
	if err != nil {
		handleDelegateError(w, err)
		return
	}
	if user == nil {
		middleware.WriteAPIError(w, model.NewProfileNotFoundError())
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile は認証済みユーザー自身のプロフィールをマージ更新する。
// 受け付け可能なフィールドのみ反映し、それ以外のキーは無視する。
// PATCH /user/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claim, err := middleware.ClaimFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	partial := make(map[string]any, len(body))
	for key, value := range body {
		if _, ok := updatableProfileFields[key]; ok {
			partial[key] = value
		}
	}
	if len(partial) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "no updatable fields supplied")
		return
	}

	if err := h.service.UpdateUserProfile(r.Context(), claim.UID, partial); err != nil {
		handleDelegateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{Status: "success"})
}
