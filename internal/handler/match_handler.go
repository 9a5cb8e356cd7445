package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/golazo/internal/football"
	"github.com/hitoshi/golazo/internal/middleware"
)

// MatchProvider は試合ハンドラーが必要とするクライアントインターフェース。
// football.Clientの部分集合として定義する。
type MatchProvider interface {
	// Matches は試合一覧を取得する。dateが空の場合は日付フィルタなし。
	Matches(ctx context.Context, date string) (*football.MatchesPage, error)
	// LiveMatches はライブ中の試合一覧を取得する。
	LiveMatches(ctx context.Context) (*football.MatchesPage, error)
	// TodaysMatches は今日の試合一覧を取得する。
	TodaysMatches(ctx context.Context) (*football.MatchesPage, error)
	// Today は今日の日付をYYYY-MM-DD形式で返す。
	Today() string
	// Standings は大会の順位表をプロバイダーのJSONのまま返す。
	Standings(ctx context.Context, competitionID string) (json.RawMessage, error)
}

// MatchHandler は試合・順位表のHTTPハンドラー。
type MatchHandler struct {
	provider MatchProvider
}

// NewMatchHandler はMatchHandlerを生成する。
func NewMatchHandler(provider MatchProvider) *MatchHandler {
	return &MatchHandler{provider: provider}
}

// matchesResponse は試合一覧ルートの成功エンベロープ。
type matchesResponse struct {
	Status  string            `json:"status"`
	Matches []json.RawMessage `json:"matches"`
	Count   int               `json:"count"`
	Date    string            `json:"date,omitempty"`
}

// newMatchesResponse は取得結果からエンベロープを組み立てる。
// 個々の試合レコードはプロバイダーのJSONをそのまま通す。
func newMatchesResponse(page *football.MatchesPage, date string) matchesResponse {
	matches := page.Matches
	if matches == nil {
		matches = []json.RawMessage{}
	}
	return matchesResponse{
		Status:  "success",
		Matches: matches,
		Count:   len(matches),
		Date:    date,
	}
}

// ListLiveMatches はライブ中の試合一覧を返す。
// GET /matches/live
func (h *MatchHandler) ListLiveMatches(w http.ResponseWriter, r *http.Request) {
	page, err := h.provider.LiveMatches(r.Context())
	if err != nil {
		handleDelegateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchesResponse(page, ""))
}

// ListTodaysMatches は今日の試合一覧を返す。
// GET /matches/today
func (h *MatchHandler) ListTodaysMatches(w http.ResponseWriter, r *http.Request) {
	page, err := h.provider.TodaysMatches(r.Context())
	if err != nil {
		handleDelegateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchesResponse(page, h.provider.Today()))
}

// ListMatchesByDate は指定日の試合一覧を返す。
// GET /matches/date/{date}
func (h *MatchHandler) ListMatchesByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if date == "" {
		middleware.WriteError(w, http.StatusBadRequest, "date is required")
		return
	}

	page, err := h.provider.Matches(r.Context(), date)
	if err != nil {
		handleDelegateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMatchesResponse(page, date))
}

// GetStandings は大会の順位表を返す。プロバイダーのJSONを加工せずに通す。
// GET /standings/{competitionId}
func (h *MatchHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionId")

	standings, err := h.provider.Standings(r.Context(), competitionID)
	if err != nil {
		handleDelegateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(standings)
}
