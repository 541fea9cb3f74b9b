package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// SuggestionServiceInterface はAI提案ハンドラーが必要とするサービスインターフェース。
type SuggestionServiceInterface interface {
	Suggest(ctx context.Context, userID, prompt string) (string, error)
}

// SuggestionHandler はAI提案のHTTPハンドラー。
type SuggestionHandler struct {
	service SuggestionServiceInterface
}

// NewSuggestionHandler はSuggestionHandlerを生成する。
func NewSuggestionHandler(service SuggestionServiceInterface) *SuggestionHandler {
	return &SuggestionHandler{service: service}
}

// suggestionRequest はAI提案リクエストのボディ。
// Contextは任意の補足情報で、指定された場合プロンプトの末尾に付加される。
type suggestionRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
}

// suggestionResponse はAI提案のAPIレスポンス。
type suggestionResponse struct {
	Suggestion string `json:"suggestion"`
}

// Suggest はユーザーのタスク状況を踏まえたAI提案を返す。
// POST /api/ai/suggestions
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req suggestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	prompt := req.Prompt
	// contextはprompt必須チェックの代わりにはならない
	if strings.TrimSpace(prompt) != "" && req.Context != "" {
		prompt += "\n\nContext: " + req.Context
	}

	suggestion, err := h.service.Suggest(r.Context(), userID, prompt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestionResponse{Suggestion: suggestion})
}
