// Package suggest はAIプロバイダーを使ったタスク提案機能を提供する。
// チャット補完APIの呼び出しと、ユーザーのタスク状況を踏まえた提案生成を含む。
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultEndpoint はxAIチャット補完APIのエンドポイント。
	defaultEndpoint = "https://api.x.ai/v1/chat/completions"
)

// ChatMessage はチャット補完APIのメッセージ。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest はチャット補完APIのリクエストボディ。
type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// chatCompletionResponse はチャット補完APIのレスポンスボディ。
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client はチャット補完APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	maxTokens  int
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Endpoint  string // 空の場合はデフォルトを使用
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig) *Client {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     config.APIKey,
		model:      config.Model,
		maxTokens:  config.MaxTokens,
		endpoint:   endpoint,
	}
}

// Complete はメッセージ列を送信し、生成された応答テキストを取得する。
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	// 1. リクエストボディ構築
	reqBody := chatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	// 2. HTTPリクエスト作成
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// 3. HTTPリクエスト実行
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("チャット補完APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	// 4. HTTPステータスチェック
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("チャット補完APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("チャット補完APIがステータス %d を返しました", resp.StatusCode)
	}

	// 5. JSONデコード
	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("チャット補完APIがエラーを返しました: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("チャット補完APIの応答に候補が含まれていません")
	}

	return result.Choices[0].Message.Content, nil
}
