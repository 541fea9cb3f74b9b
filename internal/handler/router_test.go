package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/task"
)

// mockSessionFinderForRouter はRouter統合テスト用のSessionFinderモック。
type mockSessionFinderForRouter struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinderForRouter) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

// mockHealthChecker はヘルスチェック用のDBモック。
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

// mockCachePinger はヘルスチェック用のキャッシュモック。
type mockCachePinger struct {
	pingErr error
}

func (m *mockCachePinger) Ping(ctx context.Context) error {
	return m.pingErr
}

// routerTestSigner はルーターテストで共有するCookie署名器。
var routerTestSigner = middleware.NewCookieSigner("router-test-secret")

// createTestRouter はテスト用の完全なルーターを構築するヘルパー。
func createTestRouter() (http.Handler, *mockSessionFinderForRouter) {
	sessionFinder := &mockSessionFinderForRouter{
		sessions: map[string]*model.Session{
			"valid-session": {
				ID:        "valid-session",
				UserID:    "user-test-1",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			},
		},
	}

	deps := &RouterDeps{
		HealthChecker: &mockHealthChecker{},
		CachePinger:   &mockCachePinger{},
		SessionFinder: sessionFinder,
		SessionSigner: routerTestSigner,
		CSRFConfig:    middleware.CSRFConfig{CookieSecure: false},
		RateLimiter:   middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		AuthService: &mockAuthService{
			getLoginURLFn: func(state string) string {
				return "https://accounts.google.com?state=" + state
			},
			getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
				return &model.User{ID: "user-test-1", Email: "test@example.com", Name: "Test"}, nil
			},
		},
		AuthConfig: AuthHandlerConfig{BaseURL: "http://localhost:3000", SessionMaxAge: 86400, Signer: routerTestSigner},
		TaskService: &mockTaskService{
			listFn: func(ctx context.Context, userID string) ([]model.Task, error) {
				return []model.Task{}, nil
			},
			createFn: func(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error) {
				return &model.Task{
					ID:     "task-test-1",
					UserID: userID,
					Title:  input.Title,
					Status: model.TaskStatusOpen,
				}, nil
			},
		},
		SuggestionService: &mockSuggestionService{
			suggestFn: func(ctx context.Context, userID, prompt string) (string, error) {
				return "Break the work into smaller steps.", nil
			},
		},
	}

	router := NewRouter(deps)
	return router, sessionFinder
}

// TestNewRouter_HealthEndpoint はヘルスチェックが認証不要で200を返すことを検証する。
func TestNewRouter_HealthEndpoint(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

// TestNewRouter_HealthEndpoint_DatabaseDown はDB疎通不可で503が返ることを検証する。
func TestNewRouter_HealthEndpoint_DatabaseDown(t *testing.T) {
	sessionFinder := &mockSessionFinderForRouter{sessions: map[string]*model.Session{}}
	deps := &RouterDeps{
		HealthChecker: &mockHealthChecker{pingErr: errors.New("connection refused")},
		SessionFinder: sessionFinder,
		SessionSigner: routerTestSigner,
		RateLimiter:   middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		AuthService:   &mockAuthService{},
	}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /health status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body["database"] != "down" {
		t.Errorf("database = %q, want %q", body["database"], "down")
	}
}

// TestNewRouter_HealthEndpoint_CacheDown_Degraded はキャッシュ疎通不可でも
// degradedとして200が返ることを検証する。
func TestNewRouter_HealthEndpoint_CacheDown_Degraded(t *testing.T) {
	sessionFinder := &mockSessionFinderForRouter{sessions: map[string]*model.Session{}}
	deps := &RouterDeps{
		HealthChecker: &mockHealthChecker{},
		CachePinger:   &mockCachePinger{pingErr: errors.New("redis unreachable")},
		SessionFinder: sessionFinder,
		SessionSigner: routerTestSigner,
		RateLimiter:   middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()),
		AuthService:   &mockAuthService{},
	}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body["status"] != "degraded" {
		t.Errorf("status = %q, want %q", body["status"], "degraded")
	}
	if body["cache"] != "down" {
		t.Errorf("cache = %q, want %q", body["cache"], "down")
	}
}

// TestNewRouter_CSRFTokenEndpoint は認証済みセッションでCSRFトークンが取得できることを検証する。
func TestNewRouter_CSRFTokenEndpoint(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("GET /api/csrf-token status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(w.Result().Body).Decode(&body)
	if body["token"] == "" {
		t.Error("expected non-empty CSRF token")
	}
}

// TestNewRouter_AuthRoutes_LoginEndpoint は認証ルートが正しく設定されていることを検証する。
func TestNewRouter_AuthRoutes_LoginEndpoint(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("GET /auth/google/login status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
}

// TestNewRouter_AuthRoutes_MeEndpoint はGET /auth/meが正しくルーティングされることを検証する。
func TestNewRouter_AuthRoutes_MeEndpoint(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /auth/me status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

// TestNewRouter_ProtectedRoute_NoSession_Returns401 は
// 認証保護ルートにセッションなしでアクセスすると401が返ることを検証する。
func TestNewRouter_ProtectedRoute_NoSession_Returns401(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /api/tasks (no session) status = %d, want %d",
			w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestNewRouter_ProtectedRoute_WithSession_GET_Succeeds は
// 認証保護ルートにセッション付きGETリクエストが成功することを検証する。
func TestNewRouter_ProtectedRoute_WithSession_GET_Succeeds(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("GET /api/tasks status = %d, want %d",
			w.Result().StatusCode, http.StatusOK)
	}
}

// TestNewRouter_ProtectedRoute_POST_RequiresCSRF は
// POSTリクエストにCSRFトークンが必須であることを検証する。
func TestNewRouter_ProtectedRoute_POST_RequiresCSRF(t *testing.T) {
	router, _ := createTestRouter()

	body := `{"title": "Write the report"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("POST /api/tasks (no CSRF) status = %d, want %d",
			w.Result().StatusCode, http.StatusForbidden)
	}
}

// TestNewRouter_ProtectedRoute_POST_WithCSRF_Succeeds は
// POSTリクエストにCSRFトークン付きでアクセスが成功することを検証する。
func TestNewRouter_ProtectedRoute_POST_WithCSRF_Succeeds(t *testing.T) {
	router, _ := createTestRouter()

	body := `{"title": "Write the report"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
	req.Header.Set("X-CSRF-Token", "test-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("POST /api/tasks (with CSRF) status = %d, want %d",
			w.Result().StatusCode, http.StatusCreated)
	}
}

// TestNewRouter_MiddlewareOrder_SessionBeforeCSRF は
// セッション検証がCSRF検証より先に実行されることを検証する。
func TestNewRouter_MiddlewareOrder_SessionBeforeCSRF(t *testing.T) {
	router, _ := createTestRouter()

	body := `{"title": "x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("POST (no session, no CSRF) status = %d, want %d (session check before CSRF)",
			w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// TestNewRouter_TaskRoutes_AllEndpoints はタスク関連の全エンドポイントが登録されていることを検証する。
func TestNewRouter_TaskRoutes_AllEndpoints(t *testing.T) {
	router, _ := createTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/tasks", ""},
		{http.MethodPost, "/api/tasks", `{"title": "t"}`},
		{http.MethodPut, "/api/tasks/3f1f2c9a-89f8-4f2e-9d57-2d9b1f0a1c11", `{"title": "t"}`},
		{http.MethodDelete, "/api/tasks/3f1f2c9a-89f8-4f2e-9d57-2d9b1f0a1c11", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
			req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
			req.Header.Set("X-CSRF-Token", "test-token")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Result().StatusCode == http.StatusNotFound {
				t.Errorf("%s %s returned 404, route not found", tt.method, tt.path)
			}
		})
	}
}

// TestNewRouter_SuggestionRoute はAI提案エンドポイントが登録されていることを検証する。
func TestNewRouter_SuggestionRoute(t *testing.T) {
	router, _ := createTestRouter()

	body := `{"prompt": "What should I do first?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ai/suggestions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
	req.Header.Set("X-CSRF-Token", "test-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("POST /api/ai/suggestions status = %d, want %d",
			w.Result().StatusCode, http.StatusOK)
	}

	var resp map[string]string
	json.NewDecoder(w.Result().Body).Decode(&resp)
	if resp["suggestion"] == "" {
		t.Error("expected non-empty suggestion")
	}
}

// TestNewRouter_PageRoutes_GuardRedirects はページルートのセッションガードによる
// リダイレクト制御を検証する。
func TestNewRouter_PageRoutes_GuardRedirects(t *testing.T) {
	router, _ := createTestRouter()

	tests := []struct {
		name       string
		path       string
		withCookie bool
		wantStatus int
		wantLoc    string
	}{
		{"未認証でダッシュボードはログインへ", "/dashboard", false, http.StatusFound, "/"},
		{"未認証でランディングは表示", "/", false, http.StatusOK, ""},
		{"認証済みでランディングはダッシュボードへ", "/", true, http.StatusFound, "/dashboard"},
		{"認証済みでダッシュボードは表示", "/dashboard", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.withCookie {
				req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
			if tt.wantLoc != "" {
				if loc := resp.Header.Get("Location"); loc != tt.wantLoc {
					t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
				}
			}
		})
	}
}

// TestNewRouter_UnknownRoute_Returns404 は存在しないルートに404が返ることを検証する。
func TestNewRouter_UnknownRoute_Returns404(t *testing.T) {
	router, _ := createTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: routerTestSigner.Sign("valid-session")})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/unknown status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}
