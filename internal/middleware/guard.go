package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// GuardConfig はページ遷移ガードの設定。
type GuardConfig struct {
	// LoginPath は未認証ユーザーの誘導先（ランディングページ）。
	LoginPath string
	// HomePath は認証済みユーザーの誘導先（ダッシュボード）。
	HomePath string
	// CallbackPathPrefix はOAuthコールバックのパスプレフィックス。
	// 認証フロー完了前のリクエストのため常に素通しする。
	CallbackPathPrefix string
}

// DefaultGuardConfig はデフォルトのガード設定を返す。
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		LoginPath:          "/",
		HomePath:           "/dashboard",
		CallbackPathPrefix: "/auth/callback",
	}
}

// NewSessionGuard はページルート用のセッションガードを返す。
// APIルートの401応答とは異なり、ブラウザ遷移を前提にリダイレクトで誘導する。
//   - セッションなしでランディング以外へのアクセス → ランディングへリダイレクト
//   - セッションありでランディングへのアクセス → ダッシュボードへリダイレクト
//   - OAuthコールバックは常に素通し
//
// セッション解決が障害で失敗した場合はリクエストを通す。ページの表示を
// 止めるより、後続のAPI呼び出しの401に判断を委ねる。
func NewSessionGuard(sessionFinder SessionFinder, signer *CookieSigner, config GuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. コールバックは認証状態に関わらず通す
			if strings.HasPrefix(r.URL.Path, config.CallbackPathPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			// 2. Cookieのセッションを解決する
			// 署名の不一致は未認証扱いにする（フェイルオープンの対象外）
			authenticated := false
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				if sessionID, ok := signer.Verify(cookie.Value); ok {
					session, err := sessionFinder.FindByID(r.Context(), sessionID)
					if err != nil {
						// 解決障害時はフェイルオープンで通す
						slog.Warn("session guard failed to resolve session, passing through",
							slog.String("error", err.Error()),
						)
						next.ServeHTTP(w, r)
						return
					}
					authenticated = session != nil
				}
			}

			// 3. リダイレクト規則を適用する
			if !authenticated && r.URL.Path != config.LoginPath {
				http.Redirect(w, r, config.LoginPath, http.StatusFound)
				return
			}
			if authenticated && r.URL.Path == config.LoginPath {
				http.Redirect(w, r, config.HomePath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
