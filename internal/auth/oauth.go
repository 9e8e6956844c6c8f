package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"campus-market/internal/logger"
)

const (
	stateCookie        = "market_oauth_state"
	googleUserInfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
	defaultStateMaxAge = 10 * time.Minute
)

// ErrBlocked is returned by an AccountStore for users who may not sign in.
var ErrBlocked = errors.New("account blocked")

// GoogleUser is the subset of the OpenID userinfo response we keep.
type GoogleUser struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Account is a marketplace user as stored.
type Account struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Blocked bool   `json:"-"`
}

// AccountStore creates or refreshes the account of a Google user.
type AccountStore interface {
	UpsertGoogleUser(ctx context.Context, u GoogleUser) (Account, error)
}

// Google implements the OAuth code flow against Google and answers the
// callback with a marketplace token.
type Google struct {
	oauth         *oauth2.Config
	accounts      AccountStore
	tokens        *Manager
	allowedDomain string
	userInfoURL   string
}

// NewGoogle configures sign-in with Google. allowedDomain, when set, limits
// sign-in to addresses under that domain (the campus domain).
func NewGoogle(clientID, clientSecret, redirectURL, allowedDomain string, accounts AccountStore, tokens *Manager) *Google {
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		accounts:      accounts,
		tokens:        tokens,
		allowedDomain: strings.ToLower(strings.TrimPrefix(allowedDomain, "@")),
		userInfoURL:   googleUserInfoURL,
	}
}

// Login handles GET /auth/google/login
func (g *Google) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int(defaultStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

type loginResponse struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}

// Callback handles GET /auth/google/callback
func (g *Google) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	user, err := g.fetchUser(r.Context(), code)
	if err != nil {
		logger.Errorf("google callback: %v", err)
		http.Error(w, "sign-in failed", http.StatusBadGateway)
		return
	}
	if !user.EmailVerified || !g.domainAllowed(user.Email) {
		http.Error(w, "email not allowed", http.StatusForbidden)
		return
	}

	account, err := g.accounts.UpsertGoogleUser(r.Context(), user)
	if errors.Is(err, ErrBlocked) || (err == nil && account.Blocked) {
		http.Error(w, "account blocked", http.StatusForbidden)
		return
	}
	if err != nil {
		logger.Errorf("google callback upsert: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := g.tokens.Issue(Identity{UserID: account.ID, Email: account.Email, Name: account.Name})
	if err != nil {
		logger.Errorf("google callback issue: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{Token: token, User: account})
}

func (g *Google) fetchUser(ctx context.Context, code string) (GoogleUser, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return GoogleUser{}, err
	}
	resp, err := g.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return GoogleUser{}, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}

	var u GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return GoogleUser{}, fmt.Errorf("userinfo decode: %w", err)
	}
	if u.Subject == "" || u.Email == "" {
		return GoogleUser{}, fmt.Errorf("userinfo: missing subject or email")
	}
	return u, nil
}

func (g *Google) domainAllowed(email string) bool {
	if g.allowedDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+g.allowedDomain)
}
