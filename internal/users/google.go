package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"cvpro-backend/internal/shared/server/respond"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleAuth handles the Google OAuth2 code flow.
type GoogleAuth struct {
	Svc         *Service
	oauthConfig *oauth2.Config
	uiRedirect  string
	stateTTL    time.Duration
	stateStore  *stateStore

	// exchange trades an authorization code for the Google profile.
	exchange func(ctx context.Context, code string) (GoogleProfile, error)
}

// NewGoogleAuth builds a GoogleAuth.
func NewGoogleAuth(svc *Service, clientID, clientSecret, redirectURL, uiRedirect string) *GoogleAuth {
	g := &GoogleAuth{
		Svc: svc,
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect: uiRedirect,
		stateTTL:   5 * time.Minute,
		stateStore: newStateStore(),
	}
	g.exchange = g.exchangeCode
	return g
}

// Configured reports whether client credentials are present.
func (g *GoogleAuth) Configured() bool {
	return g.oauthConfig.ClientID != "" && g.oauthConfig.ClientSecret != "" && g.oauthConfig.RedirectURL != ""
}

// RegisterRoutes attaches Google auth routes.
func (g *GoogleAuth) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/google/start", g.start)
	rg.GET("/google/callback", g.callback)
}

func (g *GoogleAuth) start(c *gin.Context) {
	if !g.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured")
		return
	}

	state := uuid.NewString()
	g.stateStore.put(state, time.Now().Add(g.stateTTL))

	c.Redirect(http.StatusFound, g.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (g *GoogleAuth) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code")
		return
	}
	if !g.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state")
		return
	}

	ctx := c.Request.Context()
	profile, err := g.exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile")
		return
	}

	pair, _, err := g.Svc.LoginGoogle(ctx, profile, ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusBadRequest, "validation_error", verr.Message)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Login failed")
		return
	}

	redirectURL, err := appendToken(g.uiRedirect, pair.Access)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect")
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub        string `json:"sub"`
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (g *GoogleAuth) exchangeCode(ctx context.Context, code string) (GoogleProfile, error) {
	token, err := g.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := g.oauthConfig.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return GoogleProfile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return GoogleProfile{}, err
	}
	// v2 userinfo uses "id" instead of "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return GoogleProfile{
		Sub:        info.Sub,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
	}, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	now := time.Now()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
	s.mu.Unlock()
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
