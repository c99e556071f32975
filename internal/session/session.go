// Package session carries the customer session across requests: a uuid
// cookie names a server-side record in the session store.
package session

import (
	"context"
	"net/http"
	"time"

	"dustbinpro/internal/config"
	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	LoginPath = "/Auth/Login"

	ginKey = "portal_session"
)

type ctxKey struct{}

// state is the per-request session handle kept in the gin context.
type state struct {
	session   *models.Session
	destroyed bool
}

// Identity is what the sign-in flow knows about a customer.
type Identity struct {
	UID           string
	Email         string
	EmailVerified bool
	CustomerName  string
}

// Manager loads and persists sessions behind the session cookie.
type Manager struct {
	store      domain.SessionStore
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *zerolog.Logger
	now        func() time.Time
}

func NewManager(store domain.SessionStore, cfg config.SessionConfig, logger *zerolog.Logger) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = models.DefaultSessionTTL
	}
	return &Manager{
		store:      store,
		cookieName: cfg.CookieName,
		ttl:        ttl,
		secure:     cfg.Secure,
		logger:     logger,
		now:        time.Now,
	}
}

func (m *Manager) CookieName() string { return m.cookieName }

// Issue creates and stores an authenticated customer session.
func (m *Manager) Issue(ctx context.Context, id Identity) (*models.Session, error) {
	s := &models.Session{
		ID:            uuid.NewString(),
		IsLoggedIn:    true,
		Role:          models.RoleCustomer,
		UID:           id.UID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		CustomerName:  id.CustomerName,
		UpdatedAt:     m.now().UTC(),
	}
	if err := m.store.SetSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Middleware resolves the session for every request and writes it back
// after the handler, which also slides the idle expiry.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &state{session: m.load(c)}
		c.Set(ginKey, st)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, st.session))

		c.Next()

		if st.destroyed || !worthKeeping(st.session) {
			return
		}
		st.session.UpdatedAt = m.now().UTC()
		if err := m.store.SetSession(context.WithoutCancel(c.Request.Context()), st.session); err != nil {
			m.logger.Error().Err(err).Str("session_id", st.session.ID).Msg("failed to save session")
		}
	}
}

func (m *Manager) load(c *gin.Context) *models.Session {
	if id, err := c.Cookie(m.cookieName); err == nil && id != "" {
		s, err := m.store.GetSession(c.Request.Context(), id)
		if err != nil {
			m.logger.Error().Err(err).Msg("failed to load session")
		}
		if s != nil {
			return s
		}
	}

	s := &models.Session{ID: uuid.NewString()}
	m.setCookie(c, s.ID, 0)
	return s
}

// Destroy clears the session, removes it from the store and expires the
// cookie. The request keeps an empty session.
func (m *Manager) Destroy(c *gin.Context) error {
	st := getState(c)
	if st == nil {
		return nil
	}
	st.session.Clear()
	st.destroyed = true
	m.setCookie(c, "", -1)
	return m.store.DeleteSession(c.Request.Context(), st.session.ID)
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func worthKeeping(s *models.Session) bool {
	return s.IsLoggedIn || s.Flash != "" || s.FlashError != ""
}

func getState(c *gin.Context) *state {
	v, ok := c.Get(ginKey)
	if !ok {
		return nil
	}
	st, _ := v.(*state)
	return st
}

// Get returns the request's session. Outside the middleware it returns an
// empty session so callers never see nil.
func Get(c *gin.Context) *models.Session {
	if st := getState(c); st != nil {
		return st.session
	}
	return &models.Session{}
}

// FromContext returns the session stored in a request context.
func FromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*models.Session)
	return s, ok && s != nil
}

// SetFlash queues a one-shot message for the next rendered page.
func SetFlash(c *gin.Context, msg string) {
	Get(c).Flash = msg
}

func SetFlashError(c *gin.Context, msg string) {
	Get(c).FlashError = msg
}

// PopFlash returns and clears the queued messages.
func PopFlash(c *gin.Context) (msg, errMsg string) {
	s := Get(c)
	msg, errMsg = s.Flash, s.FlashError
	s.Flash, s.FlashError = "", ""
	return msg, errMsg
}
