package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"course-storefront/internal/catalog"
	"course-storefront/internal/domain"
)

// Keys under which values live in the browser session. user and
// selectedCourse hold JSON strings.
const (
	keyUser           = "user"
	keyBackendCookie  = "backendCookie"
	keySelectedCourse = "selectedCourse"
	keyCatalog        = "catalog"
	keyCatalogID      = "catalogId"
)

// Provider answers "who is using this request". Consumers take a Provider
// instead of reading session storage directly.
type Provider interface {
	Current(ctx context.Context) domain.Session
}

// Store is a Provider that can also change the session.
type Store interface {
	Provider
	Establish(ctx context.Context, user domain.User, backendCookie string) (domain.Session, error)
	Destroy(ctx context.Context) error
	BackendCookie(ctx context.Context) string

	SaveSelection(ctx context.Context, course domain.Course) error
	Selection(ctx context.Context) (domain.Course, bool)
	ClearSelection(ctx context.Context) error
}

// Manager keeps session state in an scs cookie session. Requests must pass
// through LoadAndSave before any other method is called.
type Manager struct {
	SM *scs.SessionManager
}

// NewManager returns a Manager whose data lives in store. A nil store keeps
// the scs in-memory default.
func NewManager(lifetime time.Duration, secure bool, store scs.Store) *Manager {
	sm := scs.New()
	if lifetime > 0 {
		sm.Lifetime = lifetime
	}
	sm.Cookie.Name = "storefront_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	if store != nil {
		sm.Store = store
	}
	return &Manager{SM: sm}
}

func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.SM.LoadAndSave(next)
}

// Current returns the session variant for the stored user. A missing or
// unreadable user yields a guest.
func (m *Manager) Current(ctx context.Context) domain.Session {
	raw := m.SM.GetString(ctx, keyUser)
	if raw == "" {
		return domain.GuestSession{}
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return domain.GuestSession{}
	}
	s, err := domain.SessionFromUser(u)
	if err != nil {
		return domain.GuestSession{}
	}
	return s
}

func (m *Manager) Establish(ctx context.Context, user domain.User, backendCookie string) (domain.Session, error) {
	s, err := domain.SessionFromUser(user)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	if err := m.SM.RenewToken(ctx); err != nil {
		return nil, fmt.Errorf("renew session token: %w", err)
	}
	m.SM.Put(ctx, keyUser, string(b))
	m.SM.Put(ctx, keyBackendCookie, backendCookie)
	return s, nil
}

func (m *Manager) Destroy(ctx context.Context) error {
	return m.SM.Destroy(ctx)
}

func (m *Manager) BackendCookie(ctx context.Context) string {
	return m.SM.GetString(ctx, keyBackendCookie)
}

// SaveSelection overwrites the checkout selection.
func (m *Manager) SaveSelection(ctx context.Context, course domain.Course) error {
	b, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	m.SM.Put(ctx, keySelectedCourse, string(b))
	return nil
}

func (m *Manager) Selection(ctx context.Context) (domain.Course, bool) {
	raw := m.SM.GetString(ctx, keySelectedCourse)
	if raw == "" {
		return domain.Course{}, false
	}
	var c domain.Course
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Course{}, false
	}
	return c, true
}

func (m *Manager) ClearSelection(ctx context.Context) error {
	m.SM.Remove(ctx, keySelectedCourse)
	return nil
}

// CatalogID returns the id of the live catalog bound to this browser,
// creating one on first use.
func (m *Manager) CatalogID(ctx context.Context) string {
	id := m.SM.GetString(ctx, keyCatalogID)
	if id == "" {
		id = uuid.NewString()
		m.SM.Put(ctx, keyCatalogID, id)
	}
	return id
}

func (m *Manager) SaveCatalog(ctx context.Context, st catalog.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	m.SM.Put(ctx, keyCatalog, string(b))
	return nil
}

func (m *Manager) LoadCatalog(ctx context.Context) (catalog.State, bool) {
	raw := m.SM.GetString(ctx, keyCatalog)
	if raw == "" {
		return catalog.State{}, false
	}
	var st catalog.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return catalog.State{}, false
	}
	return st, true
}
