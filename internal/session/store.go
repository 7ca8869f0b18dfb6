package session

import (
	"net/http"
	"sync"

	"github.com/gorilla/sessions"
)

// Keys of the three values that make up an admin session
const (
	KeyToken    = "admin_token"
	KeyEmail    = "admin_email"
	KeyIssuedAt = "admin_login_time" // unix milliseconds
)

// Store is the key/value storage a session lives in
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// CookieStore adapts a signed gorilla/sessions cookie to Store for the
// duration of one request. Call Save before writing the response body.
type CookieStore struct {
	session *sessions.Session
	dirty   bool
}

// CookieConfig describes the admin session cookie
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge int
}

// NewCookieFactory builds the gorilla store used to open request sessions
func NewCookieFactory(secret []byte, cfg CookieConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// OpenCookie loads the session cookie of r. A tampered or undecodable cookie
// yields an empty session.
func OpenCookie(factory *sessions.CookieStore, r *http.Request, name string) *CookieStore {
	sess, err := factory.Get(r, name)
	if err != nil {
		// Get still returns a fresh session on decode errors
		sess.Values = make(map[interface{}]interface{})
	}
	return &CookieStore{session: sess}
}

func (c *CookieStore) Get(key string) (string, bool) {
	v, ok := c.session.Values[key].(string)
	return v, ok
}

func (c *CookieStore) Set(key, value string) {
	c.session.Values[key] = value
	c.dirty = true
}

func (c *CookieStore) Delete(key string) {
	if _, ok := c.session.Values[key]; ok {
		delete(c.session.Values, key)
		c.dirty = true
	}
}

// Save writes the cookie back when it changed. An emptied session is
// expired on the client.
func (c *CookieStore) Save(r *http.Request, w http.ResponseWriter) error {
	if !c.dirty {
		return nil
	}
	if len(c.session.Values) == 0 {
		c.session.Options.MaxAge = -1
	}
	c.dirty = false
	return c.session.Save(r, w)
}
