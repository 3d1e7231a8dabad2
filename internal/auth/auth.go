package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unclebandit/aspform-backend/internal/metrics"
)

const (
	SessionName = "aspform_session"

	isAuthKey     = "is_authenticated"
	usernameKey   = "username"
	sessionMaxAge = 24 * 60 * 60
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials are the single admin account. PasswordHash (bcrypt) wins over
// the plain Password when both are set.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
}

func (c Credentials) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	var passOK bool
	if c.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passOK = c.Password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return userOK && passOK
}

// DeriveKeys turns one secret into a 32-byte HMAC key and a 32-byte AES key.
func DeriveKeys(secret string) (hashKey, blockKey []byte) {
	h := sha256.Sum256([]byte("hash:" + secret))
	b := sha256.Sum256([]byte("block:" + secret))
	return h[:], b[:]
}

// Manager issues and checks the admin session cookie.
type Manager struct {
	Store *sessions.CookieStore
	Creds Credentials
	Log   *zap.Logger
}

func NewManager(secret string, secure bool, creds Credentials, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if len(secret) < 32 {
		log.Warn("session secret is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}
	store := sessions.NewCookieStore(DeriveKeys(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(sessionMaxAge)

	log.Info("session store initialized", zap.Bool("secure", secure))
	return &Manager{Store: store, Creds: creds, Log: log}
}

// Login checks the credentials and, when they match, writes a new session.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, username, password string) error {
	ok := m.Creds.Check(username, password)
	metrics.RecordAuthAttempt(ok)
	if !ok {
		m.Log.Warn("admin login failed", zap.String("username", username))
		return ErrInvalidCredentials
	}

	sess, err := m.Store.Get(r, SessionName)
	if err != nil {
		// an undecodable cookie still yields a usable fresh session
		m.Log.Warn("session cookie invalid, using fresh session", zap.Error(err))
	}
	sess.Values[isAuthKey] = true
	sess.Values[usernameKey] = username
	if err := sess.Save(r, w); err != nil {
		return err
	}
	m.Log.Info("admin logged in", zap.String("username", username))
	return nil
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.Store.Get(r, SessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func (m *Manager) IsAuthenticated(r *http.Request) bool {
	sess, err := m.Store.Get(r, SessionName)
	if err != nil {
		return false
	}
	ok, _ := sess.Values[isAuthKey].(bool)
	return ok
}

// RequireAdmin answers 401 {"error":"Unauthorized"} without a valid session.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.IsAuthenticated(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
