package flow

import (
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
)

const (
	cookiePrefix = "aspform_draft_"
	draftMaxAge  = 24 * 60 * 60
)

// ErrNoDraft is returned when the request carries no usable draft for the
// slug and token it asks about.
var ErrNoDraft = errors.New("no draft")

// CookieStore keeps drafts in signed and encrypted cookies, one per plan.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	Secure bool
}

func NewCookieStore(hashKey, blockKey []byte, secure bool) *CookieStore {
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(draftMaxAge)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &CookieStore{codec: codec, Secure: secure}
}

func cookieName(slug string) string {
	return cookiePrefix + slug
}

func (s *CookieStore) cookie(slug, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName(slug),
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Load returns the draft for slug if it was started with token.
func (s *CookieStore) Load(r *http.Request, slug, token string) (*Draft, error) {
	c, err := r.Cookie(cookieName(slug))
	if err != nil {
		return nil, ErrNoDraft
	}
	var d Draft
	if err := s.codec.Decode(cookieName(slug), c.Value, &d); err != nil {
		return nil, ErrNoDraft
	}
	if !d.Matches(slug, token) {
		return nil, ErrNoDraft
	}
	return &d, nil
}

func (s *CookieStore) Save(w http.ResponseWriter, d *Draft) error {
	encoded, err := s.codec.Encode(cookieName(d.Slug), d)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.cookie(d.Slug, encoded, draftMaxAge))
	return nil
}

func (s *CookieStore) Clear(w http.ResponseWriter, slug string) {
	http.SetCookie(w, s.cookie(slug, "", -1))
}
