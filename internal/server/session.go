package server

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

const (
	sessionCookie = "docsearch_session"
	flashCookie   = "docsearch_flash"
)

// Message is a one-shot notice shown on the upload form.
type Message struct {
	Category string
	Text     string
}

// sessionID returns the caller's session id, issuing a new one when the
// cookie is missing or malformed.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := existingSession(r); ok {
		return id
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func existingSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func setFlash(w http.ResponseWriter, text string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(text),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash message.
func popFlash(w http.ResponseWriter, r *http.Request) []Message {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookie,
		Path:   "/",
		MaxAge: -1,
	})

	text, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	return []Message{{Category: "danger", Text: text}}
}

func flashRedirect(w http.ResponseWriter, r *http.Request, text string) {
	setFlash(w, text)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
