package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const flashCookieName = "flash"

// Flash is a one-shot banner shown on the next rendered page.
type Flash struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// addFlash queues a flash message. It survives a redirect via cookie, and
// popFlashes picks it up immediately when the same response renders a page.
func addFlash(w http.ResponseWriter, r *http.Request, message, category string) {
	flashes := append(peekFlashes(r), pendingFlashes(w)...)
	flashes = append(flashes, Flash{Message: message, Category: category})

	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	setFlashCookie(w, base64.URLEncoding.EncodeToString(data), 0)
}

// popFlashes consumes every queued flash message: those carried in by the
// request cookie and those added earlier while handling this request.
func popFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	flashes := append(peekFlashes(r), pendingFlashes(w)...)
	if len(flashes) > 0 {
		setFlashCookie(w, "", -1)
	}
	return flashes
}

func peekFlashes(r *http.Request) []Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	return decodeFlashes(cookie.Value)
}

// pendingFlashes reads back flash messages queued on this response and
// removes their Set-Cookie header, keeping any unrelated cookies intact.
func pendingFlashes(w http.ResponseWriter) []Flash {
	all := w.Header().Values("Set-Cookie")
	var flashes []Flash
	var kept []string
	for _, sc := range all {
		if !strings.HasPrefix(sc, flashCookieName+"=") {
			kept = append(kept, sc)
			continue
		}
		value := strings.TrimPrefix(sc, flashCookieName+"=")
		if i := strings.IndexByte(value, ';'); i >= 0 {
			value = value[:i]
		}
		flashes = append(flashes, decodeFlashes(value)...)
	}
	if len(flashes) > 0 {
		w.Header().Del("Set-Cookie")
		for _, sc := range kept {
			w.Header().Add("Set-Cookie", sc)
		}
	}
	return flashes
}

func decodeFlashes(value string) []Flash {
	data, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}

func setFlashCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
