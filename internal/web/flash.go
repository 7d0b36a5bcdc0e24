package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "stockwise_flash"

// setFlash stores a notice for the next page the browser loads
func setFlash(w http.ResponseWriter, kind, message string) {
	data, err := json.Marshal(notice{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending notice, if any, and clears it
func popFlash(w http.ResponseWriter, r *http.Request) []notice {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var n notice
	if err := json.Unmarshal(data, &n); err != nil || n.Message == "" {
		return nil
	}
	return []notice{n}
}
