package httpapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

// Cookie names used to carry the controller's redirect parameters to the
// portal page and the connect endpoints.
const (
	cookieDeviceMAC = "id"
	cookieSite      = "site"
)

// HandleGuestRedirect captures the controller's captive-portal redirect. The
// controller appends the access point, device MAC, timestamp, original URL
// and SSID as query parameters; they are stashed in cookies so the portal
// page and the connect endpoints can pick them up.
// GET /guest/s/{site}
func (h *Handler) HandleGuestRedirect(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	q := r.URL.Query()

	params := map[string]string{
		"ap":            q.Get("ap"),
		cookieDeviceMAC: q.Get("id"),
		"t":             q.Get("t"),
		"ssid":          q.Get("ssid"),
		"url":           q.Get("url"),
		cookieSite:      site,
	}
	for name, value := range params {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}

	http.Redirect(w, r, "/guest/index", http.StatusFound)
}

// HandleGuestPage serves the static portal page the redirect lands on.
// GET /guest/index
func (h *Handler) HandleGuestPage(w http.ResponseWriter, r *http.Request) {
	if h.GuestPage == "" {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No portal page configured")
		return
	}
	if _, err := os.Stat(h.GuestPage); err != nil {
		h.logger.Error("portal page unreadable", "path", h.GuestPage, "error", err)
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Page not found")
		return
	}
	http.ServeFile(w, r, h.GuestPage)
}

// deviceFromCookies returns the MAC and site stashed by the redirect
// capture, as a fallback when a request body omits them.
func deviceFromCookies(r *http.Request) (mac, site string) {
	if c, err := r.Cookie(cookieDeviceMAC); err == nil {
		mac = c.Value
	}
	if c, err := r.Cookie(cookieSite); err == nil {
		site = c.Value
	}
	return mac, site
}
