package http

import (
	"net/http"
	"strings"
)

func (h *Handler) oidcAuthorize(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	redirectURI := r.URL.Query().Get("redirect_uri")
	loginHint := r.URL.Query().Get("login_hint")

	res, err := h.service.OIDCAuthorize(r.Context(), provider, redirectURI, loginHint)
	if err != nil {
		writeMappedError(r.Context(), w, "oidc_authorize", err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("response_mode"), "json") {
		writeSuccess(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, res.AuthorizeURL, http.StatusFound)
}

func (h *Handler) oidcCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	result, err := h.service.OIDCCallback(r.Context(), code, state)
	if err != nil {
		writeMappedError(r.Context(), w, "oidc_callback", err)
		return
	}
	redirectURL := result.RedirectURL
	if strings.TrimSpace(redirectURL) == "" {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}
