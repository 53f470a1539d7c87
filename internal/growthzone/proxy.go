package growthzone

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

// passthroughRoutes maps proxy paths to upstream API paths.
var passthroughRoutes = map[string]string{
	"/customfields":           "/api/customfields",
	"/applications":           "/api/applications",
	"/calendars/items":        "/api/calendars/items",
	"/calendars/lookup":       "/api/calendars/lookup",
	"/connection/all":         "/api/connection/all",
	"/thirdparty/contacts":    "/api/thirdparty/contacts",
	"/mic/accountcontactinfo": "/api/mic/accountcontactinfo",
	"/integrations/accounts":  "/api/integrations/accounts",
}

// Proxy exposes a read-only slice of the GrowthZone API. It expects to be
// mounted with its prefix stripped.
type Proxy struct {
	client *Client
	mux    *http.ServeMux
}

func NewProxy(client *Client) *Proxy {
	p := &Proxy{client: client, mux: http.NewServeMux()}
	for path, upstream := range passthroughRoutes {
		forwardQuery := path == "/integrations/accounts"
		p.mux.HandleFunc("GET "+path, p.passthrough(upstream, forwardQuery))
	}
	p.mux.HandleFunc("GET /calendars/{id}", p.calendar)
	p.mux.HandleFunc("GET /claims", p.claims)
	p.mux.HandleFunc("GET /changes", p.changes)
	p.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	return p
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.client.APIKey == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":    false,
			"error": "GrowthZone API key is not configured",
		})
		return
	}
	p.mux.ServeHTTP(w, r)
}

func (p *Proxy) passthrough(upstream string, forwardQuery bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q url.Values
		if forwardQuery {
			q = r.URL.Query()
		}
		resp, err := p.client.Get(r.Context(), upstream, q)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		relay(w, resp)
	}
}

func (p *Proxy) calendar(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !allDigits(id) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	p.passthrough("/api/calendars/"+id, false)(w, r)
}

func (p *Proxy) claims(w http.ResponseWriter, r *http.Request) {
	resp, err := p.client.Get(r.Context(), "/api/contacts/root/claims", nil)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	status := http.StatusOK
	if !resp.OK() {
		status = resp.Status
	}
	writeJSON(w, status, map[string]any{
		"ok":           resp.OK(),
		"upstreamBase": p.client.BaseURL,
		"upstreamUrl":  resp.URL,
		"status":       resp.Status,
		"body":         parseBody(resp.Body),
		"contentType":  resp.ContentType,
	})
}

func (p *Proxy) changes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := p.client.Changes(r.Context(), q.Get("since"), q.Get("options"))
	if err == nil {
		relay(w, resp)
		return
	}

	var upErr *UpstreamError
	switch {
	case errors.Is(err, ErrInvalidSince):
		var received any
		if q.Has("since") {
			received = q.Get("since")
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":       false,
			"error":    "Missing/invalid ?since. Example: 2025-12-16T18:24:25Z",
			"received": received,
		})
	case errors.Is(err, ErrAllFormatsFailed):
		errors.As(err, &upErr)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"ok":           false,
			"upstreamBase": p.client.BaseURL,
			"status":       http.StatusInternalServerError,
			"body":         map[string]string{"Message": "All datetime formats failed upstream."},
			"attempted":    upErr.Attempts,
		})
	case errors.As(err, &upErr):
		writeJSON(w, upErr.Status, map[string]any{
			"ok":           false,
			"upstreamBase": p.client.BaseURL,
			"upstreamUrl":  upErr.URL,
			"status":       upErr.Status,
			"body":         parseBody(upErr.Body),
			"attempted":    upErr.Attempts,
		})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
	}
}

func relay(w http.ResponseWriter, resp *Response) {
	ct := resp.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// parseBody returns the decoded JSON value, the raw text when it is not
// JSON, or nil when empty.
func parseBody(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
