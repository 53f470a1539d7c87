// Package listings is a read-through proxy for the Bridge listings API that
// hides the access token from browsers.
package listings

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	DefaultUpstream = "https://api.bridgedataoutput.com"
	pathPrefix      = "/api/v2/"
	cacheControl    = "public, s-maxage=300"
	tokenParam      = "access_token"
)

type entry struct {
	status int
	header http.Header
	body   []byte
}

// Proxy forwards /api/v2/* GET requests upstream with the configured token
// and caches successful JSON answers in memory.
type Proxy struct {
	upstream string
	token    string
	ttl      time.Duration
	client   *http.Client
	logger   *slog.Logger
	cache    *ttlcache.Cache[string, entry]
}

func New(upstream, token string, ttl, timeout time.Duration, logger *slog.Logger) *Proxy {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache := ttlcache.New[string, entry](
		ttlcache.WithTTL[string, entry](ttl),
		ttlcache.WithDisableTouchOnHit[string, entry](),
	)
	return &Proxy{
		upstream: strings.TrimRight(upstream, "/"),
		token:    token,
		ttl:      ttl,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		cache:    cache,
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, pathPrefix) {
		http.Error(w, "Not allowed", http.StatusForbidden)
		return
	}

	origin := requestOrigin(r)
	key := origin + r.URL.RequestURI()
	if e, ok := p.lookup(key); ok {
		copyHeader(w.Header(), e.header)
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(e.status)
		_, _ = w.Write(e.body)
		return
	}

	q := url.Values{}
	for k, vs := range r.URL.Query() {
		if strings.EqualFold(k, tokenParam) || len(vs) == 0 {
			continue
		}
		q.Set(k, vs[len(vs)-1])
	}
	q.Set(tokenParam, p.token)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, p.upstream+r.URL.Path+"?"+q.Encode(), nil)
	if err != nil {
		http.Error(w, "bad upstream request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("listings upstream failed", "path", r.URL.Path, "error", redact(err, p.token))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		http.Error(w, "upstream read failed", http.StatusBadGateway)
		return
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	if isJSON {
		body = rewritePagination(body, origin)
	}

	header := http.Header{}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	header.Set("Cache-Control", cacheControl)

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 && isJSON {
		p.store(key, entry{status: resp.StatusCode, header: header, body: body})
	}

	copyHeader(w.Header(), header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func (p *Proxy) lookup(key string) (entry, bool) {
	item := p.cache.Get(key)
	if item == nil {
		return entry{}, false
	}
	return item.Value(), true
}

// store is a no-op when caching is disabled.
func (p *Proxy) store(key string, e entry) {
	if p.ttl <= 0 {
		return
	}
	p.cache.DeleteExpired()
	p.cache.Set(key, e, ttlcache.DefaultTTL)
}

// rewritePagination points @odata.nextLink and next back at this host with
// the token removed. Bodies that are not JSON objects pass through unchanged.
func rewritePagination(body []byte, origin string) []byte {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return body
	}
	changed := false
	for _, field := range []string{"@odata.nextLink", "next"} {
		link, ok := doc[field].(string)
		if !ok || link == "" {
			continue
		}
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		q := u.Query()
		q.Del(tokenParam)
		doc[field] = origin + u.Path + "?" + q.Encode()
		changed = true
	}
	if !changed {
		return body
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return body
	}
	return out
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
}

func redact(err error, token string) string {
	if token == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), token, "[redacted]")
}
