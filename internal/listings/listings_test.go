package listings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstreamServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "server-token", r.URL.Query().Get("access_token"))
		if r.URL.Path == "/api/v2/broken" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"value":[{"ListingId":"1"}],"@odata.nextLink":"https://api.bridgedataoutput.com/api/v2/OData/ber/Property?access_token=server-token&$skip=10"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProxyForwardsAndCaches(t *testing.T) {
	var hits atomic.Int32
	p := New(upstreamServer(t, &hits).URL, "server-token", 5*time.Minute, 5*time.Second, nil)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "http://listings.example/api/v2/OData/ber/Property?access_token=client&$top=10", nil)
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, req)
		return rec
	}

	rec := get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, s-maxage=300", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("X-Cache"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "http://listings.example/api/v2/OData/ber/Property?%24skip=10", doc["@odata.nextLink"])
	assert.NotContains(t, rec.Body.String(), "server-token")

	rec = get()
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), hits.Load())

	// another host gets its own entry since nextLink is rewritten per origin
	req := httptest.NewRequest(http.MethodGet, "http://other.example/api/v2/OData/ber/Property?access_token=client&$top=10", nil)
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestProxyCacheExpires(t *testing.T) {
	var hits atomic.Int32
	p := New(upstreamServer(t, &hits).URL, "server-token", 30*time.Millisecond, 5*time.Second, nil)

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/OData/ber/Property", nil))
		return rec
	}

	get()
	if rec := get(); rec.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second request not served from cache, hits=%d", hits.Load())
	}
	require.Equal(t, int32(1), hits.Load())

	time.Sleep(60 * time.Millisecond)
	rec := get()
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestProxyZeroTTLDisablesCache(t *testing.T) {
	var hits atomic.Int32
	p := New(upstreamServer(t, &hits).URL, "server-token", 0, 5*time.Second, nil)
	for range 2 {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/OData/ber/Property", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 0, p.cache.Len())
}

func TestProxyDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	p := New(upstreamServer(t, &hits).URL, "server-token", time.Minute, time.Second, nil)

	for range 2 {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/broken", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestProxyRejectsOtherPaths(t *testing.T) {
	p := New("http://127.0.0.1:1", "t", time.Minute, time.Second, nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/secrets", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not allowed\n", rec.Body.String())
}

func TestRewritePaginationLeavesOtherBodies(t *testing.T) {
	in := []byte(`[1,2,3]`)
	assert.Equal(t, in, rewritePagination(in, "http://x"))
	in = []byte(`{"value":[]}`)
	assert.Equal(t, in, rewritePagination(in, "http://x"))
}
