package license

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultPage = `<html><body>
<table>
<tr><th>License Type</th><th>Name</th><th>Name Type</th><th>License Number/ Rank</th><th>Status/Expires</th></tr>
<tr>
  <td>Real Estate Sales Associate</td>
  <td><a href="LicenseDetail.asp?SID=&id=ABC">DOE,&nbsp;JANE   Q</a></td>
  <td>Primary</td>
  <td>SL3360322<br>Sales Associate</td>
  <td>Current, Active<br/>03/31/2026</td>
</tr>
</table></body></html>`

func dbprServer(t *testing.T, page string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wl11.asp", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("mode"))
		http.SetCookie(w, &http.Cookie{Name: "ASPSESSIONID", Value: "s3ss", Path: "/"})
		_, _ = w.Write([]byte("<form></form>"))
	})
	mux.HandleFunc("POST /wl11.asp", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("mode"))
		c, err := r.Cookie("ASPSESSIONID")
		if !assert.NoError(t, err) || c.Value != "s3ss" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "3360322", r.PostForm.Get("LicNbr"))
		assert.Equal(t, "50", r.PostForm.Get("RecsPerPage"))
		assert.Equal(t, "ALL", r.PostForm.Get("hDivision"))
		assert.Contains(t, r.Header.Get("Referer"), "mode=1")
		assert.Contains(t, r.Header.Get("User-Agent"), "Chrome")
		_, _ = w.Write([]byte(page))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newVerifier(srv *httptest.Server) *Verifier {
	v := New(5 * time.Second)
	v.BaseURL = srv.URL
	return v
}

func TestVerifyFound(t *testing.T) {
	v := newVerifier(dbprServer(t, resultPage))

	res, err := v.Verify(context.Background(), "SL3360322")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "3360322", res.License)
	assert.Equal(t, Provider, res.Provider)
	require.NotNil(t, res.Details)
	assert.Equal(t, Details{
		Name:          "DOE, JANE Q",
		Type:          "Real Estate Sales Associate",
		StatusExpires: "Current, Active | 03/31/2026",
		NumberRank:    "SL3360322 | Sales Associate",
	}, *res.Details)
}

func TestVerifyInvalidOutcomes(t *testing.T) {
	cases := []struct {
		name string
		page string
		want string
	}{
		{"no records", "<p>No records found</p>", MsgNoRecords},
		{"invalid number", "<p>Invalid License Number</p>", MsgNoRecords},
		{"no detail link", "<table><tr><td>x</td></tr></table>", MsgNoRow},
		{"short row", `<table><tr><td>a</td><td><a href="LicenseDetail.asp?id=1">b</a></td></tr></table>`, MsgNoColumns},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newVerifier(dbprServer(t, tc.page))
			res, err := v.Verify(context.Background(), "3360322")
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Equal(t, tc.want, res.Message)
		})
	}
}

func TestVerifyTooShortSkipsNetwork(t *testing.T) {
	v := New(time.Second)
	v.BaseURL = "http://127.0.0.1:1"
	res, err := v.Verify(context.Background(), "SL-12")
	require.NoError(t, err)
	assert.Equal(t, Result{Message: MsgTooShort}, res)
}

func TestVerifyUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	_, err := newVerifier(srv).Verify(context.Background(), "3360322")
	assert.ErrorContains(t, err, "DBPR POST returned 503")
}

func TestClean(t *testing.T) {
	assert.Equal(t, "3360322", Clean(" SL 336-0322 "))
	assert.Equal(t, "", Clean("BK"))
}
