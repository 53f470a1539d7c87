package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Contents, 1) && assert.Len(t, req.Contents[0].Parts, 2) {
			assert.Equal(t, prompt, req.Contents[0].Parts[0].Text)
			assert.Equal(t, &inlineData{MimeType: "image/png", Data: "aGVsbG8="}, req.Contents[0].Parts[1].InlineData)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"JANE DOE\nDOB 01/02/1980"}]}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", "k", 5*time.Second)
	text, err := c.ExtractText(context.Background(), "aGVsbG8=", "")
	require.NoError(t, err)
	assert.Equal(t, "JANE DOE\nDOB 01/02/1980", text)
}

func TestExtractTextEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	text, err := New(srv.URL, "", "k", time.Second).ExtractText(context.Background(), "x", "image/jpeg")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractTextUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid image"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "k", time.Second).ExtractText(context.Background(), "x", "")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.Status)
	assert.Contains(t, upErr.Details, "Invalid image")
}

func TestExtractTextPreconditions(t *testing.T) {
	c := New("http://127.0.0.1:1", "", "", time.Second)
	_, err := c.ExtractText(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = c.ExtractText(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestTransportErrorHidesKey(t *testing.T) {
	c := New("http://127.0.0.1:1", "", "super-secret", time.Second)
	_, err := c.ExtractText(context.Background(), "x", "")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret")
}
