package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Votes.WithLabelValues(VoteCast).Inc()
	m.Votes.WithLabelValues(VoteCast).Inc()
	m.Votes.WithLabelValues(VoteRejected).Inc()
	m.Emails.WithLabelValues("completion", Result(errors.New("boom"))).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Votes.WithLabelValues(VoteCast)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emails.WithLabelValues("completion", "error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `wrapsheet_suggestion_votes_total{outcome="cast"} 2`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestSeparateInstancesDoNotShareState(t *testing.T) {
	a, b := New(), New()
	a.OfficeSyncs.WithLabelValues("ok").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OfficeSyncs.WithLabelValues("ok")))
}
