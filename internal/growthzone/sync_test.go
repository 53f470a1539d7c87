package growthzone

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/models"
)

type fakeOfficeStore struct {
	records []models.OfficeSyncRecord
	known   map[int64]bool
	err     error
}

func (f *fakeOfficeStore) SyncOfficeContact(_ context.Context, rec models.OfficeSyncRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.records = append(f.records, rec)
	id := int64(rec.Office.ContactID)
	if f.known[id] {
		return false, nil
	}
	f.known[id] = true
	return true, nil
}

const changesPayload = `{
  "Changes": [{"ContactId": 999, "Name": "Overridden"}],
  "Results": [
    {
      "ContactId": 101,
      "Name": "Gulf Coast Realty",
      "AccountNumber": "ACC-1",
      "Status": "Active",
      "RealEstateEditionFields": {"NRDSMemberId": "NRDS-101", "MLSId": "M1", "MLSOfficeId": "OFF1"},
      "Memberships": [
        {"MembershipType": "Member", "MembershipStatus": "Active"},
        {"MembershipType": "Office MLS", "MembershipStatus": "Active", "StartDate": "2020-01-01", "ExpirationDate": "2026-12-31"}
      ],
      "Addresses": [
        {"AddressId": 1, "AddressType": "Mailing", "Line1": "PO Box 1", "City": "Estero", "State": "FL", "ZIP": "33928"},
        {"AddressId": 2, "AddressType": "Office", "Line1": "100 Main St", "City": "Bonita Springs", "State": "FL", "ZIP": "34135", "IsPrimary": true}
      ],
      "Emails": [{"Email": "a@gulf.test"}, {"Email": "main@gulf.test", "IsPrimary": true}],
      "Phones": [{"PhoneId": 7, "PhoneType": "Work", "Number": "239-555-0100"}]
    },
    {
      "ContactId": 102,
      "Name": "Lapsed Office",
      "Memberships": [{"MembershipType": "Office MLS", "MembershipStatus": "Inactive"}]
    },
    {
      "ContactId": 103,
      "Name": "Dropped Office",
      "AccountNumber": "ACC-103",
      "Status": "Former",
      "Memberships": [{"MembershipType": "Office MLS", "MembershipStatus": "Dropped"}]
    }
  ]
}`

func TestSyncerRun(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(changesPayload))
	})
	store := &fakeOfficeStore{known: map[int64]bool{103: true}}
	m := metrics.New()
	s := NewSyncer(c, store, 30*24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), m)
	s.now = func() time.Time { return time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC) }

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/realestate/contacts/getchangessince/2025-01-01T120000Z", gotPath)
	assert.Equal(t, SyncResult{Inserted: 1, Updated: 1, AddressCount: 2, PhoneCount: 1}, res)

	require.Len(t, store.records, 2)
	gulf := store.records[0].Office
	assert.Equal(t, models.FlexInt64(101), gulf.ContactID)
	assert.Equal(t, "NRDS-101", gulf.NRDSID)
	assert.Equal(t, "M1", gulf.MLSID)
	assert.Equal(t, "OFF1", gulf.MLSOfficeID)
	assert.Equal(t, "100 Main St", gulf.AddressLine1)
	assert.Equal(t, "34135", gulf.AddressZip)
	assert.Equal(t, "main@gulf.test", gulf.PrimaryEmail)
	assert.Equal(t, "239-555-0100", gulf.PrimaryPhone)
	assert.Equal(t, "Active", gulf.MemberStatus)
	assert.Equal(t, "2026-12-31", gulf.MembershipExpirationDate)
	require.Len(t, store.records[0].Addresses, 2)
	assert.Nil(t, store.records[0].Addresses[0].Line2)
	assert.True(t, store.records[0].Addresses[1].IsPrimary)

	dropped := store.records[1].Office
	assert.Equal(t, "ACC-103", dropped.NRDSID)
	assert.Equal(t, "Dropped", dropped.MemberStatus)
	assert.Empty(t, dropped.AddressLine1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OfficeSyncs.WithLabelValues("ok")))
}

func TestSyncerRunStoreFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(changesPayload))
	})
	m := metrics.New()
	s := NewSyncer(c, &fakeOfficeStore{err: errors.New("disk full")}, time.Hour, nil, m)

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync office 101")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OfficeSyncs.WithLabelValues("error")))
}

func TestExtractContacts(t *testing.T) {
	list, err := extractContacts([]byte(` [{"ContactId": 5}] `))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].ContactID)

	list, err = extractContacts([]byte(`{"Changes":[{"ContactId":1},{"ContactId":2}]}`))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = extractContacts([]byte(`{"Changes":[{"ContactId":1}],"results":[]}`))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = extractContacts([]byte(`{"Total": 0}`))
	assert.ErrorIs(t, err, ErrUnexpectedFormat)
}
