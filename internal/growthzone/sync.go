package growthzone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/models"
)

const officeMLS = "Office MLS"

// ErrUnexpectedFormat is returned when the changes feed holds no contact list.
var ErrUnexpectedFormat = errors.New("unexpected response format from GrowthZone")

// Contact is the subset of a GrowthZone real-estate contact the office sync
// reads.
type Contact struct {
	ContactID     int64  `json:"ContactId"`
	Name          string `json:"Name"`
	AccountNumber string `json:"AccountNumber"`
	Status        string `json:"Status"`
	RealEstate    struct {
		NRDSMemberID string `json:"NRDSMemberId"`
		MLSID        string `json:"MLSId"`
		MLSOfficeID  string `json:"MLSOfficeId"`
	} `json:"RealEstateEditionFields"`
	Memberships []Membership     `json:"Memberships"`
	Addresses   []ContactAddress `json:"Addresses"`
	Emails      []ContactEmail   `json:"Emails"`
	Phones      []ContactPhone   `json:"Phones"`
}

type Membership struct {
	MembershipType   string `json:"MembershipType"`
	MembershipStatus string `json:"MembershipStatus"`
	StartDate        string `json:"StartDate"`
	ExpirationDate   string `json:"ExpirationDate"`
}

type ContactAddress struct {
	AddressID   int64  `json:"AddressId"`
	AddressType string `json:"AddressType"`
	Line1       string `json:"Line1"`
	Line2       string `json:"Line2"`
	City        string `json:"City"`
	State       string `json:"State"`
	ZIP         string `json:"ZIP"`
	IsPrimary   bool   `json:"IsPrimary"`
}

type ContactEmail struct {
	Email     string `json:"Email"`
	IsPrimary bool   `json:"IsPrimary"`
}

type ContactPhone struct {
	PhoneID   int64  `json:"PhoneId"`
	PhoneType string `json:"PhoneType"`
	Number    string `json:"Number"`
	IsPrimary bool   `json:"IsPrimary"`
}

// officeMembership returns the Office MLS membership in status Active or
// Dropped, if any.
func (c Contact) officeMembership() (Membership, bool) {
	for _, m := range c.Memberships {
		if m.MembershipType == officeMLS && (m.MembershipStatus == "Active" || m.MembershipStatus == "Dropped") {
			return m, true
		}
	}
	return Membership{}, false
}

// OfficeStore persists synced offices.
type OfficeStore interface {
	SyncOfficeContact(ctx context.Context, rec models.OfficeSyncRecord) (bool, error)
}

// SyncResult counts one sync run.
type SyncResult struct {
	Inserted     int `json:"inserted"`
	Updated      int `json:"updated"`
	AddressCount int `json:"addressCount"`
	PhoneCount   int `json:"phoneCount"`
}

// Syncer mirrors recently changed Office MLS contacts into the store.
type Syncer struct {
	client   *Client
	store    OfficeStore
	lookback time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSyncer(client *Client, store OfficeStore, lookback time.Duration, logger *slog.Logger, m *metrics.Metrics) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client:   client,
		store:    store,
		lookback: lookback,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Run fetches changes since now minus the lookback window and upserts every
// matching office with its addresses and phones.
func (s *Syncer) Run(ctx context.Context) (res SyncResult, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.OfficeSyncs.WithLabelValues(metrics.Result(err)).Inc()
		}
	}()

	since := s.now().UTC().Add(-s.lookback).Format("2006-01-02T15:04:05Z")
	s.logger.Info("office sync started", "since", since)

	resp, err := s.client.Changes(ctx, since, "")
	if err != nil {
		return res, fmt.Errorf("fetch changes: %w", err)
	}
	contacts, err := extractContacts(resp.Body)
	if err != nil {
		return res, err
	}

	matched := 0
	for _, c := range contacts {
		m, ok := c.officeMembership()
		if !ok {
			continue
		}
		matched++
		rec := officeRecord(c, m)
		inserted, err := s.store.SyncOfficeContact(ctx, rec)
		if err != nil {
			return res, fmt.Errorf("sync office %d: %w", c.ContactID, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
		res.AddressCount += len(rec.Addresses)
		res.PhoneCount += len(rec.Phones)
	}

	s.logger.Info("office sync finished",
		"fetched", len(contacts),
		"matched", matched,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"addresses", res.AddressCount,
		"phones", res.PhoneCount)
	return res, nil
}

// extractContacts accepts a bare array or an object holding the list under
// Changes, Results or results. Later keys win when several are present.
func extractContacts(body []byte) ([]Contact, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []Contact
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode contacts: %w", err)
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode changes: %w", err)
	}
	var (
		list  []Contact
		found bool
	)
	for _, key := range []string{"Changes", "Results", "results"} {
		raw, ok := envelope[key]
		if !ok || len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var l []Contact
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		list, found = l, true
	}
	if !found {
		return nil, ErrUnexpectedFormat
	}
	return list, nil
}

func officeRecord(c Contact, m Membership) models.OfficeSyncRecord {
	o := models.OfficeInput{
		ContactID:                models.FlexInt64(c.ContactID),
		Name:                     c.Name,
		NRDSID:                   firstNonEmpty(c.RealEstate.NRDSMemberID, c.AccountNumber),
		MLSID:                    c.RealEstate.MLSID,
		MLSOfficeID:              c.RealEstate.MLSOfficeID,
		MemberStatus:             firstNonEmpty(m.MembershipStatus, c.Status),
		MembershipStartDate:      m.StartDate,
		MembershipExpirationDate: m.ExpirationDate,
	}
	if a, ok := primaryOrFirst(c.Addresses, func(a ContactAddress) bool { return a.IsPrimary }); ok {
		o.AddressLine1, o.AddressCity, o.AddressState, o.AddressZip = a.Line1, a.City, a.State, a.ZIP
	}
	if e, ok := primaryOrFirst(c.Emails, func(e ContactEmail) bool { return e.IsPrimary }); ok {
		o.PrimaryEmail = e.Email
	}
	if p, ok := primaryOrFirst(c.Phones, func(p ContactPhone) bool { return p.IsPrimary }); ok {
		o.PrimaryPhone = p.Number
	}

	rec := models.OfficeSyncRecord{Office: o}
	for _, a := range c.Addresses {
		rec.Addresses = append(rec.Addresses, models.OfficeAddress{
			AddressID:   nonZero(a.AddressID),
			AddressType: nonEmpty(a.AddressType),
			Line1:       nonEmpty(a.Line1),
			Line2:       nonEmpty(a.Line2),
			City:        nonEmpty(a.City),
			State:       nonEmpty(a.State),
			Zip:         nonEmpty(a.ZIP),
			IsPrimary:   a.IsPrimary,
		})
	}
	for _, p := range c.Phones {
		rec.Phones = append(rec.Phones, models.OfficePhone{
			PhoneID:   nonZero(p.PhoneID),
			PhoneType: nonEmpty(p.PhoneType),
			Number:    nonEmpty(p.Number),
			IsPrimary: p.IsPrimary,
		})
	}
	return rec
}

func primaryOrFirst[T any](items []T, primary func(T) bool) (T, bool) {
	for _, it := range items {
		if primary(it) {
			return it, true
		}
	}
	if len(items) > 0 {
		return items[0], true
	}
	var zero T
	return zero, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonZero(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
