package config

import "testing"

func TestConstants(t *testing.T) {
	if AppName == "" {
		t.Fatalf("AppName should not be empty")
	}
	if DBFileName == "" {
		t.Fatalf("DBFileName should not be empty")
	}
	if HydrationBatchSize <= 0 || HydrationBatchSize > 999 {
		t.Fatalf("HydrationBatchSize must fit the SQLite parameter limit, got %d", HydrationBatchSize)
	}
	if MonthlyVoteLimit != 5 {
		t.Fatalf("MonthlyVoteLimit = %d, want 5", MonthlyVoteLimit)
	}
	if LogsDefaultLimit > LogsMaxLimit {
		t.Fatalf("LogsDefaultLimit exceeds LogsMaxLimit")
	}
	if DBTimeout <= 0 || MailTimeout <= 0 || UpstreamTimeout <= 0 {
		t.Fatalf("timeouts must be positive")
	}
}

func TestStaffMap(t *testing.T) {
	if StaffMap["MLS"] != 3 {
		t.Fatalf("MLS should route to 3, got %d", StaffMap["MLS"])
	}
	if _, ok := StaffMap["Unknown"]; ok {
		t.Fatalf("unexpected mapping for unknown category")
	}
	if len(LogsRecipients) != 3 {
		t.Fatalf("expected 3 LOGS recipients, got %d", len(LogsRecipients))
	}
}
