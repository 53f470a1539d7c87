package config

import "time"

// Database/application settings.
const (
	AppName    = "wrapsheet"
	DBFileName = "wrapsheet.db"
)

// Store limits.
const (
	// HydrationBatchSize bounds the ids bound into one IN (...) list.
	HydrationBatchSize = 100

	// MonthlyVoteLimit is the number of suggestion votes a user may hold per month.
	MonthlyVoteLimit = 5

	// DefaultStepOrder places new project steps at the end.
	DefaultStepOrder = 999

	// DefaultSubtaskWeight is used when a goal subtask is created without a weight.
	DefaultSubtaskWeight = 1

	// LogsDefaultLimit and LogsMaxLimit page the LOGS admin listing.
	LogsDefaultLimit = 500
	LogsMaxLimit     = 1000

	// MemberSearchMinChars and MemberSearchLimit shape member search.
	MemberSearchMinChars = 3
	MemberSearchLimit    = 20

	// MinLicenseDigits is the shortest license number worth looking up.
	MinLicenseDigits = 4
)

// Suggestion statuses.
const (
	SuggestionSuggested = "suggested"
	SuggestionActive    = "active"
	SuggestionCompleted = "completed"
)

// Project statuses.
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

// Default user preferences.
const (
	DefaultTheme        = "light"
	DefaultCalendarView = "month"
	DefaultUserRole     = "member"
)

// Timeouts.
const (
	DBTimeout        = 5 * time.Second
	UpstreamTimeout  = 30 * time.Second
	MailTimeout      = 15 * time.Second
	ShutdownTimeout  = 10 * time.Second
	AdminSessionTTL  = 8 * time.Hour
	MaxRequestBodyMB = 1
)

// StaffMap routes a suggestion category to the staff user who owns it when
// the caller does not pick an assignee.
var StaffMap = map[string]int64{
	"Technology":             2,
	"Website":                2,
	"Marketing":              2,
	"MLS":                    3,
	"Education":              5,
	"Events":                 5,
	"Membership":             4,
	"Compliance":             1,
	"Professional Standards": 1,
	"Community Outreach":     1,
}

// LOGS notification recipients.
var LogsRecipients = []Recipient{
	{Email: "Tech@BERealtors.org", Name: "BER Tech"},
	{Email: "Membership@BERealtors.org", Name: "BER Membership"},
	{Email: "CEO@BERealtors.org", Name: "BER CEO"},
}

// Recipient is a named email address.
type Recipient struct {
	Email string
	Name  string
}
