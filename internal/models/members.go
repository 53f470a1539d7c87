package models

// Member is one row of the association roster used to match LOGS requests.
type Member struct {
	ID               int64   `json:"id"`
	ContactID        *string `json:"contact_id"`
	NRDSID           *string `json:"nrds_id"`
	FullName         *string `json:"full_name"`
	ContactType      *string `json:"contact_type"`
	MembershipStatus *string `json:"membership_status"`
	OfficeName       *string `json:"office_name"`
	COELatestDate    *string `json:"coe_latest_date"`
	PrimaryAddress1  *string `json:"primary_address1"`
	PrimaryAddress2  *string `json:"primary_address2"`
	Memberships      *string `json:"memberships"`
	UpdatedAt        *string `json:"updated_at"`
}

// MemberRow is one uploaded roster row as sent by the admin spreadsheet tool.
type MemberRow struct {
	ContactID        *FlexString `json:"contactId"`
	NRDSID           *FlexString `json:"nrdsId"`
	FullName         *string     `json:"fullName"`
	ContactType      *string     `json:"contactType"`
	MembershipStatus *string     `json:"membershipStatus"`
	OfficeName       *string     `json:"officeName"`
	COELatestDate    *string     `json:"coeLatestDate"`
	PrimaryAddress1  *string     `json:"primaryAddress1"`
	PrimaryAddress2  *string     `json:"primaryAddress2"`
	Memberships      *string     `json:"memberships"`
}

// MemberSummary is the search-as-you-type projection of a member.
type MemberSummary struct {
	FullName         *string `json:"full_name"`
	NRDSID           *string `json:"nrds_id"`
	OfficeName       *string `json:"office_name"`
	MembershipStatus *string `json:"membership_status"`
}

// Member match outcomes recorded with a LOGS request.
const (
	MatchByNRDS       = "matched_by_nrds"
	MatchNRDSNotFound = "nrds_not_found"
	MatchByName       = "matched_by_name"
	MatchNameNotFound = "name_not_found"
)

// LogsForm is the public letter-of-good-standing request form.
type LogsForm struct {
	FirstName           string   `json:"firstName" validate:"required"`
	LastName            string   `json:"lastName" validate:"required"`
	Organization        string   `json:"organization"`
	NRDSID              string   `json:"nrdsId"`
	DropMemberships     []string `json:"dropMemberships" validate:"required,min=1"`
	DropWhen            string   `json:"dropWhen" validate:"required"`
	LeavingFeedback     string   `json:"leavingFeedback"`
	OtherWhy            string   `json:"otherWhy"`
	ChangeReasons       []string `json:"changeReasons" validate:"required,min=1"`
	NewContact          string   `json:"newContact"`
	NewBrokerInterested string   `json:"newBrokerInterested" validate:"required"`
	NeedsLetter         string   `json:"needsLetter" validate:"required"`
	CancelSupra         string   `json:"cancelSupra" validate:"required"`
	HasListings         string   `json:"hasListings" validate:"required"`
}

// FullName joins the trimmed first and last names.
func (f LogsForm) FullName() string {
	return trimJoin(f.FirstName, f.LastName)
}

// LogsRequest is a stored LOGS submission.
type LogsRequest struct {
	ID                  int64    `json:"id"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	Organization        string   `json:"organization"`
	NRDSID              string   `json:"nrds_id"`
	DropMemberships     []string `json:"drop_memberships"`
	DropWhen            string   `json:"drop_when"`
	LeavingFeedback     string   `json:"leaving_feedback"`
	ChangeReasons       []string `json:"change_reasons"`
	OtherWhy            string   `json:"other_why"`
	NewContact          string   `json:"new_contact"`
	NewBrokerInterested string   `json:"new_broker_interested"`
	NeedsLetter         string   `json:"needs_letter"`
	CancelSupra         string   `json:"cancel_supra"`
	HasListings         string   `json:"has_listings"`
	MemberMatched       int      `json:"member_matched"`
	CreatedAt           string   `json:"created_at"`
}

// LogsRequestFromForm converts a submitted form into a storable request.
func LogsRequestFromForm(f LogsForm, matched bool) LogsRequest {
	r := LogsRequest{
		FirstName:           f.FirstName,
		LastName:            f.LastName,
		Organization:        f.Organization,
		NRDSID:              f.NRDSID,
		DropMemberships:     f.DropMemberships,
		DropWhen:            f.DropWhen,
		LeavingFeedback:     f.LeavingFeedback,
		ChangeReasons:       f.ChangeReasons,
		OtherWhy:            f.OtherWhy,
		NewContact:          f.NewContact,
		NewBrokerInterested: f.NewBrokerInterested,
		NeedsLetter:         f.NeedsLetter,
		CancelSupra:         f.CancelSupra,
		HasListings:         f.HasListings,
	}
	if matched {
		r.MemberMatched = 1
	}
	return r
}

// LogsStats aggregates LOGS answers for the admin dashboard charts.
type LogsStats struct {
	Total               int            `json:"total"`
	ChangeReasons       map[string]int `json:"changeReasons"`
	NewBrokerInterested map[string]int `json:"newBrokerInterested"`
	NeedsLetter         map[string]int `json:"needsLetter"`
	CancelSupra         map[string]int `json:"cancelSupra"`
	HasListings         map[string]int `json:"hasListings"`
}

// NewLogsStats returns stats with every bucket map initialised.
func NewLogsStats() LogsStats {
	return LogsStats{
		ChangeReasons:       map[string]int{},
		NewBrokerInterested: map[string]int{},
		NeedsLetter:         map[string]int{},
		CancelSupra:         map[string]int{},
		HasListings:         map[string]int{},
	}
}
