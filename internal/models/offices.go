package models

// Office is a GrowthZone "Office MLS" contact mirrored locally.
type Office struct {
	ID                       int64   `json:"id"`
	ContactID                int64   `json:"contact_id"`
	Name                     string  `json:"name"`
	NRDSID                   *string `json:"nrds_id"`
	MLSID                    *string `json:"mls_id"`
	MLSOfficeID              *string `json:"mls_office_id"`
	AddressLine1             *string `json:"address_line1"`
	AddressCity              *string `json:"address_city"`
	AddressState             *string `json:"address_state"`
	AddressZip               *string `json:"address_zip"`
	PrimaryEmail             *string `json:"primary_email"`
	PrimaryPhone             *string `json:"primary_phone"`
	MemberStatus             *string `json:"member_status"`
	MembershipStartDate      *string `json:"membership_start_date"`
	MembershipExpirationDate *string `json:"membership_expiration_date"`
	LastSyncedAt             *string `json:"last_synced_at"`
	CreatedAt                string  `json:"created_at"`
	UpdatedAt                string  `json:"updated_at"`
}

// OfficeAddress is one address row of a synced office.
type OfficeAddress struct {
	AddressID   *int64  `json:"address_id"`
	AddressType *string `json:"address_type"`
	Line1       *string `json:"line1"`
	Line2       *string `json:"line2"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	Zip         *string `json:"zip"`
	IsPrimary   bool    `json:"is_primary"`
}

// OfficePhone is one phone row of a synced office.
type OfficePhone struct {
	PhoneID   *int64  `json:"phone_id"`
	PhoneType *string `json:"phone_type"`
	Number    *string `json:"number"`
	IsPrimary bool    `json:"is_primary"`
}

// OfficeInput is one row of a manual office sync payload. Empty strings are
// stored as NULL.
type OfficeInput struct {
	ContactID                FlexInt64 `json:"contact_id"`
	Name                     string    `json:"name"`
	NRDSID                   string    `json:"nrds_id"`
	MLSID                    string    `json:"mls_id"`
	MLSOfficeID              string    `json:"mls_office_id"`
	AddressLine1             string    `json:"address_line1"`
	AddressCity              string    `json:"address_city"`
	AddressState             string    `json:"address_state"`
	AddressZip               string    `json:"address_zip"`
	PrimaryEmail             string    `json:"primary_email"`
	PrimaryPhone             string    `json:"primary_phone"`
	MemberStatus             string    `json:"member_status"`
	MembershipStartDate      string    `json:"membership_start_date"`
	MembershipExpirationDate string    `json:"membership_expiration_date"`
}

// OfficeSyncRecord is a fully resolved office produced by the GrowthZone
// syncer, including its address and phone lists.
type OfficeSyncRecord struct {
	Office    OfficeInput
	Addresses []OfficeAddress
	Phones    []OfficePhone
}

// UpsertResult counts the outcome of an office upsert batch.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Total    int `json:"total"`
}
