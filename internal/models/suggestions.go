package models

// Suggestion is a board idea or staff pillar item that members vote on.
type Suggestion struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Pillar          *string `json:"pillar"`
	Category        *string `json:"category"`
	AssignedToID    *int64  `json:"assigned_to_id"`
	CreatedByID     *int64  `json:"created_by_id"`
	Status          string  `json:"status"`
	Source          *string `json:"source"`
	ProgressPercent *int    `json:"progress_percent"`
	ProgressNotes   *string `json:"progress_notes"`
	EtaDate         *string `json:"eta_date"`
	CompletedAt     *string `json:"completed_at"`
	CreatedAt       string  `json:"created_at"`

	CreatedByName *string `json:"created_by_name,omitempty"`
	VoteCount     int     `json:"vote_count"`
	LikedByMe     *bool   `json:"liked_by_me,omitempty"`
}

// VoteResult is the outcome of a vote toggle.
type VoteResult struct {
	Voted   bool   `json:"voted"`
	Message string `json:"message"`
}

// VoteUsage reports a user's quota for a vote month.
type VoteUsage struct {
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Month     string `json:"month"`
}

// Pin is a named marker on the member globe.
type Pin struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	CreatedAt string  `json:"created_at,omitempty"`
}
