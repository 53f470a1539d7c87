package mailer

import (
	"fmt"
	"strings"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// CompletionMessage tells the assigner of task that it was completed.
func CompletionMessage(from Address, task models.DailyTask) Message {
	assigner := util.Deref(task.AssignedByName)
	greeting := assigner
	if greeting == "" {
		greeting = "there"
	}
	notes := task.Notes
	if notes == "" {
		notes = "(none)"
	}
	text := strings.Join([]string{
		fmt.Sprintf("Hi %s,", greeting),
		"",
		"The task you assigned has been marked complete.",
		"",
		"Task: " + task.Title,
		"Date Assigned: " + util.Deref(task.AssignedAt),
		"Date Completed: " + util.Deref(task.CompletedAt),
		"",
		"Notes: " + notes,
		"",
		"– BER Wrap Sheet",
	}, "\n")

	return Message{
		Kind:    KindCompletion,
		From:    from,
		To:      []Address{{Email: util.Deref(task.AssignedByEmail), Name: assigner}},
		Subject: "Task completed: " + task.Title,
		Text:    text,
	}
}

// LogsRequestMessage summarises a LOGS submission for the staff recipients.
// member is nil when no roster record matched.
func LogsRequestMessage(from string, form models.LogsForm, member *models.Member, matchStatus string) Message {
	or := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	found := "NOT FOUND"
	if member != nil {
		found = "FOUND"
	}
	lines := []string{
		"A new Letter of Good Standing / membership change request was submitted:",
		"",
		fmt.Sprintf("Name: %s %s", form.FirstName, form.LastName),
		"Organization: " + or(form.Organization, "(none given)"),
		"NRDS entered: " + or(form.NRDSID, "(none)"),
		"",
		"Drop membership(s): " + or(strings.Join(form.DropMemberships, ", "), "(none selected)"),
		"When to drop: " + or(form.DropWhen, "(not provided)"),
		"",
		"Change reason(s): " + or(strings.Join(form.ChangeReasons, ", "), "(none selected)"),
		"Other (why): " + or(form.OtherWhy, "(not provided)"),
		"",
		"Feedback (if leaving for another association): " + or(form.LeavingFeedback, "(not provided)"),
		"New contact (if changing brokers/boards): " + or(form.NewContact, "(not provided)"),
		"",
		"New broker interested in secondary membership: " + or(form.NewBrokerInterested, "(not given)"),
		"Needs Letter of Good Standing: " + or(form.NeedsLetter, "(not given)"),
		"Cancel Supra eKey: " + or(form.CancelSupra, "(not given)"),
		"Listings to transfer: " + or(form.HasListings, "(not given)"),
		"",
		fmt.Sprintf("Member match status: %s (%s)", found, matchStatus),
	}
	if member != nil {
		lines = append(lines,
			"",
			"Matched member record:",
			"  NRDS: "+util.Deref(member.NRDSID),
			"  Full name: "+util.Deref(member.FullName),
			"  Memberships: "+util.Deref(member.Memberships),
			"  Office: "+util.Deref(member.OfficeName),
			"  Status: "+util.Deref(member.MembershipStatus),
		)
	}

	to := make([]Address, 0, len(config.LogsRecipients))
	for _, r := range config.LogsRecipients {
		to = append(to, Address{Email: r.Email, Name: r.Name})
	}
	subject := strings.TrimSpace(fmt.Sprintf("LOGS / Membership Change Request – %s %s", form.FirstName, form.LastName))

	return Message{
		Kind:    KindLogs,
		From:    Address{Email: from, Name: "BER LOGS Requests"},
		To:      to,
		Subject: subject,
		Text:    strings.Join(lines, "\n"),
	}
}
