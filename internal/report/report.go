// Package report renders PDF documents: the letter of good standing issued
// for LOGS requests and the monthly goal report.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

const (
	association = "Bonita Springs-Estero REALTORS®"
	contactLine = "Membership Department | support@berealtors.org"
)

func newDoc() (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func letterhead(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, tr(association), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr(contactLine), "B", 1, "C", false, 0, "")
	pdf.Ln(10)
}

// LettersOfGoodStanding writes the letter for one LOGS request. member is the
// roster record matched at submission time and may be nil.
func LettersOfGoodStanding(w io.Writer, req models.LogsRequest, member *models.Member, issued time.Time) error {
	pdf, tr := newDoc()
	pdf.AddPage()
	letterhead(pdf, tr)

	name := strings.TrimSpace(req.FirstName + " " + req.LastName)
	if member != nil && util.Deref(member.FullName) != "" {
		name = util.Deref(member.FullName)
	}

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, issued.Format("January 2, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "Letter of Good Standing", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr("To whom it may concern:"), "", "L", false)
	pdf.Ln(3)

	var body string
	if member != nil {
		body = fmt.Sprintf("This letter confirms that %s is a member of %s. Our records show a membership status of %s.",
			name, association, orNA(member.MembershipStatus))
	} else {
		body = fmt.Sprintf("%s requested a letter of good standing from %s. No roster record could be matched automatically; this letter was issued after manual review.",
			name, association)
	}
	pdf.MultiCell(0, 6, tr(body), "", "L", false)
	pdf.Ln(4)

	rows := [][2]string{
		{"Name", name},
		{"NRDS ID", firstNonEmpty(req.NRDSID, derefOr(member, func(m *models.Member) *string { return m.NRDSID }))},
		{"Office", derefOr(member, func(m *models.Member) *string { return m.OfficeName })},
		{"Organization", req.Organization},
		{"Memberships dropped", strings.Join(req.DropMemberships, ", ")},
		{"Effective", req.DropWhen},
		{"Code of Ethics training", derefOr(member, func(m *models.Member) *string { return m.COELatestDate })},
	}
	for _, r := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(55, 6, tr(r[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, tr(valueOrNA(r[1])), "", "L", false)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr("Sincerely,\n\nMembership Department\n"+association), "", "L", false)

	return output(pdf, w)
}

// GoalReport writes the goals of one period grouped by category, each with
// its progress and subtasks.
func GoalReport(w io.Writer, period string, goals []models.Goal, subtasks map[int64][]models.GoalSubtask) error {
	pdf, tr := newDoc()
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, tr(fmt.Sprintf("Goal Report: %s", period)))
	pdf.Ln(12)

	if len(goals) == 0 {
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, "  - No goals recorded.")
		pdf.Ln(8)
		return output(pdf, w)
	}

	complete, total := 0, 0
	category := "\x00"
	for _, g := range goals {
		if g.Category != category {
			category = g.Category
			pdf.Ln(2)
			pdf.SetFont("Arial", "B", 14)
			pdf.Cell(0, 10, tr(valueOr(category, "Uncategorized")))
			pdf.Ln(8)
		}

		status := "[ ]"
		if g.IsComplete == 1 {
			status = "[x]"
			complete++
		}
		total += g.ProgressPercent

		pdf.SetFont("Arial", "", 12)
		line := fmt.Sprintf("%s %s (%d%%)", status, g.Title, g.ProgressPercent)
		if g.OwnerName != nil {
			line += " - " + *g.OwnerName
		}
		pdf.MultiCell(0, 7, tr(line), "", "L", false)
		progressBar(pdf, g.ProgressPercent)

		pdf.SetFont("Arial", "", 10)
		for _, s := range subtasks[g.ID] {
			mark := "[ ]"
			if s.Status == models.StatusDone {
				mark = "[x]"
			}
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("        %s %s (weight %d)", mark, s.Title, s.Weight)), "", "L", false)
		}
		pdf.Ln(2)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Goals complete: %d of %d, average progress %d%%", complete, len(goals), total/len(goals)))
	pdf.Ln(10)
	return output(pdf, w)
}

func progressBar(pdf *fpdf.Fpdf, percent int) {
	const width = 80.0
	x, y := pdf.GetXY()
	x += 8
	pdf.SetDrawColor(160, 160, 160)
	pdf.Rect(x, y, width, 3, "D")
	if p := util.Clamp(percent, 0, 100); p > 0 {
		pdf.SetFillColor(46, 139, 87)
		pdf.Rect(x, y, width*float64(p)/100, 3, "F")
	}
	pdf.SetXY(pdf.GetX(), y+5)
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func derefOr(m *models.Member, field func(*models.Member) *string) string {
	if m == nil {
		return ""
	}
	return util.Deref(field(m))
}

func orNA(s *string) string { return valueOrNA(util.Deref(s)) }

func valueOrNA(s string) string { return valueOr(s, "N/A") }

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
