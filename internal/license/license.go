// Package license verifies Florida real-estate licenses against the DBPR
// public lookup.
package license

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/berealtors/wrapsheet/internal/config"
)

const (
	DefaultBaseURL = "https://www.myfloridalicense.com"
	Provider       = "DBPR (Live Scraped)"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Messages returned with an invalid result.
const (
	MsgTooShort  = "License number too short"
	MsgNoRecords = "No records found on DBPR."
	MsgNoRow     = "License found but could not verify result row structure."
	MsgNoColumns = "Could not parse columns from DBPR result."
)

// Details are the columns of the matching DBPR result row.
type Details struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	StatusExpires string `json:"status_expires"`
	NumberRank    string `json:"number_rank"`
}

// Result is the outcome of one lookup.
type Result struct {
	Valid    bool     `json:"valid"`
	License  string   `json:"license,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Message  string   `json:"message,omitempty"`
	Details  *Details `json:"details,omitempty"`
}

// Verifier scrapes the DBPR license search.
type Verifier struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
}

func New(timeout time.Duration) *Verifier {
	return &Verifier{BaseURL: DefaultBaseURL, Timeout: timeout}
}

// Clean strips everything except digits, so "SL3360322" becomes "3360322".
func Clean(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Verify looks up number. A lookup that reaches DBPR always yields a
// Result; errors are reserved for transport failures.
func (v *Verifier) Verify(ctx context.Context, number string) (Result, error) {
	clean := Clean(number)
	if len(clean) < config.MinLicenseDigits {
		return Result{Message: MsgTooShort}, nil
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return Result{}, fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar, Timeout: v.Timeout, Transport: v.Transport}

	searchURL := v.pageURL(1)
	if err := v.openSearch(ctx, client, searchURL); err != nil {
		return Result{}, err
	}
	html, err := v.search(ctx, client, searchURL, clean)
	if err != nil {
		return Result{}, err
	}
	return parseResult(clean, html)
}

func (v *Verifier) pageURL(mode int) string {
	base := strings.TrimRight(v.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/wl11.asp?mode=%d&search=LicNbr&SID=&brd=&typ=", base, mode)
}

// openSearch loads the search page so the jar picks up the session cookie.
func (v *Verifier) openSearch(ctx context.Context, client *http.Client, searchURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("DBPR search page: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (v *Verifier) search(ctx context.Context, client *http.Client, referer, number string) (string, error) {
	form := searchForm(number)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.pageURL(2), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create lookup request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", referer)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("DBPR lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("DBPR POST returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read DBPR response: %w", err)
	}
	return string(body), nil
}

// hiddenFields are posted empty, except hDivision, to mirror the search form.
var hiddenFields = []string{
	"hSID", "hSearchType", "hLastName", "hFirstName", "hMiddleName", "hOrgName",
	"hSearchOpt", "hSearchOpt2", "hSearchAltName", "hSearchPartName", "hSearchFuzzy",
	"hDivision", "hBoard", "hLicenseType", "hSpecQual", "hAddrType", "hCity",
	"hCounty", "hState", "hLicNbr", "hAction", "hCurrPage", "hTotalPages",
	"hTotalRecords", "hPageAction", "hDDChange", "hBoardType", "hLicTyp",
	"hSearchHistoric", "hRecsPerPage",
}

func searchForm(number string) url.Values {
	form := url.Values{}
	for _, f := range hiddenFields {
		form.Set(f, "")
	}
	form.Set("hSearchType", "LicNbr")
	form.Set("hDivision", "ALL")
	form.Set("LicNbr", number)
	form.Set("Board", "")
	form.Set("LicenseType", "")
	form.Set("SpecQual", "")
	form.Set("RecsPerPage", "50")
	form.Set("Search1", "Search")
	return form
}

func parseResult(number, html string) (Result, error) {
	if strings.Contains(html, "No records found") || strings.Contains(html, "Invalid License Number") {
		return Result{Message: MsgNoRecords}, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, fmt.Errorf("parse DBPR result: %w", err)
	}

	row := doc.Find(`a[href*="LicenseDetail.asp"]`).First().Closest("tr")
	if row.Length() == 0 {
		return Result{Message: MsgNoRow}, nil
	}
	var cols []string
	row.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		cols = append(cols, cellText(td))
	})
	if len(cols) < 5 {
		return Result{Message: MsgNoColumns}, nil
	}
	return Result{
		Valid:    true,
		License:  number,
		Provider: Provider,
		Details: &Details{
			Name:          cols[1],
			Type:          cols[0],
			StatusExpires: cols[4],
			NumberRank:    cols[3],
		},
	}, nil
}

// cellText flattens a cell: line breaks become " | " and whitespace runs,
// including &nbsp;, collapse to one space.
func cellText(td *goquery.Selection) string {
	td.Find("br").ReplaceWithHtml(" | ")
	return strings.Join(strings.Fields(td.Text()), " ")
}
