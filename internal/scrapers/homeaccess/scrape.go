// Package homeaccess logs into a Home Access Center portal with student
// credentials and pulls the weighted cumulative gpa off the transcript page.
//
// A scrape is one linear pass: select district, log in, fetch the
// transcript, parse. There is no session reuse, no retrying and no state
// kept between calls.
package homeaccess

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aravhawk/openrank/internal/telemetry"
	"github.com/aravhawk/openrank/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_select_district  = "homeaccess.select-district"
	report_login            = "homeaccess.login"
	report_fetch_transcript = "homeaccess.fetch-transcript"
	report_parse_transcript = "homeaccess.parse-transcript"
)

const defaultTranscriptPath = "/HomeAccess/Content/Student/Transcript.aspx"

// requests against the portal are given this long in total before the call
// is written off as a network failure
const defaultTimeout = 30 * time.Second

// Scraper fetches transcripts from Home Access Center portals. The zero
// value is not usable, construct it with NewScraper.
type Scraper struct {
	timeout time.Duration
	tel     telemetry.API
}

// NewScraper builds a Scraper reporting through the given telemetry API.
func NewScraper(tel telemetry.API) Scraper {
	return Scraper{
		timeout: defaultTimeout,
		tel:     tel,
	}
}

// FetchGPA resolves the district, logs in with the given credentials and
// returns the weighted cumulative gpa from the transcript page. Failures are
// classified by the sentinel errors of this package and are terminal, one
// attempt per call.
func (s Scraper) FetchGPA(ctx context.Context, district, username, password string) (float64, error) {
	transcript, err := s.FetchTranscript(ctx, district, username, password)
	if err != nil {
		return 0, err
	}
	return transcript.GPA, nil
}

// FetchTranscript is FetchGPA plus whatever extra transcript fields the
// portal renders (currently the student display name).
func (s Scraper) FetchTranscript(ctx context.Context, districtName, username, password string) (Transcript, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Transcript{}, ErrInvalidCredentials
	}
	district, err := ResolveDistrict(districtName)
	if err != nil {
		return Transcript{}, err
	}

	c, err := newClient(district, s.timeout, s.tel)
	if err != nil {
		return Transcript{}, err
	}

	err = c.selectDistrict(ctx, district)
	if err != nil {
		return Transcript{}, err
	}
	err = c.login(ctx, username, password)
	if err != nil {
		return Transcript{}, err
	}
	doc, err := c.fetchTranscriptPage(ctx)
	if err != nil {
		return Transcript{}, err
	}

	transcript, err := parseTranscript(doc)
	if err != nil {
		c.tel.ReportBroken(report_parse_transcript, err, district.Name)
		return Transcript{}, err
	}

	if transcript.GPA < 0 || transcript.GPA > 6 {
		// surfaced as-is, the portal is the authority on its own scale
		c.tel.ReportWarning(
			report_parse_transcript,
			fmt.Errorf("gpa outside the plausible range"),
			transcript.GPA,
		)
	}

	return transcript, nil
}

func networkError(stage string, err error) error {
	return fmt.Errorf("%s: %w: %v", stage, ErrNetwork, err)
}

func statusError(stage string, status int) error {
	return fmt.Errorf("%s: %w: portal answered with status %d", stage, ErrNetwork, status)
}

// selectDistrict fetches the login page and, on shared installations that
// present a district picker, posts the district choice so that the session
// is bound to the right database before credentials go in. The resulting
// login page markup is kept on the client for login to use.
func (c *client) selectDistrict(ctx context.Context, district District) error {
	res, err := c.http.R().SetContext(ctx).Get(loginPath)
	if err != nil {
		c.tel.ReportBroken(report_select_district, err)
		return networkError("fetch login page", err)
	}
	if res.IsError() {
		c.tel.ReportBroken(report_select_district, nil, res.StatusCode())
		return statusError("fetch login page", res.StatusCode())
	}
	c.loginPageHtml = res.Body()

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_select_district, fmt.Errorf("parse login page: %w", err))
		return fmt.Errorf("parse login page: %w", ErrParse)
	}

	picker := doc.Find("select#Database")
	if picker.Length() == 0 {
		picker = doc.Find("select[name=Database]")
	}
	if picker.Length() == 0 {
		// single-district installation, nothing to choose
		c.tel.ReportDebug(report_select_district, "no district picker")
		return nil
	}

	form, action := htmlutil.ParseForm(doc)
	form.Set("Database", district.Database)

	actionUrl := c.resolveUrl(loginPath)
	if action != "" {
		actionUrl = c.resolveUrl(action)
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(actionUrl)
	if err != nil {
		c.tel.ReportBroken(report_select_district, fmt.Errorf("post district choice: %w", err))
		return networkError("post district choice", err)
	}
	if res.IsError() {
		return statusError("post district choice", res.StatusCode())
	}

	c.loginPageHtml = res.Body()
	return nil
}

// login submits the credentials into the login form kept from district
// selection and decides whether the portal accepted them.
func (c *client) login(ctx context.Context, username, password string) error {
	html := c.loginPageHtml
	if len(html) == 0 {
		res, err := c.http.R().SetContext(ctx).Get(loginPath)
		if err != nil {
			c.tel.ReportBroken(report_login, err)
			return networkError("fetch login page", err)
		}
		if res.IsError() {
			return statusError("fetch login page", res.StatusCode())
		}
		html = res.Body()
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(html))
	if err != nil {
		c.tel.ReportBroken(report_login, fmt.Errorf("parse login page: %w", err))
		return fmt.Errorf("parse login page: %w", ErrParse)
	}

	form, action := htmlutil.ParseForm(doc)

	usernameField := ""
	passwordField := ""
	doc.Find("form input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		if usernameField == "" && strings.Contains(strings.ToLower(name), "username") {
			usernameField = name
			return
		}
		// the portal hides a decoy "temp" password input on some pages
		isTemp := strings.Contains(strings.ToLower(input.AttrOr("id", "")), "temp")
		if passwordField == "" && input.AttrOr("type", "") == "password" && !isTemp {
			passwordField = name
		}
	})
	if usernameField == "" || passwordField == "" {
		err := fmt.Errorf("could not locate the credential fields: %w", ErrParse)
		c.tel.ReportBroken(report_login, err)
		return err
	}

	form.Set(usernameField, username)
	form.Set(passwordField, password)

	actionUrl := c.resolveUrl(loginPath)
	if action != "" {
		actionUrl = c.resolveUrl(action)
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(actionUrl)
	if err != nil {
		c.tel.ReportBroken(report_login, fmt.Errorf("post credentials: %w", err))
		return networkError("post credentials", err)
	}
	if res.IsError() {
		return statusError("post credentials", res.StatusCode())
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_login, fmt.Errorf("parse post-login page: %w", err))
		return fmt.Errorf("parse post-login page: %w", ErrParse)
	}

	// rejected credentials render a validation summary, or bounce the
	// session right back onto the LogOn page
	if doc.Find("div.validation-summary-errors").Length() > 0 {
		c.tel.ReportDebug(report_login, "validation summary present")
		return ErrAuthFailed
	}
	finalUrl := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	if strings.Contains(strings.ToLower(finalUrl), "logon") {
		c.tel.ReportDebug(report_login, "still on the logon page", finalUrl)
		return ErrAuthFailed
	}

	return nil
}

// fetchTranscriptPage walks from the dashboard to the transcript page,
// preferring whatever transcript link the dashboard renders and falling back
// to the well-known path.
func (c *client) fetchTranscriptPage(ctx context.Context) (*goquery.Document, error) {
	res, err := c.http.R().SetContext(ctx).Get("/HomeAccess")
	if err != nil {
		c.tel.ReportBroken(report_fetch_transcript, fmt.Errorf("fetch dashboard: %w", err))
		return nil, networkError("fetch dashboard", err)
	}
	if res.IsError() {
		return nil, statusError("fetch dashboard", res.StatusCode())
	}

	transcriptHref := defaultTranscriptPath
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err == nil {
		for _, anchor := range htmlutil.GetAnchors(doc.Find("a[href]")) {
			if strings.Contains(strings.ToLower(anchor.Href), "transcript") {
				transcriptHref = anchor.Href
				break
			}
		}
	}
	c.tel.ReportDebug(report_fetch_transcript, transcriptHref)

	res, err = c.http.R().SetContext(ctx).Get(c.resolveUrl(transcriptHref))
	if err != nil {
		c.tel.ReportBroken(report_fetch_transcript, fmt.Errorf("fetch transcript: %w", err))
		return nil, networkError("fetch transcript", err)
	}
	if res.IsError() {
		return nil, statusError("fetch transcript", res.StatusCode())
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_fetch_transcript, fmt.Errorf("parse transcript: %w", err))
		return nil, fmt.Errorf("parse transcript: %w", ErrParse)
	}
	return doc, nil
}
