package homeaccess

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aravhawk/openrank/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const testPassword = "hunter2"

const fakeLoginForm = `
<form action="/HomeAccess/Account/LogOn" method="post">
	<input type="hidden" name="__RequestVerificationToken" value="tok" />
	<select name="Database" id="Database">
		<option value="10" selected>Test School District</option>
	</select>
	<input type="text" name="LogOnDetails.UserName" id="LogOnDetails_UserName" />
	<input type="password" name="LogOnDetails.Password" id="LogOnDetails_Password" />
</form>`

const fakeTranscript = `
<html><body>
<span id="plnMain_lblStudentName">Jane Doe</span>
<div>Weighted Cumulative GPA: 3.87</div>
</body></html>`

// fakePortal mimics the Home Access Center flow: a login form behind a
// district picker, a dashboard linking to the transcript page.
type fakePortal struct {
	requests   atomic.Int64
	transcript string
}

func (p *fakePortal) loginPage(w http.ResponseWriter, failed bool) {
	validation := ""
	if failed {
		validation = `<div class="validation-summary-errors"><ul><li>Invalid user name or password</li></ul></div>`
	}
	fmt.Fprintf(w, "<html><body>%s%s</body></html>", validation, fakeLoginForm)
}

func (p *fakePortal) server() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/HomeAccess/Account/LogOn", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			p.loginPage(w, false)
			return
		}
		r.ParseForm()
		password := r.PostForm.Get("LogOnDetails.Password")
		switch password {
		case "":
			// district selection resubmits the form without credentials
			p.loginPage(w, false)
		case testPassword:
			http.Redirect(w, r, "/HomeAccess", http.StatusFound)
		default:
			p.loginPage(w, true)
		}
	})
	mux.HandleFunc("/HomeAccess", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/HomeAccess/Content/Student/Transcript.aspx">Transcript</a></body></html>`)
	})
	mux.HandleFunc("/HomeAccess/Content/Student/Transcript.aspx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, p.transcript)
	})

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
}

// registerTestDistrict points a district name at the fake portal for the
// duration of one test.
func registerTestDistrict(t *testing.T, baseUrl string) string {
	name := "Test School District"
	knownDistricts = append(knownDistricts, District{
		Name:     name,
		BaseUrl:  baseUrl,
		Database: "10",
	})
	t.Cleanup(func() {
		knownDistricts = knownDistricts[:len(knownDistricts)-1]
	})
	return name
}

func TestFetchGPAUnknownDistrictNoNetwork(t *testing.T) {
	portal := &fakePortal{transcript: fakeTranscript}
	srv := portal.server()
	defer srv.Close()
	registerTestDistrict(t, srv.URL)

	scraper := NewScraper(telemetry.SlogAPI{})
	_, err := scraper.FetchGPA(context.Background(), "Nowhere At All", "jane", testPassword)
	require.ErrorIs(t, err, ErrUnknownDistrict)
	require.EqualValues(t, 0, portal.requests.Load())
}

func TestFetchGPAEmptyCredentialsNoNetwork(t *testing.T) {
	portal := &fakePortal{transcript: fakeTranscript}
	srv := portal.server()
	defer srv.Close()
	district := registerTestDistrict(t, srv.URL)

	scraper := NewScraper(telemetry.SlogAPI{})

	_, err := scraper.FetchGPA(context.Background(), district, "", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = scraper.FetchGPA(context.Background(), district, "jane", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.EqualValues(t, 0, portal.requests.Load())
}

func TestFetchGPAAuthFailed(t *testing.T) {
	portal := &fakePortal{transcript: fakeTranscript}
	srv := portal.server()
	defer srv.Close()
	district := registerTestDistrict(t, srv.URL)

	scraper := NewScraper(telemetry.SlogAPI{})
	_, err := scraper.FetchGPA(context.Background(), district, "jane", "wrong-password")
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestFetchGPASuccess(t *testing.T) {
	portal := &fakePortal{transcript: fakeTranscript}
	srv := portal.server()
	defer srv.Close()
	district := registerTestDistrict(t, srv.URL)

	scraper := NewScraper(telemetry.SlogAPI{})
	gpa, err := scraper.FetchGPA(context.Background(), district, "jane", testPassword)
	require.NoError(t, err)
	require.Equal(t, 3.87, gpa)
}

func TestFetchTranscriptStudentName(t *testing.T) {
	portal := &fakePortal{transcript: fakeTranscript}
	srv := portal.server()
	defer srv.Close()
	district := registerTestDistrict(t, srv.URL)

	scraper := NewScraper(telemetry.SlogAPI{})
	transcript, err := scraper.FetchTranscript(context.Background(), district, "jane", testPassword)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", transcript.StudentName)
	require.Equal(t, 3.87, transcript.GPA)
}

func TestFetchGPAParseError(t *testing.T) {
	portal := &fakePortal{
		transcript: `<html><body><div>Credits Earned: 24</div></body></html>`,
	}
	srv := portal.server()
	defer srv.Close()
	district := registerTestDistrict(t, srv.URL)

	scraper := NewScraper(telemetry.SlogAPI{})
	_, err := scraper.FetchGPA(context.Background(), district, "jane", testPassword)
	require.ErrorIs(t, err, ErrParse)
}

func TestFetchGPANetworkError(t *testing.T) {
	portal := &fakePortal{transcript: fakeTranscript}
	srv := portal.server()
	district := registerTestDistrict(t, srv.URL)
	// portal is down before the first request goes out
	srv.Close()

	scraper := NewScraper(telemetry.SlogAPI{})
	_, err := scraper.FetchGPA(context.Background(), district, "jane", testPassword)
	require.ErrorIs(t, err, ErrNetwork)
}
