package homeaccess

import (
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/aravhawk/openrank/internal/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const loginPath = "/HomeAccess/Account/LogOn?ReturnUrl=%2fhomeaccess"

// client holds one logged-in (or logging-in) portal session. Sessions are
// never reused across scrape calls, every call builds a fresh client and
// throws it away.
type client struct {
	baseUrl *url.URL
	http    *resty.Client

	// the login page markup as of the district selection, kept so the
	// credential submit does not have to re-fetch it
	loginPageHtml []byte

	tel telemetry.API
}

func newClient(district District, timeout time.Duration, tel telemetry.API) (*client, error) {
	tel = telemetry.NewScopedAPI("homeaccess_scraper", tel)

	parsedBaseUrl, err := url.Parse(district.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(district.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(timeout)

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &client{
		baseUrl: parsedBaseUrl,
		http:    httpClient,
		tel:     tel,
	}, nil
}

// resolveUrl turns the relative action/href attributes the portal emits into
// absolute urls on the portal host.
func (c *client) resolveUrl(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return c.baseUrl.String()
	}
	return c.baseUrl.ResolveReference(parsed).String()
}
