package homeaccess

import "errors"

// Every failure mode of a scrape call maps onto exactly one of these
// sentinels so that callers can branch with errors.Is without ever looking
// at portal markup. A single call terminates on the first failure, there
// are no retries.
var (
	// ErrInvalidCredentials is returned before any network activity when
	// the username or password is empty.
	ErrInvalidCredentials = errors.New("username and password must not be empty")

	// ErrUnknownDistrict is returned before any network activity when the
	// district does not resolve against the known district table.
	ErrUnknownDistrict = errors.New("unknown school district")

	// ErrAuthFailed means the portal itself rejected the credentials.
	ErrAuthFailed = errors.New("the portal rejected the credentials")

	// ErrNetwork wraps connection and timeout failures talking to the portal.
	ErrNetwork = errors.New("could not reach the portal")

	// ErrParse means the fetched transcript page did not carry a weighted
	// cumulative gpa in any recognized form.
	ErrParse = errors.New("no weighted cumulative gpa found on the transcript page")
)
