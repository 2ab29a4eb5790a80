package homeaccess

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aravhawk/openrank/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// The portal renders the value right after one of these labels. Their order
// matters: the most specific label is tried first.
var gpaLabelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Weighted\s+Cumulative\s+GPA[:\s]*([\d.]+)`),
	regexp.MustCompile(`(?i)Cumulative\s+Weighted\s+GPA[:\s]*([\d.]+)`),
	regexp.MustCompile(`(?i)Weighted\s+GPA[:\s]*([\d.]+)`),
}

var (
	weightedRowPattern = regexp.MustCompile(`(?i)weighted.*cumulative.*gpa`)
	numericCellPattern = regexp.MustCompile(`^[\d.]+$`)
)

// ParseGPA extracts the weighted cumulative gpa from the rendered text of a
// transcript page. It is a pure function so that every label variant can be
// pinned down with fixture strings, no portal required.
func ParseGPA(pageText string) (float64, error) {
	for _, pattern := range gpaLabelPatterns {
		match := pattern.FindStringSubmatch(pageText)
		if len(match) < 2 {
			continue
		}
		gpa, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		return gpa, nil
	}
	return 0, ErrParse
}

// parseTranscriptTables is the fallback for installations that lay the gpa
// out as a table row instead of an inline label: a row mentioning the
// weighted cumulative gpa with a bare numeric cell in the plausible [0, 5]
// range.
func parseTranscriptTables(doc *goquery.Document) (float64, bool) {
	gpa := 0.0
	found := false

	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td, th")
		rowText := strings.Join(cells.Map(func(_ int, cell *goquery.Selection) string {
			return strings.TrimSpace(cell.Text())
		}), " ")
		if !weightedRowPattern.MatchString(rowText) {
			return true
		}

		cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			text := strings.TrimSpace(cell.Text())
			if !numericCellPattern.MatchString(text) {
				return true
			}
			value, err := strconv.ParseFloat(text, 64)
			if err != nil || value < 0 || value > 5 {
				return true
			}
			gpa = value
			found = true
			return false
		})
		return !found
	})

	return gpa, found
}

// Transcript is what one successful scrape yields.
type Transcript struct {
	GPA float64
	// StudentName is the display name on the transcript page, empty when
	// the installation does not render one.
	StudentName string
}

func parseTranscript(doc *goquery.Document) (Transcript, error) {
	transcript := Transcript{}

	doc.Find("[id]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(sel.AttrOr("id", "")), "studentname") {
			return true
		}
		transcript.StudentName = htmlutil.NormalizeText(sel.Text())
		return false
	})

	gpa, err := ParseGPA(doc.Text())
	if err == nil {
		transcript.GPA = gpa
		return transcript, nil
	}

	gpa, ok := parseTranscriptTables(doc)
	if !ok {
		return Transcript{}, ErrParse
	}
	transcript.GPA = gpa
	return transcript, nil
}
