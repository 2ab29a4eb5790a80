package htmlutil

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const formPage = `
<html><body>
<form action="/Account/LogOn" method="post">
	<input type="hidden" name="__RequestVerificationToken" value="abc123" />
	<input type="text" name="UserName" value="" />
	<input type="password" name="Password" />
	<select name="Database">
		<option value="10">First District</option>
		<option value="20" selected>Second District</option>
	</select>
</form>
</body></html>`

func TestParseForm(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(formPage))
	require.NoError(t, err)

	values, action := ParseForm(doc)
	require.Equal(t, "/Account/LogOn", action)
	require.Equal(t, "abc123", values.Get("__RequestVerificationToken"))
	require.Equal(t, "20", values.Get("Database"))
	// unfilled inputs still show up so hidden state is preserved on submit
	require.Equal(t, "", values.Get("UserName"))
}

func TestParseFormNoForm(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString("<html><body><p>hi</p></body></html>"))
	require.NoError(t, err)

	values, action := ParseForm(doc)
	require.Empty(t, action)
	require.Empty(t, values)
}

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(
		`<a href="/HomeAccess/Content/Student/Transcript.aspx">  View   Transcript  </a>`,
	))
	require.NoError(t, err)

	anchors := GetAnchors(doc.Find("a"))
	require.Len(t, anchors, 1)
	require.Equal(t, "View Transcript", anchors[0].Name)
	require.Equal(t, "/HomeAccess/Content/Student/Transcript.aspx", anchors[0].Href)
}

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "a b", NormalizeText("  a \t\n b "))
}
