package extract

import (
	"strings"
	"testing"

	"bill_spider/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const billPage = `<html><body>
<div class="bill-list-item">
<span>S. 1 -- Sens. <a href="/member.php?chamber=S&amp;code=1234">Smith</a>, <a href="/member.php?chamber=S&amp;code=5678"> Jones </a>: Education Reform</span>
<div><b>Current Status:</b> Introduced</div>
<p><b>Summary:</b> Short title<br/>Long abstract</p>
</div>
<table>
<tr><th>Date</th><th>Body</th><th>Description</th></tr>
<tr><td>1/14/2025</td><td>Senate</td><td>Introduced and read first time</td></tr>
<tr></tr>
</table>
<table><tr><td>ignored</td></tr></table>
</body></html>`

func page(t *testing.T, raw string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

func ptr(s string) *string { return &s }

func TestBill(t *testing.T) {
	record, err := Bill(page(t, billPage), "2025-26", 1, models.Senate)
	require.NoError(t, err)

	expected := &models.BillRecord{
		SessionLabel: "2025-26",
		BillNumber:   1,
		Chamber:      models.Senate,
		HeaderText:   "S. 1 -- Sens. Smith,  Jones : Education Reform",
		Sponsors: []models.Sponsor{
			{MemberCode: "1234", Name: "Smith"},
			{MemberCode: "5678", Name: "Jones"},
		},
		TitleSummary: ptr("Short title"),
		Abstract:     ptr("Long abstract"),
		Actions: [][]string{
			{"Date", "Body", "Description"},
			{"1/14/2025", "Senate", "Introduced and read first time"},
		},
	}
	if diff := cmp.Diff(expected, record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "2025-26-1", record.Key())
}

func TestBillIsDeterministic(t *testing.T) {
	doc := page(t, billPage)
	first, err := Bill(doc, "2025-26", 1, models.Senate)
	require.NoError(t, err)
	second, err := Bill(doc, "2025-26", 1, models.Senate)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(first, second))
}

func TestSponsorsKeepOrderAndSkipLinksWithoutCode(t *testing.T) {
	doc := page(t, `<span>
<a href="/member.php?code=5">Smith</a>
<a href="/member.php?code=7">Jones</a>
<a href="/committee.php?id=3">Other</a>
<a href="/member.php?code=5">Smith</a>
</span>`)

	sponsors := Sponsors(doc.Find("span").First())
	require.Equal(t, []models.Sponsor{
		{MemberCode: "5", Name: "Smith"},
		{MemberCode: "7", Name: "Jones"},
		{MemberCode: "5", Name: "Smith"},
	}, sponsors)
}

func TestSponsorsEmptyHeader(t *testing.T) {
	doc := page(t, `<span>H. 3001 -- Committee on Ways and Means</span>`)
	sponsors := Sponsors(doc.Find("span").First())
	require.NotNil(t, sponsors)
	require.Empty(t, sponsors)
}

func TestActionsDropEmptyRows(t *testing.T) {
	doc := page(t, `<table><tr><td>1/1/2025</td><td>Introduced</td></tr><tr></tr></table>`)
	require.Equal(t, [][]string{{"1/1/2025", "Introduced"}}, Actions(doc.Selection))
}

func TestActionsWithoutTable(t *testing.T) {
	doc := page(t, `<div>no history</div>`)
	actions := Actions(doc.Selection)
	require.NotNil(t, actions)
	require.Empty(t, actions)
}

func TestBillOptionalSummaryFields(t *testing.T) {
	testCases := []struct {
		name     string
		summary  string
		title    *string
		abstract *string
	}{
		{
			name:     "title only",
			summary:  `<b>Summary:</b> Short title`,
			title:    ptr("Short title"),
			abstract: nil,
		},
		{
			name:    "no siblings",
			summary: `<b>Summary:</b>`,
		},
		{
			name:     "label case and spacing",
			summary:  `<b> SUMMARY : </b>Title<br/>Abstract text `,
			title:    ptr("Title"),
			abstract: ptr("Abstract text"),
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			raw := `<div class="bill-list-item"><span>H. 3001</span><p>` + test.summary + `</p></div>`
			record, err := Bill(page(t, raw), "2025-26", 3001, models.House)
			require.NoError(t, err)
			require.Equal(t, test.title, record.TitleSummary)
			require.Equal(t, test.abstract, record.Abstract)
			require.Empty(t, record.Actions)
			require.Equal(t, models.House, record.Chamber)
		})
	}
}

func TestBillMalformed(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "no container", raw: `<div class="search-results">No bills found</div>`},
		{name: "no header", raw: `<div class="bill-list-item"><b>Summary:</b> x</div>`},
		{name: "no summary label", raw: `<div class="bill-list-item"><span>S. 2</span><b>Status:</b> x</div>`},
		{name: "summary outside container", raw: `<div class="bill-list-item"><span>S. 2</span></div><b>Summary:</b> x`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := Bill(page(t, test.raw), "2025-26", 2, models.Senate)
			var malformed *MalformedPageError
			require.ErrorAs(t, err, &malformed)
		})
	}
}

func TestFromHTML(t *testing.T) {
	record, err := FromHTML(strings.NewReader(billPage), "2025-26", 1, models.Senate)
	require.NoError(t, err)
	require.Len(t, record.Actions, 2)
	require.Equal(t, "Smith", record.Sponsors[0].Name)
}
