// Package extract turns a rendered bill-search page into a BillRecord.
//
// Extraction is pure: the same document always yields the same record.
// Layout variations that real bill pages show (no abstract, no sponsor links,
// no action table) produce absent fields. A page without a bill-list item or a
// summary label is not a bill page and yields a *MalformedPageError.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"bill_spider/internal/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	reSummaryLabel = regexp.MustCompile(`(?i)summary\s*:`)
	reMemberCode   = regexp.MustCompile(`code=(\d+)`)
)

const (
	billListItemSelector = "div.bill-list-item"
	titleSiblingIndex    = 0
	abstractSiblingIndex = 2
)

type MalformedPageError struct {
	Reason string
}

func (e *MalformedPageError) Error() string {
	return "malformed bill page: " + e.Reason
}

func FromHTML(r io.Reader, sessionLabel string, billNumber int, chamber models.Chamber) (*models.BillRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return Bill(doc, sessionLabel, billNumber, chamber)
}

func Bill(doc *goquery.Document, sessionLabel string, billNumber int, chamber models.Chamber) (*models.BillRecord, error) {
	items := doc.Find(billListItemSelector)
	if items.Length() == 0 {
		return nil, &MalformedPageError{Reason: "no bill-list-item container"}
	}
	item := items.First()

	header := item.Find("span").First()
	if header.Length() == 0 {
		return nil, &MalformedPageError{Reason: "bill-list-item has no header span"}
	}

	label := summaryLabel(item)
	if label == nil {
		return nil, &MalformedPageError{Reason: "no Summary: label"}
	}
	siblings := followingSiblings(label)

	return &models.BillRecord{
		SessionLabel: sessionLabel,
		BillNumber:   billNumber,
		Chamber:      chamber,
		HeaderText:   strings.TrimSpace(header.Text()),
		Sponsors:     Sponsors(header),
		TitleSummary: siblingText(siblings, titleSiblingIndex),
		Abstract:     siblingText(siblings, abstractSiblingIndex),
		Actions:      Actions(doc.Selection),
	}, nil
}

// Sponsors pairs member codes with display names for every link in the
// header whose href carries code=<digits>, in document order.
func Sponsors(header *goquery.Selection) []models.Sponsor {
	sponsors := []models.Sponsor{}
	header.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, "code=") {
			return
		}
		m := reMemberCode.FindStringSubmatch(href)
		if m == nil {
			return
		}
		sponsors = append(sponsors, models.Sponsor{
			MemberCode: m[1],
			Name:       strings.TrimSpace(a.Text()),
		})
	})
	return sponsors
}

// Actions reads the first table under sel. Rows without th/td cells are
// dropped.
func Actions(sel *goquery.Selection) [][]string {
	actions := [][]string{}
	sel.Find("table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			actions = append(actions, cells)
		}
	})
	return actions
}

func summaryLabel(item *goquery.Selection) *html.Node {
	label := item.Find("b").FilterFunction(func(_ int, b *goquery.Selection) bool {
		return reSummaryLabel.MatchString(b.Text())
	}).First()
	if label.Length() == 0 {
		return nil
	}
	return label.Get(0)
}

// followingSiblings includes text nodes; goquery's NextAll only sees elements.
func followingSiblings(node *html.Node) []*html.Node {
	var siblings []*html.Node
	for sib := node.NextSibling; sib != nil; sib = sib.NextSibling {
		siblings = append(siblings, sib)
	}
	return siblings
}

func siblingText(siblings []*html.Node, i int) *string {
	if i >= len(siblings) {
		return nil
	}
	text := strings.TrimSpace(nodeText(siblings[i]))
	return &text
}

func nodeText(node *html.Node) string {
	var buffer bytes.Buffer
	nodeTextRecursive(node, &buffer)
	return buffer.String()
}

func nodeTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		nodeTextRecursive(child, buffer)
	}
}
