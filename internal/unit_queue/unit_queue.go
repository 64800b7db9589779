package unitqueue

import (
	"fmt"
	"net/url"
	"strconv"

	"bill_spider/internal/models"
)

// Enumerate returns start..r.Last in ascending order. A start below the range
// is clamped to r.First; a start past r.Last yields an empty slice.
func Enumerate(r models.BillRange, start int) []int {
	if start < r.First {
		start = r.First
	}
	if start > r.Last {
		return []int{}
	}
	numbers := make([]int, 0, r.Last-start+1)
	for n := start; n <= r.Last; n++ {
		numbers = append(numbers, n)
	}
	return numbers
}

// UnitQueue hands out the units of one (session, chamber) scan in order.
type UnitQueue struct {
	SessionID    int
	SessionLabel string
	Chamber      models.Chamber
	numbers      []int
}

func NewUnitQueue(sessionID int, label string, chamber models.Chamber, r models.BillRange, start int) *UnitQueue {
	return &UnitQueue{
		SessionID:    sessionID,
		SessionLabel: label,
		Chamber:      chamber,
		numbers:      Enumerate(r, start),
	}
}

func (q *UnitQueue) Get() (models.Unit, bool) {
	if len(q.numbers) == 0 {
		return models.Unit{}, false
	}
	n := q.numbers[0]
	q.numbers = q.numbers[1:]
	return models.Unit{
		SessionID:    q.SessionID,
		SessionLabel: q.SessionLabel,
		Chamber:      q.Chamber,
		BillNumber:   n,
	}, true
}

func (q *UnitQueue) Size() int {
	return len(q.numbers)
}

// BillURL builds the bill-search URL for a unit: the fixed params plus
// billnumbers and session.
func BillURL(searchURL string, fixed map[string]string, u models.Unit) (string, error) {
	parsed, err := url.Parse(searchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	query := parsed.Query()
	query.Set("billnumbers", strconv.Itoa(u.BillNumber))
	query.Set("session", strconv.Itoa(u.SessionID))
	for k, v := range fixed {
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()
	parsed.Fragment = ""

	return parsed.String(), nil
}
