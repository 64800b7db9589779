package models

import (
	"fmt"
	"time"
)

type Chamber string

const (
	Senate Chamber = "S"
	House  Chamber = "H"
)

// Chambers is the order in which a session is crawled.
var Chambers = []Chamber{Senate, House}

func (c Chamber) String() string {
	switch c {
	case Senate:
		return "Senate"
	case House:
		return "House"
	default:
		return "Unknown"
	}
}

// BillRange is an inclusive bill number range allocated to a chamber.
type BillRange struct {
	First int `yaml:"first"`
	Last  int `yaml:"last"`
}

func (r BillRange) Contains(n int) bool {
	return n >= r.First && n <= r.Last
}

// DefaultRanges is the legislative-services numbering convention, the same
// for every session.
var DefaultRanges = map[Chamber]BillRange{
	Senate: {First: 1, Last: 2999},
	House:  {First: 3000, Last: 5999},
}

type Sponsor struct {
	MemberCode string `json:"member_code" bson:"member_code"`
	Name       string `json:"name" bson:"name"`
}

type BillRecord struct {
	SessionLabel string     `json:"session" bson:"session"`
	BillNumber   int        `json:"bill_number" bson:"bill_number"`
	Chamber      Chamber    `json:"chamber" bson:"chamber"`
	HeaderText   string     `json:"bill_header" bson:"bill_header"`
	Sponsors     []Sponsor  `json:"sponsors" bson:"sponsors"`
	TitleSummary *string    `json:"title summary" bson:"title_summary"`
	Abstract     *string    `json:"abstract" bson:"abstract"`
	Actions      [][]string `json:"actions" bson:"actions"`
}

func (b *BillRecord) Key() string {
	return Key(b.SessionLabel, b.BillNumber)
}

func Key(sessionLabel string, billNumber int) string {
	return fmt.Sprintf("%s-%d", sessionLabel, billNumber)
}

// BillSet is the persisted mapping from crawl key to bill.
type BillSet map[string]*BillRecord

func (s BillSet) Put(b *BillRecord) {
	s[b.Key()] = b
}

// Unit is one (session, chamber, bill number) candidate.
type Unit struct {
	SessionID    int
	SessionLabel string
	Chamber      Chamber
	BillNumber   int
}

func (u Unit) Key() string {
	return Key(u.SessionLabel, u.BillNumber)
}

func (u Unit) String() string {
	return fmt.Sprintf("session %d (%s) %s bill %d", u.SessionID, u.SessionLabel, u.Chamber, u.BillNumber)
}

type CrawlRun struct {
	ID          string    `json:"id" bson:"_id"`
	Incremental bool      `json:"incremental" bson:"incremental"`
	Sessions    []int     `json:"sessions" bson:"sessions"`
	Started     time.Time `json:"started" bson:"started"`
	Finished    time.Time `json:"finished" bson:"finished"`
	Fetched     int       `json:"fetched" bson:"fetched"`
	Invalid     int       `json:"invalid" bson:"invalid"`
	Transient   int       `json:"transient" bson:"transient"`
	Malformed   int       `json:"malformed" bson:"malformed"`
	Total       int       `json:"total" bson:"total"`
}

func (r *CrawlRun) String() string {
	return fmt.Sprintf("fetched=%d invalid=%d transient=%d malformed=%d total=%d",
		r.Fetched, r.Invalid, r.Transient, r.Malformed, r.Total)
}
