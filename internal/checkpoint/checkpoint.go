// Package checkpoint computes resume points from previously persisted bills.
package checkpoint

import (
	"fmt"

	"bill_spider/internal/models"
)

type NoPriorDataError struct {
	SessionLabel string
	Chamber      models.Chamber
}

func (e *NoPriorDataError) Error() string {
	return fmt.Sprintf("no prior %s bills recorded for session %s", e.Chamber, e.SessionLabel)
}

// LastSeen returns the highest bill number recorded for the session label and
// chamber.
func LastSeen(bills models.BillSet, sessionLabel string, chamber models.Chamber) (int, error) {
	last, found := 0, false
	for _, b := range bills {
		if b == nil || b.SessionLabel != sessionLabel || b.Chamber != chamber {
			continue
		}
		if !found || b.BillNumber > last {
			last, found = b.BillNumber, true
		}
	}
	if !found {
		return 0, &NoPriorDataError{SessionLabel: sessionLabel, Chamber: chamber}
	}
	return last, nil
}

// LastSeenAll runs LastSeen for every chamber. Chambers without data are
// missing from the map; the first NoPriorDataError is returned alongside.
func LastSeenAll(bills models.BillSet, sessionLabel string) (map[models.Chamber]int, error) {
	marks := make(map[models.Chamber]int, len(models.Chambers))
	var firstErr error
	for _, ch := range models.Chambers {
		last, err := LastSeen(bills, sessionLabel, ch)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		marks[ch] = last
	}
	return marks, firstErr
}
