package unitqueue

import (
	"net/url"
	"testing"

	"bill_spider/internal/models"

	"github.com/stretchr/testify/require"
)

func TestEnumerateStaysInRange(t *testing.T) {
	for chamber, r := range models.DefaultRanges {
		for _, start := range []int{-5, 0, 1, 2998, 2999, 3000, 4500, 5999, 6000} {
			numbers := Enumerate(r, start)
			for i, n := range numbers {
				require.True(t, r.Contains(n), "%s start %d yielded %d", chamber, start, n)
				if i > 0 {
					require.Equal(t, numbers[i-1]+1, n)
				}
			}
			if len(numbers) > 0 {
				require.Equal(t, r.Last, numbers[len(numbers)-1])
			}
		}
	}
}

func TestEnumerateDefaults(t *testing.T) {
	senate := Enumerate(models.DefaultRanges[models.Senate], 1)
	require.Len(t, senate, 2999)
	require.Equal(t, 1, senate[0])

	house := Enumerate(models.DefaultRanges[models.House], 3000)
	require.Len(t, house, 3000)
	require.Equal(t, 3000, house[0])
	require.Equal(t, 5999, house[len(house)-1])
}

func TestEnumeratePastCeilingIsEmpty(t *testing.T) {
	numbers := Enumerate(models.DefaultRanges[models.Senate], 3000)
	require.NotNil(t, numbers)
	require.Empty(t, numbers)
}

func TestUnitQueue(t *testing.T) {
	q := NewUnitQueue(126, "2025-26", models.House, models.DefaultRanges[models.House], 5998)
	require.Equal(t, 2, q.Size())

	u, ok := q.Get()
	require.True(t, ok)
	require.Equal(t, models.Unit{SessionID: 126, SessionLabel: "2025-26", Chamber: models.House, BillNumber: 5998}, u)
	require.Equal(t, "2025-26-5998", u.Key())

	u, ok = q.Get()
	require.True(t, ok)
	require.Equal(t, 5999, u.BillNumber)

	_, ok = q.Get()
	require.False(t, ok)
}

func TestBillURL(t *testing.T) {
	link, err := BillURL(
		"https://www.scstatehouse.gov/billsearch.php",
		map[string]string{"summary": "B", "headerfooter": "1"},
		models.Unit{SessionID: 126, SessionLabel: "2025-26", Chamber: models.Senate, BillNumber: 42},
	)
	require.NoError(t, err)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/billsearch.php", parsed.Path)
	q := parsed.Query()
	require.Equal(t, "42", q.Get("billnumbers"))
	require.Equal(t, "126", q.Get("session"))
	require.Equal(t, "B", q.Get("summary"))
	require.Equal(t, "1", q.Get("headerfooter"))
}
