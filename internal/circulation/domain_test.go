// internal/circulation/domain_test.go
package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestOverdueDays(t *testing.T) {
	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before due", due.Add(-48 * time.Hour), 0},
		{"exactly due", due, 0},
		{"an hour late", due.Add(time.Hour), 0},
		{"just under a day late", due.Add(24*time.Hour - time.Second), 0},
		{"exactly a day late", due.Add(24 * time.Hour), 1},
		{"ten and a half days late", due.Add(10*24*time.Hour + 12*time.Hour), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, OverdueDays(due, tc.now))
		})
	}
}

func TestFineFor(t *testing.T) {
	assert.Equal(t, int64(0), FineFor(0))
	assert.Equal(t, int64(0), FineFor(-3))
	assert.Equal(t, int64(10), FineFor(1))
	assert.Equal(t, int64(140), FineFor(14))
}

func TestFineProperties(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.Int64Range(-365*24*3600, 365*24*3600).Draw(t, "offsetSeconds")
		now := due.Add(time.Duration(offset) * time.Second)

		days := OverdueDays(due, now)
		fine := FineFor(days)

		if days < 0 {
			t.Fatalf("overdue days must never be negative, got %d", days)
		}
		if fine != int64(days)*FinePerDay {
			t.Fatalf("fine %d is not the flat rate for %d days", fine, days)
		}
		if !now.After(due) && fine != 0 {
			t.Fatalf("on-time return produced fine %d", fine)
		}

		// A later return can never cost less.
		laterDays := OverdueDays(due, now.Add(24*time.Hour))
		if FineFor(laterDays) < fine {
			t.Fatalf("fine decreased from %d to %d one day later", fine, FineFor(laterDays))
		}
	})
}
