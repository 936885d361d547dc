package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/terrafan/terrafan/internal/printer"
)

func TestTimeAgo(t *testing.T) {
	now := time.Now().UTC()

	tests := map[string]struct {
		t   time.Time
		exp string
	}{
		"Seconds":  {t: now.Add(-5 * time.Second), exp: "5 seconds ago (UTC)"},
		"A minute": {t: now.Add(-70 * time.Second), exp: "1 minute ago (UTC)"},
		"Hours":    {t: now.Add(-3 * time.Hour), exp: "3 hours ago (UTC)"},
		"Days":     {t: now.Add(-49 * time.Hour), exp: "2 days ago (UTC)"},
		"Future":   {t: now.Add(time.Hour), exp: "in the future (UTC)"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.exp, printer.TimeAgo(tt.t))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 10, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, "2026-03-10 12:30:45 UTC", printer.FormatTimestamp(ts))
}
