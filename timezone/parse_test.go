package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_ParseDateTime(t *testing.T) {
	r := newTestResolver(t, "UTC")

	tests := []struct {
		name     string
		value    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "UTC basic format",
			value:    "20251201T090000Z",
			expected: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "RFC 3339",
			value:    "2025-12-01T09:00:00Z",
			expected: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "Combined TZID with Windows name",
			value:    "TZID=Mountain Standard Time:20251031T090000",
			expected: time.Date(2025, 10, 31, 15, 0, 0, 0, time.UTC), // MDT applies
		},
		{
			name:     "Combined TZID with IANA name",
			value:    "TZID=Europe/Berlin:20251201T090000",
			expected: time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC), // CET, UTC+1
		},
		{
			name:     "Without seconds",
			value:    "TZID=Europe/Berlin:20251201T0900",
			expected: time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "Dashed separator",
			value:    "TZID=Europe/Berlin:2025-12-01T09:00:00",
			expected: time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "Floating local time uses default zone",
			value:    "20251201T090000",
			expected: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "Date only becomes midnight UTC",
			value:    "20251201",
			expected: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Date only with TZID still midnight UTC",
			value:    "TZID=Asia/Tokyo:20251201",
			expected: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Unresolvable TZID falls back to default zone",
			value:    "TZID=Fantasy Standard Time:20251201T090000",
			expected: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "Garbage",
			value:   "not a date",
			wantErr: true,
		},
		{
			name:    "Empty",
			value:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ParseDateTime(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.expected), "got %v, want %v", got, tt.expected)
		})
	}
}

func TestResolver_ParseDateTimeIn(t *testing.T) {
	r := newTestResolver(t, "UTC")

	got, err := r.ParseDateTimeIn("20251031T090000", "Mountain Standard Time")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 10, 31, 15, 0, 0, 0, time.UTC)))

	// An empty TZID selects the default zone.
	got, err = r.ParseDateTimeIn("20251201T090000", "")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)))
}

func TestResolver_ParseExceptionDates(t *testing.T) {
	r := newTestResolver(t, "UTC")

	tests := []struct {
		name     string
		raw      string
		expected []time.Time
	}{
		{
			name: "Multiple UTC values",
			raw:  "20251202T090000Z,20251204T090000Z",
			expected: []time.Time{
				time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC),
				time.Date(2025, 12, 4, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "Shared TZID prefix applies to every value",
			raw:  "TZID=Mountain Standard Time:20251202T090000,20251204T090000",
			expected: []time.Time{
				time.Date(2025, 12, 2, 16, 0, 0, 0, time.UTC), // MST
				time.Date(2025, 12, 4, 16, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "Malformed sibling is skipped",
			raw:  "20251202T090000Z,bogus,20251204T090000Z",
			expected: []time.Time{
				time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC),
				time.Date(2025, 12, 4, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "Date only entries anchor at midnight UTC",
			raw:  "20251202,20251204",
			expected: []time.Time{
				time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:     "Empty value",
			raw:      "",
			expected: nil,
		},
		{
			name:     "Only separators",
			raw:      " , ,",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ParseExceptionDates(tt.raw)
			require.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.True(t, got[i].Equal(tt.expected[i]), "index %d: got %v, want %v", i, got[i], tt.expected[i])
			}
		})
	}
}

func TestSplitTZID(t *testing.T) {
	tzid, rest, ok := splitTZID("TZID=America/Denver:20251031T090000")
	assert.True(t, ok)
	assert.Equal(t, "America/Denver", tzid)
	assert.Equal(t, "20251031T090000", rest)

	_, rest, ok = splitTZID("20251031T090000Z")
	assert.False(t, ok)
	assert.Equal(t, "20251031T090000Z", rest)

	// Prefix without a colon is not a combined form.
	_, _, ok = splitTZID("TZID=America/Denver")
	assert.False(t, ok)
}
