package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRange(t *testing.T) {
	tests := []struct {
		month      string
		year       int
		start, end string
	}{
		{"Januari", 2025, "2025-01-01", "2025-02-01"},
		{"Februari", 2024, "2024-02-01", "2024-03-01"},
		{"Juni", 2025, "2025-06-01", "2025-07-01"},
		{"Desember", 2025, "2025-12-01", "2026-01-01"},
		{"desember", 2025, "2025-12-01", "2026-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			p, err := NewPeriod(tt.year, tt.month)
			require.NoError(t, err)
			start, end, err := p.Range()
			require.NoError(t, err)
			assert.Equal(t, tt.start, start.Format("2006-01-02"))
			assert.Equal(t, tt.end, end.Format("2006-01-02"))
		})
	}
}

func TestNewPeriodRejectsUnknownInput(t *testing.T) {
	for _, tc := range []struct {
		month string
		year  int
	}{
		{"December", 2025},
		{"", 2025},
		{"Mei", 1899},
		{"Mei", 10000},
	} {
		_, err := NewPeriod(tc.year, tc.month)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidPeriod))
		var ipe *InvalidPeriodError
		assert.True(t, errors.As(err, &ipe))
	}

	_, _, err := Period{Year: 2025, Month: "Smarch"}.Range()
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodContains(t *testing.T) {
	p, err := NewPeriod(2025, "Maret")
	require.NoError(t, err)

	assert.True(t, p.Contains(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodKeyRoundTrip(t *testing.T) {
	p, err := NewPeriod(2025, "Agustus")
	require.NoError(t, err)
	assert.Equal(t, "2025-08", p.Key())
	assert.Equal(t, "Agustus 2025", p.String())

	back, err := ParsePeriodKey(p.Key())
	require.NoError(t, err)
	assert.Equal(t, p, back)

	_, err = ParsePeriodKey("2025-13")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestCurrentPeriod(t *testing.T) {
	p := CurrentPeriod(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, Period{Year: 2026, Month: "Oktober"}, p)
	assert.Equal(t, 10, p.MonthNumber())
}
