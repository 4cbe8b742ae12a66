package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUTC_MicrosecondPrecision(t *testing.T) {
	ts := time.Unix(0, 1762958299127000000)
	assert.Equal(t, "2025-11-12T14:38:19.127000+00:00", FormatUTC(ts))
}

func TestFormatUTC_OmitsZeroFractionalSeconds(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2025-01-02T03:04:05+00:00", FormatUTC(ts))
}

func TestFormatUTC_ConvertsNonUTCToUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, loc)
	assert.Equal(t, "2025-01-02T08:04:05+00:00", FormatUTC(ts))
}
