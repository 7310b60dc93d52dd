package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  uint64
		expectErr bool
	}{
		{name: "Zero", raw: "0", expected: 0},
		{name: "Positive", raw: "42", expected: 42},
		{name: "Padded", raw: " 7 ", expected: 7},
		{name: "Negative", raw: "-1", expectErr: true},
		{name: "Not a number", raw: "abc", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ID(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, id)
			}
		})
	}
}

func TestNanos(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.UTC)
	assert.True(t, ts.Equal(Nanos(ts.UnixNano())))
	assert.Equal(t, time.UTC, Nanos(0).Location())
}
