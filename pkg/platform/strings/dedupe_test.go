package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: nil},
		{name: "blank", raw: "  ", expected: nil},
		{name: "single broker", raw: "localhost:9092", expected: []string{"localhost:9092"}},
		{
			name:     "trims and drops empties",
			raw:      " kafka-1:9092, ,kafka-2:9092 ,",
			expected: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:     "keeps first of repeats",
			raw:      "Pending,Flagged,Pending",
			expected: []string{"Pending", "Flagged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.raw))
		})
	}
}

func TestDedupeAndTrim(t *testing.T) {
	assert.Nil(t, DedupeAndTrim(nil))
	assert.Equal(t, []string{}, DedupeAndTrim([]string{}))
	assert.Equal(t, []string{"https://booth.example"},
		DedupeAndTrim([]string{" https://booth.example", "https://booth.example ", ""}))
}
