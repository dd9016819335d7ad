package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombinationTable_Lookup(t *testing.T) {
	table := DefaultCombinations()

	tests := []struct {
		name   string
		code   string
		want   int32
		wantOK bool
	}{
		{"exact", "A00", 100, true},
		{"lowercase", "d01", 401, true},
		{"padded", "  B00 ", 200, true},
		{"unknown", "Z99", 0, false},
		{"blank", "", 0, false},
		{"whitespace", "   ", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Lookup(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCombinationTable_IsolatedFromSource(t *testing.T) {
	src := map[string]int32{"Q01": 1}
	table := NewCombinationTable(src)
	src["Q02"] = 2

	_, ok := table.Lookup("Q02")
	assert.False(t, ok)
	assert.Equal(t, 1, table.Len())
}

func TestDefaultCombinations(t *testing.T) {
	table := DefaultCombinations()
	assert.Equal(t, 46, table.Len())
	assert.Equal(t, "A00", table.Codes()[0])
}
