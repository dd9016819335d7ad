package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestOf_Deterministic(t *testing.T) {
	a := Of("M01", "Math", "Eng", pgtype.Int4{Int32: 100, Valid: true}, int64(7))
	b := Of("M01", "Math", "Eng", pgtype.Int4{Int32: 100, Valid: true}, int64(7))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestOf_KnownDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("M01|Math|None|25.5"))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, Of("M01", "Math", nil, 25.5))
}

func TestOf_Sensitivity(t *testing.T) {
	base := []any{"M01", "Math", "Eng", pgtype.Int4{Int32: 100, Valid: true}, int64(7)}
	baseFP := Of(base...)

	variants := map[string][]any{
		"code":       {"M02", "Math", "Eng", pgtype.Int4{Int32: 100, Valid: true}, int64(7)},
		"name":       {"M01", "Maths", "Eng", pgtype.Int4{Int32: 100, Valid: true}, int64(7)},
		"field":      {"M01", "Math", "Sci", pgtype.Int4{Int32: 100, Valid: true}, int64(7)},
		"quota":      {"M01", "Math", "Eng", pgtype.Int4{Int32: 101, Valid: true}, int64(7)},
		"quota null": {"M01", "Math", "Eng", pgtype.Int4{}, int64(7)},
		"owner":      {"M01", "Math", "Eng", pgtype.Int4{Int32: 100, Valid: true}, int64(8)},
	}
	for name, fields := range variants {
		t.Run(name, func(t *testing.T) {
			assert.True(t, HasChanged(baseFP, Of(fields...)))
		})
	}
}

func TestOf_AbsentDiffersFromEmpty(t *testing.T) {
	assert.NotEqual(t, Of("a", nil), Of("a", ""))
	assert.NotEqual(t, Of("a", pgtype.Text{}), Of("a", pgtype.Text{String: "", Valid: true}))
}

func TestOf_FieldOrderMatters(t *testing.T) {
	assert.NotEqual(t, Of("a", "b"), Of("b", "a"))
}

func TestRender(t *testing.T) {
	var nilPtr *int32
	v := int32(5)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "None"},
		{"string", "x", "x"},
		{"int", 3, "3"},
		{"float whole", 24.0, "24"},
		{"float frac", 25.5, "25.5"},
		{"nil pointer", nilPtr, "None"},
		{"pointer", &v, "5"},
		{"invalid int4", pgtype.Int4{}, "None"},
		{"valid int4", pgtype.Int4{Int32: 100, Valid: true}, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(tt.in))
		})
	}
}
