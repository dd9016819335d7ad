// Package fingerprint computes content hashes used for change detection.
//
// A fingerprint is the hex-encoded SHA-256 digest of the record's significant
// fields rendered as strings and joined with Separator, in the order given.
// Absent values (nil, or a pgtype value with Valid=false) render as None, so an
// absent optional field never collides with an empty string.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Separator joins the rendered fields before hashing.
const Separator = "|"

// None is the canonical rendering of an absent value.
const None = "None"

// Of returns the fingerprint of the ordered fields.
func Of(fields ...any) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = render(f)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, Separator)))
	return hex.EncodeToString(sum[:])
}

// HasChanged compares two fingerprints.
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return None
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case *int32:
		if x == nil {
			return None
		}
		return strconv.FormatInt(int64(*x), 10)
	case pgtype.Int4:
		if !x.Valid {
			return None
		}
		return strconv.FormatInt(int64(x.Int32), 10)
	case pgtype.Text:
		if !x.Valid {
			return None
		}
		return x.String
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
