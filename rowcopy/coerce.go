package rowcopy

import (
	"fmt"

	"github.com/google/uuid"
)

// Coerce applies the value coercion rules to a single scanned source value,
// for a destination column of the given affinity. A source NULL (nil)
// always becomes a destination NULL. Any (source kind, affinity) pairing
// not covered below passes through unchanged.
func Coerce(value any, affinity Affinity) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch affinity {
	case AffinityInt32:
		if v, ok := toInt64(value); ok {
			return int32(v), nil
		}
	case AffinityInt16:
		if v, ok := toInt64(value); ok {
			return int16(v), nil
		}
	case AffinityInt64:
		if v, ok := toInt64(value); ok {
			return v, nil
		}
	case AffinitySingle:
		if v, ok := toFloat64(value); ok {
			return float32(v), nil
		}
	case AffinityDouble:
		if v, ok := toFloat64(value); ok {
			return v, nil
		}
	case AffinityString:
		if g, ok := value.(uuid.UUID); ok {
			return g.String(), nil
		}
	case AffinityGuid:
		switch v := value.(type) {
		case string:
			g, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("rowcopy: parse guid %q: %w", v, err)
			}
			return g, nil
		case []byte:
			return decodeGuidBytes(v), nil
		}
	case AffinityBinary, AffinityBoolean, AffinityDateTime, AffinityObject, AffinityByte:
		// Pass through unchanged.
	case AffinityUnknown:
		return nil, &ErrIllegalAffinity{Type: "unknown"}
	}

	return value, nil
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case int:
		return int64(v), true
	case byte:
		return int64(v), true
	}
	if f, ok := toFloat64(value); ok {
		return int64(f), true
	}
	return 0, false
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// decodeGuidBytes interprets a blob as a GUID: a 16-byte blob is interpreted
// directly; a longer blob is truncated to its first 16 bytes; a shorter
// blob is zero-padded (at the end) to 16 bytes.
func decodeGuidBytes(b []byte) uuid.UUID {
	var buf [16]byte
	switch {
	case len(b) == 16:
		copy(buf[:], b)
	case len(b) > 16:
		copy(buf[:], b[:16])
	default:
		copy(buf[:], b)
	}
	return uuid.UUID(buf)
}
