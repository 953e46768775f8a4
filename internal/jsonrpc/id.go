package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestID is a JSON-RPC id: either a string or a number. The zero value
// is an absent id.
type RequestID struct {
	str   string
	num   int64
	lit   string
	isStr bool
	set   bool
}

// NewIntID returns a numeric request id.
func NewIntID(n int64) RequestID {
	return RequestID{num: n, set: true}
}

// NewStringID returns a string request id.
func NewStringID(s string) RequestID {
	return RequestID{str: s, isStr: true, set: true}
}

// IsZero reports whether the id is absent.
func (id RequestID) IsZero() bool { return !id.set }

// IsString reports whether the id was sent as a JSON string.
func (id RequestID) IsString() bool { return id.isStr }

// Int64 returns the numeric value of the id, if it is numeric.
func (id RequestID) Int64() (int64, bool) {
	if !id.set || id.isStr || id.lit != "" {
		return 0, false
	}

	return id.num, true
}

// String renders the id for logging. String ids are quoted so "1" and 1
// stay distinguishable.
func (id RequestID) String() string {
	switch {
	case !id.set:
		return "<none>"
	case id.isStr:
		return strconv.Quote(id.str)
	case id.lit != "":
		return id.lit
	default:
		return strconv.FormatInt(id.num, 10)
	}
}

// MarshalJSON implements json.Marshaler.
func (id RequestID) MarshalJSON() ([]byte, error) {
	switch {
	case !id.set:
		return []byte("null"), nil
	case id.isStr:
		return json.Marshal(id.str)
	case id.lit != "":
		return []byte(id.lit), nil
	default:
		return strconv.AppendInt(nil, id.num, 10), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = RequestID{}

		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string id: %w", err)
		}

		*id = NewStringID(s)

		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		// Numbers outside int64 or with a fraction are kept as their literal
		// text so a reply echoes them back unchanged.
		var f float64
		if ferr := json.Unmarshal(data, &f); ferr != nil {
			return fmt.Errorf("decode id: %w", ferr)
		}

		*id = RequestID{lit: string(data), set: true}

		return nil
	}

	*id = NewIntID(n)

	return nil
}
