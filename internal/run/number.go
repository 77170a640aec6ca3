package run

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number holds a JSON value that is expected to be numeric. Both JSON
// numbers and numeric strings are accepted; coercion happens in Float and
// Int so that a bad value surfaces as ErrInvalidFormat rather than a decode
// failure.
type Number struct {
	raw      json.RawMessage
	isString bool
	text     string
}

func NewNumber(v float64) *Number {
	n := &Number{}
	_ = n.UnmarshalJSON([]byte(strconv.FormatFloat(v, 'f', -1, 64)))
	return n
}

func NewNumberString(s string) *Number {
	b, _ := json.Marshal(s)
	n := &Number{}
	_ = n.UnmarshalJSON(b)
	return n
}

func (n *Number) UnmarshalJSON(b []byte) error {
	n.raw = append(n.raw[:0], b...)
	n.isString = false
	n.text = ""

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		n.isString = true
		n.text = strings.TrimSpace(s)
		return nil
	}
	n.text = string(trimmed)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if len(n.raw) == 0 {
		return []byte("null"), nil
	}
	return n.raw, nil
}

func (n Number) String() string {
	return string(n.raw)
}

// Float coerces the value to a finite float64.
func (n Number) Float() (float64, error) {
	if !n.isString && !looksNumeric(n.text) {
		return 0, fmt.Errorf("%s is not a number", n.String())
	}
	v, err := strconv.ParseFloat(n.text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s is not a number", n.String())
	}
	return v, nil
}

// Int coerces the value to an int. JSON numbers are truncated toward zero;
// strings must hold an integer literal.
func (n Number) Int() (int, error) {
	var f float64
	if n.isString {
		v, err := strconv.ParseInt(n.text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s is not an integer", n.String())
		}
		f = float64(v)
	} else {
		v, err := n.Float()
		if err != nil {
			return 0, err
		}
		f = math.Trunc(v)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%s is out of range", n.String())
	}
	return int(f), nil
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// Coordinates keeps a GPS track payload exactly as submitted. Clients may
// send the track as a JSON string holding the serialized array or as the
// array itself; either way Payload is the serialized array text.
type Coordinates struct {
	Payload string
}

func (c *Coordinates) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		c.Payload = s
		return nil
	}
	c.Payload = string(trimmed)
	return nil
}

func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Payload)
}
