package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// -----------------------------------------------------------------------------
// Number is a float64 that also accepts quoted decimals ("101.25").
// The matching engine serializes prices as decimal strings.
// -----------------------------------------------------------------------------

type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// -----------------------------------------------------------------------------

func (n Number) Float() float64 {
	return float64(n)
}

// -----------------------------------------------------------------------------
// Timestamp keeps the source timestamp verbatim for display.
// ISO strings and epoch numbers are both accepted.
// -----------------------------------------------------------------------------

type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", string(data), err)
	}
	*t = Timestamp(num.String())
	return nil
}
