package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a loosely typed scalar: model output and hand-written recipes
// use both 2 and "1/2" for quantities, servings and timings. The original
// JSON kind is preserved on re-encode.
type Amount struct {
	text  string
	num   float64
	isNum bool
}

// Num returns a numeric Amount.
func Num(v float64) *Amount {
	return &Amount{num: v, isNum: true}
}

// Text returns a textual Amount.
func Text(s string) *Amount {
	return &Amount{text: s}
}

// Float returns the numeric value. Textual amounts that parse as a plain
// number are accepted as well.
func (a *Amount) Float() (float64, bool) {
	if a == nil {
		return 0, false
	}
	if a.isNum {
		return a.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(a.text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// String renders the amount for prompts and context blocks.
func (a *Amount) String() string {
	if a == nil {
		return ""
	}
	if a.isNum {
		return strconv.FormatFloat(a.num, 'f', -1, 64)
	}
	return a.text
}

// IsZero reports whether the amount carries no value.
func (a *Amount) IsZero() bool {
	return a == nil || (!a.isNum && a.text == "")
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.isNum {
		return json.Marshal(a.num)
	}
	return json.Marshal(a.text)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = Amount{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount{text: s}
		return nil
	case data[0] == 't' || data[0] == 'f':
		// Seen in the wild for "optional"-like flags placed in the wrong field.
		*a = Amount{text: string(data)}
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("recipe: amount must be a number or string: %w", err)
		}
		*a = Amount{num: f, isNum: true}
		return nil
	}
}
