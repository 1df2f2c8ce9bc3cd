package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexString accepts JSON strings and numbers. Catalog ids are 19-digit
// integers that some endpoints send unquoted.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexInt accepts JSON numbers and numeric strings; anything else is zero.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*i = flexInt(f)
		return nil
	}
	*i = 0
	return nil
}
