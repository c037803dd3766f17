package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a canonical int64 identifier. The server serializes IDs as JSON
// strings to survive JavaScript number precision, but older endpoints emit
// plain numbers; ID accepts both and always compares as int64.
type ID int64

func (id ID) Int64() int64 {
	return int64(id)
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("models: cannot unmarshal ID %s: %w", string(data), err)
		}
		*id = ID(n)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("models: invalid ID %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// ParseID converts a decimal string to an ID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("models: invalid ID %q: %w", s, err)
	}
	return ID(n), nil
}
