package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRecordCorrupt is returned when a stored record does not decode.
var ErrRecordCorrupt = errors.New("session record corrupt")

// Encode serializes a record to its stored JSON form.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil session record")
	}
	return json.Marshal(r)
}

// Decode parses a stored record.
func Decode(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, ErrRecordCorrupt
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	return &r, nil
}
