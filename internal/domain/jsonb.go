package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// KeywordWeights maps a keyword to its normalized frequency (>= 0).
// It is stored as JSONB.
type KeywordWeights map[string]float64

// Scan implements sql.Scanner.
func (k *KeywordWeights) Scan(value any) error {
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if data == nil {
		*k = nil
		return nil
	}
	if len(data) == 0 {
		*k = KeywordWeights{}
		return nil
	}
	return json.Unmarshal(data, k)
}

// Value implements driver.Valuer.
func (k KeywordWeights) Value() (driver.Value, error) {
	if len(k) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]float64(k))
}

// StringArray is a []string stored as a JSONB array.
type StringArray []string

// Scan implements sql.Scanner.
func (s *StringArray) Scan(value any) error {
	data, err := jsonBytes(value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, s)
}

// Value implements driver.Valuer.
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

var errUnsupportedJSONB = errors.New("unsupported type for JSONB column")

func jsonBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, errUnsupportedJSONB
	}
}
