package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FailureList holds the messages of the failures recorded on an execution.
// It is persisted as a JSON array.
type FailureList []string

// Value implements driver.Valuer.
func (fl FailureList) Value() (driver.Value, error) {
	if fl == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(fl))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (fl *FailureList) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*fl = FailureList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}
	if len(b) == 0 {
		*fl = FailureList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	*fl = out
	return nil
}

// addFailure records err on list and errs unless the same message is already present.
func addFailure(list *FailureList, errs *[]error, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	for _, existing := range *list {
		if existing == msg {
			return
		}
	}
	*list = append(*list, msg)
	*errs = append(*errs, err)
}
