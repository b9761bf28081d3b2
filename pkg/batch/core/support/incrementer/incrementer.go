// Package incrementer provides the RunIdentity strategies a Job applies to every
// launch request: a fresh token for "always rerun", or the current date for
// "at most once per day".
package incrementer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
)

const (
	// DefaultUUIDKey is the parameter set by UUIDIncrementer.
	DefaultUUIDKey = "uuid"
	// DefaultDateKey is the parameter set by DailyIncrementer.
	DefaultDateKey = "run.date"
	// DefaultTimestampKey is the parameter set by TimestampIncrementer.
	DefaultTimestampKey = "timestamp"
)

// UUIDIncrementer adds a random UUID string, so every launch creates a new JobInstance.
type UUIDIncrementer struct {
	key string
}

var _ port.JobParametersIncrementer = (*UUIDIncrementer)(nil)

// NewUUIDIncrementer creates a UUIDIncrementer. An empty key means DefaultUUIDKey.
func NewUUIDIncrementer(key string) *UUIDIncrementer {
	if key == "" {
		key = DefaultUUIDKey
	}
	return &UUIDIncrementer{key: key}
}

// GetNext returns params with a fresh UUID under the configured key.
func (i *UUIDIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	return params.WithString(i.key, uuid.NewString())
}

// DailyIncrementer adds today's date, so a second launch on the same day resolves to
// the COMPLETED instance of the first and is rejected as a duplicate.
// A date already present under the key is kept, which allows re-running a given day.
type DailyIncrementer struct {
	key string
	now func() time.Time
}

var _ port.JobParametersIncrementer = (*DailyIncrementer)(nil)

// NewDailyIncrementer creates a DailyIncrementer. A nil clock means time.Now.
func NewDailyIncrementer(key string, clock func() time.Time) *DailyIncrementer {
	if key == "" {
		key = DefaultDateKey
	}
	if clock == nil {
		clock = time.Now
	}
	return &DailyIncrementer{key: key, now: clock}
}

// GetNext returns params with the current date under the configured key.
func (i *DailyIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	if _, ok := params.GetDate(i.key); ok {
		return params
	}
	return params.WithDate(i.key, i.now())
}

// TimestampIncrementer adds the launch time in milliseconds as a LONG parameter.
type TimestampIncrementer struct {
	key string
	now func() time.Time
}

var _ port.JobParametersIncrementer = (*TimestampIncrementer)(nil)

// NewTimestampIncrementer creates a TimestampIncrementer. A nil clock means time.Now.
func NewTimestampIncrementer(key string, clock func() time.Time) *TimestampIncrementer {
	if key == "" {
		key = DefaultTimestampKey
	}
	if clock == nil {
		clock = time.Now
	}
	return &TimestampIncrementer{key: key, now: clock}
}

// GetNext returns params with the current Unix time in milliseconds.
func (i *TimestampIncrementer) GetNext(params model.JobParameters) model.JobParameters {
	return params.WithLong(i.key, i.now().UnixMilli())
}

// ByName builds an incrementer from its configured name: "uuid", "daily" or "timestamp".
// An empty name or "none" yields nil, meaning parameters are used as given.
func ByName(name, key string) (port.JobParametersIncrementer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "uuid":
		return NewUUIDIncrementer(key), nil
	case "daily", "date":
		return NewDailyIncrementer(key, nil), nil
	case "timestamp":
		return NewTimestampIncrementer(key, nil), nil
	}
	return nil, fmt.Errorf("unknown run identity %q", name)
}
