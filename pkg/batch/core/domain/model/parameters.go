package model

import (
	"bytes"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParameterType is the value type of a JobParameter.
type ParameterType string

const (
	ParameterTypeString ParameterType = "STRING"
	ParameterTypeLong   ParameterType = "LONG"
	ParameterTypeDouble ParameterType = "DOUBLE"
	// ParameterTypeDate holds a calendar date without a time component.
	ParameterTypeDate ParameterType = "DATE"
)

// DateLayout is the textual form of DATE parameters.
const DateLayout = "2006-01-02"

// JobParameter is one typed value of a JobParameters set.
// Only identifying parameters take part in JobInstance identity.
type JobParameter struct {
	Type        ParameterType
	Value       any
	Identifying bool
}

// String renders the value in its canonical textual form.
func (p JobParameter) String() string {
	switch v := p.Value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(DateLayout)
	default:
		return fmt.Sprint(v)
	}
}

type jobParameterJSON struct {
	Type        ParameterType   `json:"type"`
	Value       json.RawMessage `json:"value"`
	Identifying bool            `json:"identifying"`
}

// MarshalJSON encodes DATE values as "2006-01-02".
func (p JobParameter) MarshalJSON() ([]byte, error) {
	var raw []byte
	var err error
	if p.Type == ParameterTypeDate {
		raw, err = json.Marshal(p.String())
	} else {
		raw, err = json.Marshal(p.Value)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(jobParameterJSON{Type: p.Type, Value: raw, Identifying: p.Identifying})
}

// UnmarshalJSON restores the Go type that matches the parameter type.
func (p *JobParameter) UnmarshalJSON(data []byte) error {
	var in jobParameterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Type = in.Type
	p.Identifying = in.Identifying

	switch in.Type {
	case ParameterTypeString:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return fmt.Errorf("parameter value is not a string: %w", err)
		}
		p.Value = s
	case ParameterTypeLong:
		dec := json.NewDecoder(bytes.NewReader(in.Value))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("parameter value is not a number: %w", err)
		}
		v, err := n.Int64()
		if err != nil {
			return fmt.Errorf("parameter value is not a long: %w", err)
		}
		p.Value = v
	case ParameterTypeDouble:
		var f float64
		if err := json.Unmarshal(in.Value, &f); err != nil {
			return fmt.Errorf("parameter value is not a double: %w", err)
		}
		p.Value = f
	case ParameterTypeDate:
		var s string
		if err := json.Unmarshal(in.Value, &s); err != nil {
			return fmt.Errorf("parameter value is not a date string: %w", err)
		}
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return err
		}
		p.Value = d
	default:
		return fmt.Errorf("unknown parameter type %q", in.Type)
	}
	return nil
}

// JobParameters is an immutable set of named, typed parameters.
// Use JobParametersBuilder or the With* methods to derive new sets.
type JobParameters struct {
	params map[string]JobParameter
}

// NewJobParameters returns an empty parameter set.
func NewJobParameters() JobParameters {
	return JobParameters{params: map[string]JobParameter{}}
}

// Get returns the parameter stored under key.
func (jp JobParameters) Get(key string) (JobParameter, bool) {
	p, ok := jp.params[key]
	return p, ok
}

// GetString returns a STRING parameter.
func (jp JobParameters) GetString(key string) (string, bool) {
	p, ok := jp.params[key]
	if !ok {
		return "", false
	}
	s, ok := p.Value.(string)
	return s, ok
}

// GetLong returns a LONG parameter.
func (jp JobParameters) GetLong(key string) (int64, bool) {
	p, ok := jp.params[key]
	if !ok {
		return 0, false
	}
	n, ok := p.Value.(int64)
	return n, ok
}

// GetDouble returns a DOUBLE parameter.
func (jp JobParameters) GetDouble(key string) (float64, bool) {
	p, ok := jp.params[key]
	if !ok {
		return 0, false
	}
	f, ok := p.Value.(float64)
	return f, ok
}

// GetDate returns a DATE parameter at midnight UTC.
func (jp JobParameters) GetDate(key string) (time.Time, bool) {
	p, ok := jp.params[key]
	if !ok {
		return time.Time{}, false
	}
	d, ok := p.Value.(time.Time)
	return d, ok
}

// Len returns the number of parameters.
func (jp JobParameters) Len() int {
	return len(jp.params)
}

// IsEmpty reports whether the set has no parameters.
func (jp JobParameters) IsEmpty() bool {
	return len(jp.params) == 0
}

// Keys returns the parameter names in sorted order.
func (jp JobParameters) Keys() []string {
	keys := make([]string, 0, len(jp.params))
	for k := range jp.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of jp with key set to p.
func (jp JobParameters) With(key string, p JobParameter) JobParameters {
	next := make(map[string]JobParameter, len(jp.params)+1)
	for k, v := range jp.params {
		next[k] = v
	}
	next[key] = normalize(p)
	return JobParameters{params: next}
}

// WithString returns a copy of jp with an identifying STRING parameter.
func (jp JobParameters) WithString(key, value string) JobParameters {
	return jp.With(key, JobParameter{Type: ParameterTypeString, Value: value, Identifying: true})
}

// WithLong returns a copy of jp with an identifying LONG parameter.
func (jp JobParameters) WithLong(key string, value int64) JobParameters {
	return jp.With(key, JobParameter{Type: ParameterTypeLong, Value: value, Identifying: true})
}

// WithDate returns a copy of jp with an identifying DATE parameter.
// The time of day and location of value are discarded.
func (jp JobParameters) WithDate(key string, value time.Time) JobParameters {
	return jp.With(key, JobParameter{Type: ParameterTypeDate, Value: value, Identifying: true})
}

// Identifying returns only the identifying parameters.
func (jp JobParameters) Identifying() JobParameters {
	out := make(map[string]JobParameter, len(jp.params))
	for k, p := range jp.params {
		if p.Identifying {
			out[k] = p
		}
	}
	return JobParameters{params: out}
}

// Equal reports whether both sets have the same identifying parameters.
func (jp JobParameters) Equal(other JobParameters) bool {
	return jp.canonical() == other.canonical()
}

// Hash returns the hex SHA-256 of the canonical form of the identifying parameters.
// Equal parameter sets always produce the same hash.
func (jp JobParameters) Hash() string {
	sum := sha256.Sum256([]byte(jp.canonical()))
	return hex.EncodeToString(sum[:])
}

// canonical renders identifying parameters sorted by key. Key, type and value
// are each length-prefixed so no text inside them can shift field boundaries.
func (jp JobParameters) canonical() string {
	var b strings.Builder
	for _, k := range jp.Keys() {
		p := jp.params[k]
		if !p.Identifying {
			continue
		}
		for _, field := range []string{k, string(p.Type), p.String()} {
			b.WriteString(strconv.Itoa(len(field)))
			b.WriteByte(':')
			b.WriteString(field)
		}
	}
	return b.String()
}

// ToStringMap returns every parameter rendered as text.
func (jp JobParameters) ToStringMap() map[string]string {
	out := make(map[string]string, len(jp.params))
	for k, p := range jp.params {
		out[k] = p.String()
	}
	return out
}

// String renders the parameters sorted by key.
func (jp JobParameters) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range jp.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(jp.params[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the parameters as an object keyed by name.
func (jp JobParameters) MarshalJSON() ([]byte, error) {
	if jp.params == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(jp.params)
}

// UnmarshalJSON decodes an object produced by MarshalJSON.
func (jp *JobParameters) UnmarshalJSON(data []byte) error {
	params := map[string]JobParameter{}
	if err := json.Unmarshal(data, &params); err != nil {
		return err
	}
	jp.params = params
	return nil
}

// Value implements driver.Valuer.
func (jp JobParameters) Value() (driver.Value, error) {
	data, err := jp.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (jp *JobParameters) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*jp = NewJobParameters()
		return nil
	case []byte:
		if len(v) == 0 {
			*jp = NewJobParameters()
			return nil
		}
		return jp.UnmarshalJSON(v)
	case string:
		if v == "" {
			*jp = NewJobParameters()
			return nil
		}
		return jp.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported Scan type for JobParameters: %T", value)
	}
}

func normalize(p JobParameter) JobParameter {
	switch v := p.Value.(type) {
	case int:
		p.Value = int64(v)
	case int32:
		p.Value = int64(v)
	case float32:
		p.Value = float64(v)
	case time.Time:
		if p.Type == ParameterTypeDate {
			y, m, d := v.Date()
			p.Value = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}
	return p
}

// JobParametersBuilder accumulates parameters before producing an immutable set.
type JobParametersBuilder struct {
	params map[string]JobParameter
}

// NewJobParametersBuilder creates an empty builder.
func NewJobParametersBuilder() *JobParametersBuilder {
	return &JobParametersBuilder{params: map[string]JobParameter{}}
}

// AddString adds an identifying STRING parameter.
func (b *JobParametersBuilder) AddString(key, value string) *JobParametersBuilder {
	return b.Add(key, JobParameter{Type: ParameterTypeString, Value: value, Identifying: true})
}

// AddLong adds an identifying LONG parameter.
func (b *JobParametersBuilder) AddLong(key string, value int64) *JobParametersBuilder {
	return b.Add(key, JobParameter{Type: ParameterTypeLong, Value: value, Identifying: true})
}

// AddDouble adds an identifying DOUBLE parameter.
func (b *JobParametersBuilder) AddDouble(key string, value float64) *JobParametersBuilder {
	return b.Add(key, JobParameter{Type: ParameterTypeDouble, Value: value, Identifying: true})
}

// AddDate adds an identifying DATE parameter truncated to the calendar day.
func (b *JobParametersBuilder) AddDate(key string, value time.Time) *JobParametersBuilder {
	return b.Add(key, JobParameter{Type: ParameterTypeDate, Value: value, Identifying: true})
}

// Add adds p under key.
func (b *JobParametersBuilder) Add(key string, p JobParameter) *JobParametersBuilder {
	b.params[key] = normalize(p)
	return b
}

// AddAll copies every parameter of other into the builder.
func (b *JobParametersBuilder) AddAll(other JobParameters) *JobParametersBuilder {
	for k, p := range other.params {
		b.params[k] = p
	}
	return b
}

// ToJobParameters returns the accumulated parameters.
func (b *JobParametersBuilder) ToJobParameters() JobParameters {
	out := make(map[string]JobParameter, len(b.params))
	for k, p := range b.params {
		out[k] = p
	}
	return JobParameters{params: out}
}

// ParseJobParameter parses a command-line value such as "42", "2024-05-01" or
// "abc" with an explicit type name ("string", "long", "double", "date").
func ParseJobParameter(typeName, raw string) (JobParameter, error) {
	switch strings.ToUpper(typeName) {
	case "", string(ParameterTypeString):
		return JobParameter{Type: ParameterTypeString, Value: raw, Identifying: true}, nil
	case string(ParameterTypeLong):
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return JobParameter{}, fmt.Errorf("invalid long parameter %q: %w", raw, err)
		}
		return JobParameter{Type: ParameterTypeLong, Value: n, Identifying: true}, nil
	case string(ParameterTypeDouble):
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return JobParameter{}, fmt.Errorf("invalid double parameter %q: %w", raw, err)
		}
		return JobParameter{Type: ParameterTypeDouble, Value: f, Identifying: true}, nil
	case string(ParameterTypeDate):
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			return JobParameter{}, fmt.Errorf("invalid date parameter %q: %w", raw, err)
		}
		return JobParameter{Type: ParameterTypeDate, Value: d, Identifying: true}, nil
	}
	return JobParameter{}, fmt.Errorf("unknown parameter type %q", typeName)
}
