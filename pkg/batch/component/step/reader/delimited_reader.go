package reader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	"github.com/tigerroll/surfbatch/pkg/batch/core/support/expression"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/surfbatch/pkg/batch/support/util/logger"
)

// FieldType is the target type of a delimited column.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldInt64  FieldType = "int64"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldDate   FieldType = "date"
)

const defaultDate = "2006-01-02"

// DefaultNotApplicable lists the markers an integer or float column reads as 0.
var DefaultNotApplicable = []string{"", "NA", "N/A"}

// ErrFieldCount is returned in strict mode when a line has the wrong number of fields.
var ErrFieldCount = errors.New("wrong number of fields")

// Column describes one field of a delimited line.
type Column struct {
	Name string    `yaml:"name"`
	Type FieldType `yaml:"type"`
	// Layout is the time layout of a date column; empty means 2006-01-02.
	Layout string `yaml:"layout"`
}

// DelimitedOptions configures a DelimitedFileItemReader.
type DelimitedOptions struct {
	Delimiter rune
	Columns   []Column
	// SkipLines is the number of leading lines (headers) to discard.
	SkipLines int
	// Strict rejects lines whose field count differs from len(Columns).
	// Otherwise missing trailing fields read as empty and extra fields are ignored.
	Strict bool
	// NotApplicable overrides DefaultNotApplicable.
	NotApplicable []string
	TrimSpace     bool
}

// Record is one parsed line keyed by column name.
type Record map[string]any

// Opener opens the underlying byte stream of a reader.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// FileOpener opens a local file. path may hold #{...} expressions, resolved against
// the running step when the reader opens.
func FileOpener(path string) Opener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		resolved, err := expression.Resolve(ctx, path)
		if err != nil {
			return nil, err
		}
		return os.Open(resolved)
	}
}

// DelimitedFileItemReader reads one item per line of delimited text.
// Each field is coerced to its column's FieldType before the mapper turns the
// Record into T. A numeric field holding a not-applicable marker reads as 0.
type DelimitedFileItemReader[T any] struct {
	name   string
	open   Opener
	opts   DelimitedOptions
	mapper func(Record) (T, error)
	na     map[string]struct{}

	src  io.ReadCloser
	csv  *csv.Reader
	line int
}

var _ port.ItemReader[Record] = (*DelimitedFileItemReader[Record])(nil)

// NewDelimitedFileItemReader creates a reader. mapper converts each Record to T.
func NewDelimitedFileItemReader[T any](name string, open Opener, opts DelimitedOptions, mapper func(Record) (T, error)) (*DelimitedFileItemReader[T], error) {
	if open == nil {
		return nil, exception.NewInvalidDefinition("reader", "reader '%s': opener is required", name)
	}
	if mapper == nil {
		return nil, exception.NewInvalidDefinition("reader", "reader '%s': mapper is required", name)
	}
	if len(opts.Columns) == 0 {
		return nil, exception.NewInvalidDefinition("reader", "reader '%s': at least one column is required", name)
	}
	if opts.SkipLines < 0 {
		return nil, exception.NewInvalidDefinition("reader", "reader '%s': skip lines must not be negative", name)
	}
	seen := make(map[string]struct{}, len(opts.Columns))
	for _, c := range opts.Columns {
		if _, dup := seen[c.Name]; dup || c.Name == "" {
			return nil, exception.NewInvalidDefinition("reader", "reader '%s': invalid or duplicate column name %q", name, c.Name)
		}
		seen[c.Name] = struct{}{}
		switch c.Type {
		case "", FieldString, FieldInt, FieldInt64, FieldFloat, FieldBool, FieldDate:
		default:
			return nil, exception.NewInvalidDefinition("reader", "reader '%s': column %q has unknown type %q", name, c.Name, c.Type)
		}
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	markers := opts.NotApplicable
	if markers == nil {
		markers = DefaultNotApplicable
	}
	na := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		na[m] = struct{}{}
	}
	return &DelimitedFileItemReader[T]{name: name, open: open, opts: opts, mapper: mapper, na: na}, nil
}

// NewDelimitedFileRecordReader creates a reader of Records from a local file.
func NewDelimitedFileRecordReader(name, path string, opts DelimitedOptions) (*DelimitedFileItemReader[Record], error) {
	return NewDelimitedFileItemReader(name, FileOpener(path), opts, func(r Record) (Record, error) { return r, nil })
}

// Open opens the source and discards the header lines.
func (r *DelimitedFileItemReader[T]) Open(ctx context.Context) error {
	src, err := r.open(ctx)
	if err != nil {
		return exception.NewBatchError("reader", fmt.Sprintf("reader '%s': failed to open source", r.name), err, false, false)
	}
	r.src = src
	r.csv = csv.NewReader(src)
	r.csv.Comma = r.opts.Delimiter
	r.csv.FieldsPerRecord = -1
	r.csv.ReuseRecord = true
	r.line = 0

	for i := 0; i < r.opts.SkipLines; i++ {
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return exception.NewBatchError("reader", fmt.Sprintf("reader '%s': failed to skip header line %d", r.name, i+1), err, false, false)
		}
		r.line++
	}
	logger.Debugf("DelimitedFileItemReader '%s': opened, skipped %d line(s).", r.name, r.line)
	return nil
}

// Read parses the next line. It returns io.EOF at end of input.
func (r *DelimitedFileItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.csv == nil {
		return zero, fmt.Errorf("reader '%s' is not open", r.name)
	}
	fields, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return zero, io.EOF
		}
		return zero, err
	}
	r.line++

	record, err := r.parse(fields)
	if err != nil {
		return zero, fmt.Errorf("line %d: %w", r.line, err)
	}
	item, err := r.mapper(record)
	if err != nil {
		return zero, fmt.Errorf("line %d: %w", r.line, err)
	}
	return item, nil
}

// Close closes the source.
func (r *DelimitedFileItemReader[T]) Close(ctx context.Context) error {
	if r.src == nil {
		return nil
	}
	err := r.src.Close()
	r.src, r.csv = nil, nil
	return err
}

func (r *DelimitedFileItemReader[T]) parse(fields []string) (Record, error) {
	if r.opts.Strict && len(fields) != len(r.opts.Columns) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(fields), len(r.opts.Columns))
	}
	record := make(Record, len(r.opts.Columns))
	for i, col := range r.opts.Columns {
		raw := ""
		if i < len(fields) {
			raw = fields[i]
		}
		if r.opts.TrimSpace {
			raw = strings.TrimSpace(raw)
		}
		v, err := r.coerce(col, raw)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		record[col.Name] = v
	}
	return record, nil
}

func (r *DelimitedFileItemReader[T]) coerce(col Column, raw string) (any, error) {
	_, notApplicable := r.na[strings.TrimSpace(raw)]
	switch col.Type {
	case FieldInt:
		if notApplicable {
			return 0, nil
		}
		return strconv.Atoi(strings.TrimSpace(raw))
	case FieldInt64:
		if notApplicable {
			return int64(0), nil
		}
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case FieldFloat:
		if notApplicable {
			return float64(0), nil
		}
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)
	case FieldBool:
		if notApplicable {
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(raw))
	case FieldDate:
		if notApplicable {
			return time.Time{}, nil
		}
		layout := col.Layout
		if layout == "" {
			layout = defaultDate
		}
		return time.Parse(layout, strings.TrimSpace(raw))
	}
	return raw, nil
}
