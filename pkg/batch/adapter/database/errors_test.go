package database_test

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/tigerroll/surfbatch/pkg/batch/adapter/database"
)

func TestIsDuplicateKeyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"mysql", &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysqldriver.MySQLError{Number: 1213}, false},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"sqlite", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, true},
		{"sqlite not null", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, false},
		{"plain", errors.New("duplicate"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, database.IsDuplicateKeyError(tc.err))
		})
	}
}

func TestIsTableNotExistError(t *testing.T) {
	assert.True(t, database.IsTableNotExistError(&pgconn.PgError{Code: "42P01"}))
	assert.True(t, database.IsTableNotExistError(&mysqldriver.MySQLError{Number: 1146}))
	assert.True(t, database.IsTableNotExistError(errors.New("no such table: batch_job_instance")))
	assert.False(t, database.IsTableNotExistError(errors.New("syntax error")))
}
