package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/queryguard/queryguard/internal/audit"
)

func TestRecordInsertsQueryLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	executedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO query_logs (preview_id, executed_at, query, user_id)
VALUES ($1, $2, $3, $4)`)).
		WithArgs("pv-1", executedAt, "SELECT * FROM sales", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewRecorder(db).Record(context.Background(), audit.Entry{
		PreviewID:  "pv-1",
		Query:      "SELECT * FROM sales",
		UserID:     "user-1",
		ExecutedAt: executedAt,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordNullsEmptyOptionalFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	executedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO query_logs")).
		WithArgs(nil, executedAt, "SELECT 1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = NewRecorder(db).Record(context.Background(), audit.Entry{
		Query:      "SELECT 1",
		ExecutedAt: executedAt,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordSurfacesWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO query_logs")).
		WillReturnError(errors.New(`relation "query_logs" does not exist`))

	err = NewRecorder(db).Record(context.Background(), audit.Entry{Query: "SELECT 1", ExecutedAt: time.Now()})
	if err == nil {
		t.Fatal("Record() error = nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
