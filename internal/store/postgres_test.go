package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/plugboard/plugboard/internal/errors"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestPostgresGet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT value FROM plugboard_entries WHERE key = \$1`).
		WithArgs("config/a").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("one")))

	value, err := s.Get(context.Background(), "config/a")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(value) != "one" {
		t.Errorf("Get() = %q, want one", value)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT value FROM plugboard_entries WHERE key = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	if _, err := s.Get(context.Background(), "missing"); !errors.IsNotFound(err) {
		t.Errorf("Get() = %v, want not-found", err)
	}
}

func TestPostgresPut(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO plugboard_entries`).
		WithArgs("config/a", []byte("one")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Put(context.Background(), "config/a", []byte("one")); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM plugboard_entries WHERE key = \$1`).
		WithArgs("config/a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Delete(context.Background(), "config/a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
}

func TestPostgresList(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT key FROM plugboard_entries WHERE key LIKE`).
		WithArgs("config/").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("config/a").AddRow("config/b"))

	keys, err := s.List(context.Background(), "config/")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "config/a" {
		t.Errorf("List() = %v", keys)
	}
}

func TestPostgresHealth(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectPing()
	if err := s.Health(context.Background()); err != nil {
		t.Errorf("Health() error: %v", err)
	}
}
