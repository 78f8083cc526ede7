package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/ibis-project/ibis-examples/config"
	"github.com/ibis-project/ibis-examples/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_artifacts").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordArtifact(t *testing.T) {
	store, mock := newMockStore(t)
	produced := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	a := models.Artifact{
		Pipeline:   "campaign",
		Stage:      "transform",
		Path:       "data/itcont.parquet",
		SizeBytes:  1024,
		SHA256:     strings.Repeat("a", 64),
		ProducedAt: produced,
	}
	mock.ExpectExec("INSERT INTO pipeline_artifacts").
		WithArgs("campaign", "transform", nil, "data/itcont.parquet", int64(1024), strings.Repeat("a", 64), produced).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.RecordArtifact(context.Background(), a); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordArtifactError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO pipeline_artifacts").WillReturnError(errors.New("connection refused"))

	err := store.RecordArtifact(context.Background(), models.Artifact{Pipeline: "tutorial", Stage: "fetch"})
	if err == nil || !strings.Contains(err.Error(), "tutorial/fetch") {
		t.Fatalf("expected wrapped error naming the stage, got %v", err)
	}
}

func TestListArtifacts(t *testing.T) {
	store, mock := newMockStore(t)
	produced := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "pipeline", "stage", "source_url", "path", "size_bytes", "sha256", "produced_at"}).
		AddRow(int64(1), "campaign", "fetch", "https://example.com/indiv18.zip", "data/indiv18.zip", int64(10), nil, produced).
		AddRow(int64(2), "tutorial", "fetch", nil, "geography.db", int64(20), "abc", produced)
	mock.ExpectQuery("FROM pipeline_artifacts").WillReturnRows(rows)

	got, err := store.ListArtifacts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(got))
	}
	if got[0].SourceURL != "https://example.com/indiv18.zip" || got[0].SHA256 != "" {
		t.Fatalf("unexpected first artifact %+v", got[0])
	}
	if got[1].SourceURL != "" || got[1].SHA256 != "abc" || !got[1].ProducedAt.Equal(produced) {
		t.Fatalf("unexpected second artifact %+v", got[1])
	}
}

func TestRecordArtifactWithoutConnection(t *testing.T) {
	var s *Store
	if err := s.RecordArtifact(context.Background(), models.Artifact{}); err == nil {
		t.Fatalf("expected error without a connection")
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db.internal", Port: "3307", User: "prep", Password: "secret", DBName: "fec"})
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse %s: %v", dsn, err)
	}
	if mc.User != "prep" || mc.Passwd != "secret" || mc.Addr != "db.internal:3307" || mc.DBName != "fec" || !mc.ParseTime {
		t.Fatalf("unexpected DSN %s", dsn)
	}
}
