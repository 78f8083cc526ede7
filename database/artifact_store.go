// database/artifact_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/ibis-project/ibis-examples/models"
)

const createArtifactsTable = `
	CREATE TABLE IF NOT EXISTS pipeline_artifacts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		pipeline VARCHAR(64) NOT NULL,
		stage VARCHAR(64) NOT NULL,
		source_url TEXT NULL,
		path VARCHAR(1024) NOT NULL,
		size_bytes BIGINT NOT NULL,
		sha256 CHAR(64) NULL,
		produced_at DATETIME NOT NULL,
		UNIQUE KEY uq_pipeline_stage (pipeline, stage)
	)`

// EnsureSchema creates the pipeline_artifacts table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, createArtifactsTable); err != nil {
		return fmt.Errorf("failed to create pipeline_artifacts table: %w", err)
	}
	return nil
}

// RecordArtifact inserts or replaces the ledger row for a pipeline stage.
func (s *Store) RecordArtifact(ctx context.Context, a models.Artifact) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	var sourceURL, sum sql.NullString
	if a.SourceURL != "" {
		sourceURL = sql.NullString{String: a.SourceURL, Valid: true}
	}
	if a.SHA256 != "" {
		sum = sql.NullString{String: a.SHA256, Valid: true}
	}

	query := `
		INSERT INTO pipeline_artifacts (
			pipeline, stage, source_url, path, size_bytes, sha256, produced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			source_url = VALUES(source_url),
			path = VALUES(path),
			size_bytes = VALUES(size_bytes),
			sha256 = VALUES(sha256),
			produced_at = VALUES(produced_at)
	`
	_, err := s.DB.ExecContext(ctx, query,
		a.Pipeline, a.Stage, sourceURL, a.Path, a.SizeBytes, sum, a.ProducedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact %s/%s: %w", a.Pipeline, a.Stage, err)
	}

	log.Printf("Database: Recorded %s/%s artifact %s (%d bytes)\n", a.Pipeline, a.Stage, a.Path, a.SizeBytes)
	return nil
}

// ListArtifacts returns every ledger row ordered by pipeline and stage.
func (s *Store) ListArtifacts(ctx context.Context) ([]models.Artifact, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, pipeline, stage, source_url, path, size_bytes, sha256, produced_at
		FROM pipeline_artifacts
		ORDER BY pipeline, stage
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipeline_artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		var a models.Artifact
		var sourceURL, sum sql.NullString
		if err := rows.Scan(&a.ID, &a.Pipeline, &a.Stage, &sourceURL, &a.Path, &a.SizeBytes, &sum, &a.ProducedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline_artifacts row: %w", err)
		}
		a.SourceURL = sourceURL.String
		a.SHA256 = sum.String
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pipeline_artifacts rows: %w", err)
	}
	return artifacts, nil
}
