// models/artifact.go
package models

import "time"

// Artifact is a file produced by a pipeline stage, as tracked in the artifacts table.
type Artifact struct {
	ID         int64     `db:"id" json:"id"`
	Pipeline   string    `db:"pipeline" json:"pipeline"` // e.g., "campaign", "tutorial"
	Stage      string    `db:"stage" json:"stage"`       // e.g., "fetch", "extract", "transform"
	SourceURL  string    `db:"source_url" json:"source_url,omitempty"`
	Path       string    `db:"path" json:"path"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	SHA256     string    `db:"sha256" json:"sha256,omitempty"`
	ProducedAt time.Time `db:"produced_at" json:"produced_at"`
}

// StageResult describes what the stage guard did for one stage.
type StageResult struct {
	Stage    string        `json:"stage"`
	Path     string        `json:"path"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of one pipeline run, stages in execution order.
type Report struct {
	Pipeline string        `json:"pipeline"`
	Stages   []StageResult `json:"stages"`
}

// Produced returns how many stages actually ran.
func (r Report) Produced() int {
	n := 0
	for _, s := range r.Stages {
		if !s.Skipped {
			n++
		}
	}
	return n
}

// ArtifactStatus is the on-disk state of an expected artifact.
type ArtifactStatus struct {
	Pipeline  string     `json:"pipeline"`
	Stage     string     `json:"stage"`
	Path      string     `json:"path"`
	Exists    bool       `json:"exists"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	ModTime   *time.Time `json:"mod_time,omitempty"`
}
