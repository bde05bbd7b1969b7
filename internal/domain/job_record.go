package domain

import "time"

// JobRecord is the persisted history row of a job that reached a terminal state.
type JobRecord struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	Kind         JobKind    `gorm:"type:text;not null;index" json:"kind"`
	Status       JobStatus  `gorm:"type:text;not null;index" json:"status"`
	Prompt       string     `gorm:"type:text" json:"prompt"`
	Model        string     `gorm:"type:text" json:"model"`
	ArtifactRef  string     `gorm:"type:text" json:"artifact_ref,omitempty"`
	ArtifactURL  string     `gorm:"type:text" json:"artifact_url,omitempty"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	ReturnCode   *int       `json:"returncode,omitempty"`
	Repairs      int        `gorm:"default:0" json:"repairs"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the database table name for JobRecord.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (JobRecord) TableName() string {
	return "generation_jobs"
}

// NewJobRecord flattens a job snapshot into its history row.
func NewJobRecord(j Job) *JobRecord {
	rec := &JobRecord{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.Status(),
		Prompt:    j.Prompt,
		Model:     j.Model,
		Repairs:   j.Diagnostics.Repairs,
		CreatedAt: j.CreatedAt,
	}
	if j.Diagnostics.ReturnCode != nil {
		rc := *j.Diagnostics.ReturnCode
		rec.ReturnCode = &rc
	}
	switch s := j.State.(type) {
	case Done:
		rec.ArtifactRef = s.ArtifactRef
		rec.ArtifactURL = s.ArtifactURL
		t := s.CompletedAt
		rec.CompletedAt = &t
	case Failed:
		rec.ErrorMessage = s.Message
		t := s.CompletedAt
		rec.CompletedAt = &t
	}
	return rec
}
