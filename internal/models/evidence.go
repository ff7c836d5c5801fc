package models

import (
	"time"

	"gorm.io/datatypes"
)

type EvidenceType string

const (
	EvidenceImage     EvidenceType = "image"
	EvidenceVideo     EvidenceType = "video"
	EvidenceAudio     EvidenceType = "audio"
	EvidenceScreenCap EvidenceType = "screen_capture"
)

const (
	// EvidenceRetentionDays is the fixed retention window applied at
	// registration time.
	EvidenceRetentionDays = 90

	// ChecksumAlgorithm labels the checksum stored on confirmed uploads.
	ChecksumAlgorithm = "sha256"
)

// ProctorEvidence tracks one captured artifact associated with a
// session. Two-phase upload: registered (isUploaded=false) then
// confirmed. The artifact bytes themselves live in external storage;
// this row is inert metadata.
type ProctorEvidence struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	SessionID uint         `json:"session_id" gorm:"not null;index"`
	Type      EvidenceType `json:"type" gorm:"not null;size:20" validate:"required,evidence_type"`

	FileName    string `json:"file_name" gorm:"not null;size:255" validate:"required,max=255"`
	ContentType string `json:"content_type" gorm:"not null;size:100" validate:"required"`
	FilePath    string `json:"file_path" gorm:"not null;size:500"`

	FileSize *int64  `json:"file_size"`
	Checksum *string `json:"checksum" gorm:"size:128"`

	// Optional capture interval for recordings.
	CaptureStart *time.Time `json:"capture_start"`
	CaptureEnd   *time.Time `json:"capture_end"`

	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	IsUploaded bool       `json:"is_uploaded" gorm:"default:false;index"`
	UploadedAt *time.Time `json:"uploaded_at"`

	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	IsExpired bool      `json:"is_expired" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session ProctorSession `json:"-" gorm:"foreignKey:SessionID"`
}

func (ProctorEvidence) TableName() string {
	return "proctor_evidence"
}
