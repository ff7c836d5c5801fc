package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"gorm.io/datatypes"
)

// ===== SESSION LIFECYCLE =====

type StartSessionRequest struct {
	AttemptID   uint               `json:"attempt_id" validate:"required"`
	Mode        models.SessionMode `json:"mode" validate:"required,session_mode"`
	DeviceInfo  *string            `json:"device_info" validate:"omitempty,max=2000"`
	BrowserInfo *string            `json:"browser_info" validate:"omitempty,max=2000"`
	IPAddress   string             `json:"ip_address" validate:"omitempty,max=45"`
}

type SessionResponse struct {
	ID                    uint                 `json:"id"`
	AttemptID             uint                 `json:"attempt_id"`
	ExamID                uint                 `json:"exam_id"`
	CandidateID           string               `json:"candidate_id"`
	Mode                  models.SessionMode   `json:"mode"`
	Status                models.SessionStatus `json:"status"`
	StartedAt             time.Time            `json:"started_at"`
	EndedAt               *time.Time           `json:"ended_at,omitempty"`
	TotalEvents           int                  `json:"total_events"`
	TotalViolations       int                  `json:"total_violations"`
	RiskScore             *float64             `json:"risk_score,omitempty"`
	RiskLevel             *models.RiskLevel    `json:"risk_level,omitempty"`
	IsFlagged             bool                 `json:"is_flagged"`
	IsTerminatedByProctor bool                 `json:"is_terminated_by_proctor"`
	LastHeartbeatAt       *time.Time           `json:"last_heartbeat_at,omitempty"`
	RecentEvents          []*models.ProctorEvent `json:"recent_events,omitempty"`
}

// CandidateStatusResponse is the candidate poll target. Reading it
// delivers (and clears) the pending warning.
type CandidateStatusResponse struct {
	Status                models.SessionStatus `json:"status"`
	IsTerminatedByProctor bool                 `json:"is_terminated_by_proctor"`
	TerminationReason     *string              `json:"termination_reason,omitempty"`
	HasWarning            bool                 `json:"has_warning"`
	WarningMessage        *string              `json:"warning_message,omitempty"`
}

type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest, candidateID string) (*SessionResponse, error)
	End(ctx context.Context, sessionID uint, userID string) (*SessionResponse, error)
	Cancel(ctx context.Context, sessionID uint, userID string) error
	Flag(ctx context.Context, sessionID uint, flagged bool, proctorID string) error
	SendWarning(ctx context.Context, sessionID uint, message string, proctorID string) error
	Terminate(ctx context.Context, sessionID uint, reason string, proctorID string) error

	GetByID(ctx context.Context, sessionID uint) (*SessionResponse, error)
	List(ctx context.Context, filters repositories.SessionFilters) ([]*SessionResponse, int64, error)
	GetCandidateStatus(ctx context.Context, sessionID uint, candidateID string) (*CandidateStatusResponse, error)
}

// ===== EVENT INGESTION / HEARTBEAT =====

type LogEventRequest struct {
	EventType       models.ProctorEventType `json:"event_type" validate:"required,proctor_event_type"`
	Severity        int                     `json:"severity" validate:"min=0,max=5"`
	Metadata        datatypes.JSON          `json:"metadata"`
	ClientTimestamp *time.Time              `json:"client_timestamp"`
}

type LogEventResponse struct {
	EventID        uint `json:"event_id"`
	SequenceNumber int  `json:"sequence_number"`
	IsViolation    bool `json:"is_violation"`
}

type BulkLogResponse struct {
	Accepted      int `json:"accepted"`
	FirstSequence int `json:"first_sequence"`
	LastSequence  int `json:"last_sequence"`
	Violations    int `json:"violations"`
}

type HeartbeatRequest struct {
	ClientTimestamp *time.Time     `json:"client_timestamp"`
	Metadata        datatypes.JSON `json:"metadata"`
}

type HeartbeatResponse struct {
	ReceivedAt      time.Time `json:"received_at"`
	TotalViolations int       `json:"total_violations"`
	HasWarning      bool      `json:"has_warning"`
	WarningMessage  string    `json:"warning_message,omitempty"`
}

type SweepResult struct {
	Scanned  int `json:"scanned"`
	Affected int `json:"affected"`
	Failed   int `json:"failed"`
}

type EventService interface {
	LogEvent(ctx context.Context, sessionID uint, req *LogEventRequest, candidateID string) (*LogEventResponse, error)
	BulkLog(ctx context.Context, sessionID uint, reqs []*LogEventRequest, candidateID string) (*BulkLogResponse, error)
	Heartbeat(ctx context.Context, sessionID uint, req *HeartbeatRequest, candidateID string) (*HeartbeatResponse, error)
	SweepMissedHeartbeats(ctx context.Context, thresholdSeconds int) (*SweepResult, error)
}

// ===== RISK ENGINE =====

type RiskCalculationResponse struct {
	SessionID       uint                              `json:"session_id"`
	Score           float64                           `json:"score"`
	Level           models.RiskLevel                  `json:"level"`
	TotalEvents     int                               `json:"total_events"`
	TotalViolations int                               `json:"total_violations"`
	TriggeredRules  []models.TriggeredRule            `json:"triggered_rules"`
	EventCounts     map[models.ProctorEventType]int   `json:"event_counts"`
	CalculatedAt    time.Time                         `json:"calculated_at"`
}

type CreateRiskRuleRequest struct {
	Name           string                  `json:"name" validate:"required,min=1,max=200"`
	EventType      models.ProctorEventType `json:"event_type" validate:"required,proctor_event_type"`
	ThresholdCount int                     `json:"threshold_count" validate:"required,min=1"`
	WindowSeconds  int                     `json:"window_seconds" validate:"min=0"`
	RiskPoints     float64                 `json:"risk_points" validate:"required,gt=0,max=100"`
	MinSeverity    *int                    `json:"min_severity" validate:"omitempty,min=0,max=5"`
	MaxTriggers    *int                    `json:"max_triggers" validate:"omitempty,min=1"`
	Priority       int                     `json:"priority"`
	IsActive       *bool                   `json:"is_active"`
}

type RiskService interface {
	Calculate(ctx context.Context, sessionID uint, calculatedBy string) (*RiskCalculationResponse, error)
	GetSnapshots(ctx context.Context, sessionID uint) ([]*models.ProctorRiskSnapshot, error)

	CreateRule(ctx context.Context, req *CreateRiskRuleRequest, creatorID string) (*models.ProctorRiskRule, error)
	UpdateRule(ctx context.Context, id uint, req *CreateRiskRuleRequest) (*models.ProctorRiskRule, error)
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, active bool) (*models.ProctorRiskRule, error)
	ListRules(ctx context.Context, filters repositories.RuleFilters) ([]*models.ProctorRiskRule, int64, error)
}

// ===== DECISION WORKFLOW =====

type MakeDecisionRequest struct {
	Status   models.DecisionStatus `json:"status" validate:"required,decision_status"`
	ReasonEn *string               `json:"reason_en" validate:"omitempty,max=2000"`
	ReasonAr *string               `json:"reason_ar" validate:"omitempty,max=2000"`
	Notes    *string               `json:"notes" validate:"omitempty,max=4000"`
	Finalize bool                  `json:"finalize"`
}

type OverrideDecisionRequest struct {
	Status models.DecisionStatus `json:"status" validate:"required,decision_status"`
	Reason string                `json:"reason" validate:"required,min=1,max=2000"`
}

type DecisionService interface {
	MakeDecision(ctx context.Context, sessionID uint, req *MakeDecisionRequest, reviewerID string) (*models.ProctorDecision, error)
	Override(ctx context.Context, decisionID uint, req *OverrideDecisionRequest, adminID string) (*models.ProctorDecision, error)
	GetBySession(ctx context.Context, sessionID uint) (*models.ProctorDecision, error)
	GetHistory(ctx context.Context, decisionID uint) ([]*models.ProctorDecisionLog, error)
}

// ===== EVIDENCE REGISTER =====

type RequestUploadRequest struct {
	Type         models.EvidenceType `json:"type" validate:"required,evidence_type"`
	FileName     string              `json:"file_name" validate:"required,max=255"`
	ContentType  string              `json:"content_type" validate:"required,max=100"`
	CaptureStart *time.Time          `json:"capture_start"`
	CaptureEnd   *time.Time          `json:"capture_end"`
	Metadata     datatypes.JSON      `json:"metadata"`
}

type UploadHandleResponse struct {
	EvidenceID     uint      `json:"evidence_id"`
	UploadToken    string    `json:"upload_token"`
	UploadPath     string    `json:"upload_path"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type EvidenceService interface {
	RequestUpload(ctx context.Context, sessionID uint, req *RequestUploadRequest, candidateID string) (*UploadHandleResponse, error)
	ConfirmUpload(ctx context.Context, uploadToken string, fileSize int64, checksum string) (*models.ProctorEvidence, error)
	ListBySession(ctx context.Context, sessionID uint, filters repositories.EvidenceFilters) ([]*models.ProctorEvidence, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// ===== TRIAGE =====

type TriageEntry struct {
	SessionID       uint               `json:"session_id"`
	ExamID          uint               `json:"exam_id"`
	AttemptID       uint               `json:"attempt_id"`
	CandidateID     string             `json:"candidate_id"`
	CandidateName   string             `json:"candidate_name,omitempty"`
	Mode            models.SessionMode `json:"mode"`
	RiskScore       float64            `json:"risk_score"`
	RiskLevel       models.RiskLevel   `json:"risk_level"`
	TotalViolations int                `json:"total_violations"`
	ReasonEn        string             `json:"reason_en"`
	ReasonAr        string             `json:"reason_ar"`
}

type TriageService interface {
	GetRecommendations(ctx context.Context, limit int) ([]*TriageEntry, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Session() SessionService
	Event() EventService
	Risk() RiskService
	Decision() DecisionService
	Evidence() EvidenceService
	Triage() TriageService
}
