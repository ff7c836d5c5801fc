package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

const (
	// uploadTokenTTL bounds the window between registering evidence and
	// pushing the bytes to storage.
	uploadTokenTTL = 30 * time.Minute

	uploadTokenKeyPrefix = "proctoring:evidence:upload:"
)

// allowedContentPrefixes maps each evidence type to acceptable MIME
// prefixes. Screen captures come in as either stills or recordings.
var allowedContentPrefixes = map[models.EvidenceType][]string{
	models.EvidenceImage:     {"image/"},
	models.EvidenceVideo:     {"video/"},
	models.EvidenceAudio:     {"audio/"},
	models.EvidenceScreenCap: {"image/", "video/"},
}

type evidenceService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
	cache     cache.CacheService
}

func NewEvidenceService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator, cacheService cache.CacheService) EvidenceService {
	return &evidenceService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheService,
	}
}

func (s *evidenceService) RequestUpload(ctx context.Context, sessionID uint, req *RequestUploadRequest, candidateID string) (*UploadHandleResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !contentTypeAllowed(req.Type, req.ContentType) {
		return nil, ErrInvalidContentType
	}

	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.CandidateID != candidateID {
		return nil, ErrSessionAccessDenied
	}
	if session.Status != models.SessionActive {
		return nil, ErrSessionNotActive
	}

	now := time.Now().UTC()
	evidence := &models.ProctorEvidence{
		SessionID:    sessionID,
		Type:         req.Type,
		FileName:     req.FileName,
		ContentType:  req.ContentType,
		FilePath:     buildEvidencePath(sessionID, req.Type, req.FileName),
		CaptureStart: req.CaptureStart,
		CaptureEnd:   req.CaptureEnd,
		Metadata:     req.Metadata,
		ExpiresAt:    now.AddDate(0, 0, models.EvidenceRetentionDays),
	}
	if err := s.repo.Evidence().Create(ctx, evidence); err != nil {
		return nil, fmt.Errorf("failed to register evidence: %w", err)
	}

	token := uuid.NewString()
	if err := s.cache.Set(ctx, uploadTokenKeyPrefix+token, evidence.ID, uploadTokenTTL); err != nil {
		return nil, fmt.Errorf("%w: failed to store upload token: %v", ErrExternalDependency, err)
	}

	s.logger.Info("Evidence upload registered",
		"evidence_id", evidence.ID,
		"session_id", sessionID,
		"type", req.Type)

	return &UploadHandleResponse{
		EvidenceID:     evidence.ID,
		UploadToken:    token,
		UploadPath:     evidence.FilePath,
		TokenExpiresAt: now.Add(uploadTokenTTL),
		ExpiresAt:      evidence.ExpiresAt,
	}, nil
}

func (s *evidenceService) ConfirmUpload(ctx context.Context, uploadToken string, fileSize int64, checksum string) (*models.ProctorEvidence, error) {
	var evidenceID uint
	if err := s.cache.Get(ctx, uploadTokenKeyPrefix+uploadToken, &evidenceID); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrUploadTokenInvalid
		}
		return nil, fmt.Errorf("%w: failed to resolve upload token: %v", ErrExternalDependency, err)
	}

	evidence, err := s.repo.Evidence().GetByID(ctx, evidenceID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvidenceNotFound
		}
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}

	// Idempotent: re-confirming an uploaded record is a no-op.
	if evidence.IsUploaded {
		return evidence, nil
	}

	now := time.Now().UTC()
	evidence.FileSize = &fileSize
	evidence.Checksum = &checksum
	evidence.IsUploaded = true
	evidence.UploadedAt = &now

	if err := s.repo.Evidence().Update(ctx, evidence); err != nil {
		return nil, fmt.Errorf("failed to confirm evidence upload: %w", err)
	}

	// Token is single-use. A failed delete just leaves it to expire;
	// re-confirmation is harmless either way.
	if err := s.cache.Delete(ctx, uploadTokenKeyPrefix+uploadToken); err != nil {
		s.logger.Warn("Failed to delete upload token", "evidence_id", evidenceID, "error", err)
	}

	s.logger.Info("Evidence upload confirmed",
		"evidence_id", evidence.ID,
		"session_id", evidence.SessionID,
		"file_size", fileSize)
	return evidence, nil
}

func (s *evidenceService) ListBySession(ctx context.Context, sessionID uint, filters repositories.EvidenceFilters) ([]*models.ProctorEvidence, error) {
	if _, err := s.repo.Session().GetByID(ctx, sessionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s.repo.Evidence().GetBySession(ctx, sessionID, filters)
}

func (s *evidenceService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.Evidence().MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired evidence: %w", err)
	}
	if count > 0 {
		s.logger.Info("Evidence retention sweep completed", "expired", count)
	}
	return count, nil
}

func contentTypeAllowed(evidenceType models.EvidenceType, contentType string) bool {
	for _, prefix := range allowedContentPrefixes[evidenceType] {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

func buildEvidencePath(sessionID uint, evidenceType models.EvidenceType, fileName string) string {
	return fmt.Sprintf("proctoring/%d/%s/%s_%s", sessionID, evidenceType, uuid.NewString(), fileName)
}
