package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/directory"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

const (
	defaultTriageLimit = 20
	maxTriageLimit     = 100

	// triageWindow is the recent-activity window behind the reason text.
	triageWindow = 5 * time.Minute

	// triageCacheTTL keeps the ranking cheap under dashboard polling
	// without going visibly stale.
	triageCacheTTL = 30 * time.Second

	triageCacheKeyPrefix = "proctoring:triage:limit:"
)

type reasonTemplate struct {
	eventType models.ProctorEventType
	en        string
	ar        string
}

// reasonTemplates order decides which recent activity headlines a triage
// entry. Count placeholders are filled per session.
var reasonTemplates = []reasonTemplate{
	{models.EventMultipleFaces, "Multiple faces detected %d time(s) in the last 5 minutes", "تم رصد أكثر من وجه %d مرة خلال آخر 5 دقائق"},
	{models.EventFaceNotDetected, "Face not detected %d time(s) in the last 5 minutes", "لم يتم رصد وجه المتقدم %d مرة خلال آخر 5 دقائق"},
	{models.EventTabSwitched, "Left the exam tab %d time(s) in the last 5 minutes", "غادر المتقدم صفحة الاختبار %d مرة خلال آخر 5 دقائق"},
	{models.EventCameraBlocked, "Camera blocked %d time(s) in the last 5 minutes", "تم حجب الكاميرا %d مرة خلال آخر 5 دقائق"},
	{models.EventFullscreenExited, "Exited fullscreen %d time(s) in the last 5 minutes", "تم الخروج من وضع ملء الشاشة %d مرة خلال آخر 5 دقائق"},
	{models.EventCopyAttempt, "Copy attempted %d time(s) in the last 5 minutes", "حاول المتقدم النسخ %d مرة خلال آخر 5 دقائق"},
	{models.EventPasteAttempt, "Paste attempted %d time(s) in the last 5 minutes", "حاول المتقدم اللصق %d مرة خلال آخر 5 دقائق"},
	{models.EventDevToolsOpened, "Developer tools opened %d time(s) in the last 5 minutes", "تم فتح أدوات المطور %d مرة خلال آخر 5 دقائق"},
	{models.EventWindowBlur, "Exam window lost focus %d time(s) in the last 5 minutes", "خرجت نافذة الاختبار عن التركيز %d مرة خلال آخر 5 دقائق"},
	{models.EventFaceOutOfFrame, "Face out of frame %d time(s) in the last 5 minutes", "خرج وجه المتقدم من الإطار %d مرة خلال آخر 5 دقائق"},
}

type triageService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	cache     cache.CacheService
	directory directory.UserDirectory
}

func NewTriageService(repo repositories.Repository, logger *slog.Logger, cacheService cache.CacheService, userDirectory directory.UserDirectory) TriageService {
	return &triageService{
		repo:      repo,
		logger:    logger,
		cache:     cacheService,
		directory: userDirectory,
	}
}

func (s *triageService) GetRecommendations(ctx context.Context, limit int) ([]*TriageEntry, error) {
	if limit <= 0 {
		limit = defaultTriageLimit
	}
	if limit > maxTriageLimit {
		limit = maxTriageLimit
	}

	cacheKey := fmt.Sprintf("%s%d", triageCacheKeyPrefix, limit)
	var cached []*TriageEntry
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Triage cache read failed", "error", err)
	}

	sessions, err := s.repo.Session().GetTriageCandidates(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load triage candidates: %w", err)
	}

	since := time.Now().UTC().Add(-triageWindow)
	entries := make([]*TriageEntry, 0, len(sessions))
	for _, session := range sessions {
		counts, err := s.repo.Event().CountByTypeSince(ctx, session.ID, since)
		if err != nil {
			s.logger.Warn("Failed to count recent events for triage",
				"session_id", session.ID,
				"error", err)
			counts = nil
		}

		score := derefFloat(session.RiskScore)
		entry := &TriageEntry{
			SessionID:       session.ID,
			ExamID:          session.ExamID,
			AttemptID:       session.AttemptID,
			CandidateID:     session.CandidateID,
			CandidateName:   s.lookupName(ctx, session.CandidateID),
			Mode:            session.Mode,
			RiskScore:       score,
			RiskLevel:       models.RiskLevelFor(score),
			TotalViolations: session.TotalViolations,
		}
		entry.ReasonEn, entry.ReasonAr = buildReason(counts, session.TotalViolations)
		entries = append(entries, entry)
	}

	if err := s.cache.Set(ctx, cacheKey, entries, triageCacheTTL); err != nil {
		s.logger.Warn("Triage cache write failed", "error", err)
	}
	return entries, nil
}

// buildReason concatenates every event type with recent activity, in
// priority order; with no recent activity the total violation count
// stands in.
func buildReason(counts map[models.ProctorEventType]int, totalViolations int) (string, string) {
	var en, ar []string
	for _, tmpl := range reasonTemplates {
		if n := counts[tmpl.eventType]; n > 0 {
			en = append(en, fmt.Sprintf(tmpl.en, n))
			ar = append(ar, fmt.Sprintf(tmpl.ar, n))
		}
	}
	if len(en) > 0 {
		return strings.Join(en, " + "), strings.Join(ar, " + ")
	}
	return fmt.Sprintf("Total violations: %d", totalViolations),
		fmt.Sprintf("إجمالي المخالفات: %d", totalViolations)
}

func (s *triageService) lookupName(ctx context.Context, candidateID string) string {
	if s.directory == nil {
		return ""
	}
	name, err := s.directory.GetDisplayName(ctx, candidateID)
	if err != nil {
		s.logger.Debug("Candidate name lookup failed", "candidate_id", candidateID, "error", err)
		return ""
	}
	return name
}
