package services

import (
	"log/slog"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/directory"
	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

type serviceManager struct {
	session  SessionService
	event    EventService
	risk     RiskService
	decision DecisionService
	evidence EvidenceService
	triage   TriageService
}

// NewServiceManager wires all services against one repository, publisher
// and cache.
func NewServiceManager(
	repo repositories.Repository,
	logger *slog.Logger,
	validator *utils.Validator,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	userDirectory directory.UserDirectory,
) ServiceManager {
	return &serviceManager{
		session:  NewSessionService(repo, logger, validator, publisher),
		event:    NewEventService(repo, logger, validator),
		risk:     NewRiskService(repo, logger, validator),
		decision: NewDecisionService(repo, logger, validator, publisher),
		evidence: NewEvidenceService(repo, logger, validator, cacheService),
		triage:   NewTriageService(repo, logger, cacheService, userDirectory),
	}
}

func (m *serviceManager) Session() SessionService   { return m.session }
func (m *serviceManager) Event() EventService       { return m.event }
func (m *serviceManager) Risk() RiskService         { return m.risk }
func (m *serviceManager) Decision() DecisionService { return m.decision }
func (m *serviceManager) Evidence() EvidenceService { return m.evidence }
func (m *serviceManager) Triage() TriageService     { return m.triage }
