package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
)

// fakeStore is an in-memory repositories.Repository with transactional
// rollback, so service tests exercise the same atomicity contracts the
// postgres implementation provides.
type fakeStore struct {
	mu sync.Mutex

	sessions      map[uint]*models.ProctorSession
	events        []*models.ProctorEvent
	rules         map[uint]*models.ProctorRiskRule
	snapshots     []*models.ProctorRiskSnapshot
	decisions     map[uint]*models.ProctorDecision
	decisionLogs  []*models.ProctorDecisionLog
	evidence      map[uint]*models.ProctorEvidence
	attempts      map[uint]*models.Attempt
	attemptAudits []*models.AttemptAuditEvent

	nextID uint

	// Injectable failures.
	failAttemptUpdate bool
	failEventCreate   bool

	// afterStaleScan runs once after a GetStale scan, outside the store
	// lock, so tests can mutate sessions between scan and row lock.
	afterStaleScan func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[uint]*models.ProctorSession),
		rules:     make(map[uint]*models.ProctorRiskRule),
		decisions: make(map[uint]*models.ProctorDecision),
		evidence:  make(map[uint]*models.ProctorEvidence),
		attempts:  make(map[uint]*models.Attempt),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

type storeSnapshot struct {
	sessions      map[uint]*models.ProctorSession
	events        []*models.ProctorEvent
	rules         map[uint]*models.ProctorRiskRule
	snapshots     []*models.ProctorRiskSnapshot
	decisions     map[uint]*models.ProctorDecision
	decisionLogs  []*models.ProctorDecisionLog
	evidence      map[uint]*models.ProctorEvidence
	attempts      map[uint]*models.Attempt
	attemptAudits []*models.AttemptAuditEvent
	nextID        uint
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		sessions:      make(map[uint]*models.ProctorSession, len(s.sessions)),
		events:        append([]*models.ProctorEvent(nil), s.events...),
		rules:         make(map[uint]*models.ProctorRiskRule, len(s.rules)),
		snapshots:     append([]*models.ProctorRiskSnapshot(nil), s.snapshots...),
		decisions:     make(map[uint]*models.ProctorDecision, len(s.decisions)),
		decisionLogs:  append([]*models.ProctorDecisionLog(nil), s.decisionLogs...),
		evidence:      make(map[uint]*models.ProctorEvidence, len(s.evidence)),
		attempts:      make(map[uint]*models.Attempt, len(s.attempts)),
		attemptAudits: append([]*models.AttemptAuditEvent(nil), s.attemptAudits...),
		nextID:        s.nextID,
	}
	for k, v := range s.sessions {
		c := *v
		snap.sessions[k] = &c
	}
	for k, v := range s.rules {
		c := *v
		snap.rules[k] = &c
	}
	for k, v := range s.decisions {
		c := *v
		snap.decisions[k] = &c
	}
	for k, v := range s.evidence {
		c := *v
		snap.evidence[k] = &c
	}
	for k, v := range s.attempts {
		c := *v
		snap.attempts[k] = &c
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.sessions = snap.sessions
	s.events = snap.events
	s.rules = snap.rules
	s.snapshots = snap.snapshots
	s.decisions = snap.decisions
	s.decisionLogs = snap.decisionLogs
	s.evidence = snap.evidence
	s.attempts = snap.attempts
	s.attemptAudits = snap.attemptAudits
	s.nextID = snap.nextID
}

// fakeRepo implements repositories.Repository on top of fakeStore.
type fakeRepo struct {
	store *fakeStore
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{store: newFakeStore()}
}

func (r *fakeRepo) Session() repositories.SessionRepository           { return &fakeSessionRepo{r.store} }
func (r *fakeRepo) Event() repositories.EventRepository               { return &fakeEventRepo{r.store} }
func (r *fakeRepo) RiskRule() repositories.RiskRuleRepository         { return &fakeRuleRepo{r.store} }
func (r *fakeRepo) RiskSnapshot() repositories.RiskSnapshotRepository { return &fakeSnapshotRepo{r.store} }
func (r *fakeRepo) Decision() repositories.DecisionRepository         { return &fakeDecisionRepo{r.store} }
func (r *fakeRepo) Evidence() repositories.EvidenceRepository         { return &fakeEvidenceRepo{r.store} }
func (r *fakeRepo) Attempt() repositories.AttemptRepository           { return &fakeAttemptRepo{r.store} }

func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.store.mu.Lock()
	snap := r.store.snapshot()
	r.store.mu.Unlock()

	if err := fn(&fakeRepo{store: r.store}); err != nil {
		r.store.mu.Lock()
		r.store.restore(snap)
		r.store.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

// ===== SESSIONS =====

type fakeSessionRepo struct{ s *fakeStore }

func (r *fakeSessionRepo) Create(ctx context.Context, session *models.ProctorSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sessions {
		if existing.AttemptID == session.AttemptID && existing.Mode == session.Mode {
			return errors.New("duplicate key value violates unique constraint \"idx_attempt_mode\"")
		}
	}
	session.ID = r.s.id()
	session.CreatedAt = time.Now()
	c := *session
	r.s.sessions[session.ID] = &c
	return nil
}

func (r *fakeSessionRepo) get(id uint) (*models.ProctorSession, error) {
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *session
	return &c, nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uint) (*models.ProctorSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(id)
}

func (r *fakeSessionRepo) GetByIDWithDetails(ctx context.Context, id uint) (*models.ProctorSession, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeSessionRepo) GetForUpdate(ctx context.Context, id uint) (*models.ProctorSession, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeSessionRepo) GetByAttemptAndMode(ctx context.Context, attemptID uint, mode models.SessionMode) (*models.ProctorSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.AttemptID == attemptID && session.Mode == mode {
			c := *session
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *models.ProctorSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *session
	r.s.sessions[session.ID] = &c
	return nil
}

func (r *fakeSessionRepo) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.ProctorSession, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorSession
	for _, session := range r.s.sessions {
		if filters.Status != nil && session.Status != *filters.Status {
			continue
		}
		if filters.IsFlagged != nil && session.IsFlagged != *filters.IsFlagged {
			continue
		}
		c := *session
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeSessionRepo) GetStale(ctx context.Context, cutoff time.Time) ([]*models.ProctorSession, error) {
	r.s.mu.Lock()
	var out []*models.ProctorSession
	for _, session := range r.s.sessions {
		if session.Status != models.SessionActive {
			continue
		}
		if session.LastHeartbeatAt == nil || !session.LastHeartbeatAt.Before(cutoff) {
			continue
		}
		c := *session
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	r.s.mu.Unlock()

	if r.s.afterStaleScan != nil {
		hook := r.s.afterStaleScan
		r.s.afterStaleScan = nil
		hook()
	}
	return out, nil
}

func (r *fakeSessionRepo) GetTriageCandidates(ctx context.Context, limit int) ([]*models.ProctorSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorSession
	for _, session := range r.s.sessions {
		if session.Status != models.SessionActive || session.RiskScore == nil || *session.RiskScore <= 0 {
			continue
		}
		c := *session
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if *out[i].RiskScore != *out[j].RiskScore {
			return *out[i].RiskScore > *out[j].RiskScore
		}
		return out[i].TotalViolations > out[j].TotalViolations
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ===== EVENTS =====

type fakeEventRepo struct{ s *fakeStore }

func (r *fakeEventRepo) Create(ctx context.Context, event *models.ProctorEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failEventCreate {
		return errors.New("event insert failed")
	}
	event.ID = r.s.id()
	event.CreatedAt = time.Now()
	c := *event
	r.s.events = append(r.s.events, &c)
	return nil
}

func (r *fakeEventRepo) CreateBatch(ctx context.Context, events []*models.ProctorEvent) error {
	for _, event := range events {
		if err := r.Create(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeEventRepo) GetBySession(ctx context.Context, sessionID uint) ([]*models.ProctorEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorEvent
	for _, event := range r.s.events {
		if event.SessionID == sessionID {
			c := *event
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) GetRecent(ctx context.Context, sessionID uint, limit int) ([]*models.ProctorEvent, error) {
	all, err := r.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *fakeEventRepo) CountByTypeSince(ctx context.Context, sessionID uint, since time.Time) (map[models.ProctorEventType]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[models.ProctorEventType]int)
	for _, event := range r.s.events {
		if event.SessionID == sessionID && !event.OccurredAt.Before(since) {
			counts[event.EventType]++
		}
	}
	return counts, nil
}

// ===== RISK RULES =====

type fakeRuleRepo struct{ s *fakeStore }

func (r *fakeRuleRepo) Create(ctx context.Context, rule *models.ProctorRiskRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule.ID = r.s.id()
	c := *rule
	r.s.rules[rule.ID] = &c
	return nil
}

func (r *fakeRuleRepo) GetByID(ctx context.Context, id uint) (*models.ProctorRiskRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rule, ok := r.s.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *rule
	return &c, nil
}

func (r *fakeRuleRepo) Update(ctx context.Context, rule *models.ProctorRiskRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rules[rule.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *rule
	r.s.rules[rule.ID] = &c
	return nil
}

func (r *fakeRuleRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.rules, id)
	return nil
}

func (r *fakeRuleRepo) List(ctx context.Context, filters repositories.RuleFilters) ([]*models.ProctorRiskRule, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorRiskRule
	for _, rule := range r.s.rules {
		if filters.IsActive != nil && rule.IsActive != *filters.IsActive {
			continue
		}
		if filters.EventType != nil && rule.EventType != *filters.EventType {
			continue
		}
		c := *rule
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeRuleRepo) GetActive(ctx context.Context) ([]*models.ProctorRiskRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorRiskRule
	for _, rule := range r.s.rules {
		if rule.IsActive {
			c := *rule
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// ===== RISK SNAPSHOTS =====

type fakeSnapshotRepo struct{ s *fakeStore }

func (r *fakeSnapshotRepo) Create(ctx context.Context, snapshot *models.ProctorRiskSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snapshot.ID = r.s.id()
	c := *snapshot
	r.s.snapshots = append(r.s.snapshots, &c)
	return nil
}

func (r *fakeSnapshotRepo) GetBySession(ctx context.Context, sessionID uint) ([]*models.ProctorRiskSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorRiskSnapshot
	for _, snapshot := range r.s.snapshots {
		if snapshot.SessionID == sessionID {
			c := *snapshot
			out = append(out, &c)
		}
	}
	return out, nil
}

// ===== DECISIONS =====

type fakeDecisionRepo struct{ s *fakeStore }

func (r *fakeDecisionRepo) Create(ctx context.Context, decision *models.ProctorDecision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.decisions {
		if existing.SessionID == decision.SessionID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	decision.ID = r.s.id()
	c := *decision
	r.s.decisions[decision.ID] = &c
	return nil
}

func (r *fakeDecisionRepo) GetByID(ctx context.Context, id uint) (*models.ProctorDecision, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	decision, ok := r.s.decisions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *decision
	return &c, nil
}

func (r *fakeDecisionRepo) GetBySession(ctx context.Context, sessionID uint) (*models.ProctorDecision, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, decision := range r.s.decisions {
		if decision.SessionID == sessionID {
			c := *decision
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDecisionRepo) Update(ctx context.Context, decision *models.ProctorDecision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.decisions[decision.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *decision
	r.s.decisions[decision.ID] = &c
	return nil
}

func (r *fakeDecisionRepo) AppendLog(ctx context.Context, entry *models.ProctorDecisionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.CreatedAt = time.Now()
	c := *entry
	r.s.decisionLogs = append(r.s.decisionLogs, &c)
	return nil
}

func (r *fakeDecisionRepo) GetLogs(ctx context.Context, decisionID uint) ([]*models.ProctorDecisionLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorDecisionLog
	for _, entry := range r.s.decisionLogs {
		if entry.DecisionID == decisionID {
			c := *entry
			out = append(out, &c)
		}
	}
	return out, nil
}

// ===== EVIDENCE =====

type fakeEvidenceRepo struct{ s *fakeStore }

func (r *fakeEvidenceRepo) Create(ctx context.Context, evidence *models.ProctorEvidence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	evidence.ID = r.s.id()
	c := *evidence
	r.s.evidence[evidence.ID] = &c
	return nil
}

func (r *fakeEvidenceRepo) GetByID(ctx context.Context, id uint) (*models.ProctorEvidence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	evidence, ok := r.s.evidence[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *evidence
	return &c, nil
}

func (r *fakeEvidenceRepo) Update(ctx context.Context, evidence *models.ProctorEvidence) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.evidence[evidence.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	c := *evidence
	r.s.evidence[evidence.ID] = &c
	return nil
}

func (r *fakeEvidenceRepo) GetBySession(ctx context.Context, sessionID uint, filters repositories.EvidenceFilters) ([]*models.ProctorEvidence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.ProctorEvidence
	for _, evidence := range r.s.evidence {
		if evidence.SessionID != sessionID {
			continue
		}
		if filters.Type != nil && evidence.Type != *filters.Type {
			continue
		}
		if filters.IsUploaded != nil && evidence.IsUploaded != *filters.IsUploaded {
			continue
		}
		c := *evidence
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEvidenceRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, evidence := range r.s.evidence {
		if !evidence.IsExpired && evidence.ExpiresAt.Before(now) {
			evidence.IsExpired = true
			count++
		}
	}
	return count, nil
}

// ===== ATTEMPTS =====

type fakeAttemptRepo struct{ s *fakeStore }

func (r *fakeAttemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	attempt, ok := r.s.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *attempt
	return &c, nil
}

func (r *fakeAttemptRepo) UpdateStatus(ctx context.Context, id uint, status models.AttemptStatus, endReason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAttemptUpdate {
		return errors.New("attempt store unavailable")
	}
	attempt, ok := r.s.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.Status = status
	attempt.EndReason = &endReason
	return nil
}

func (r *fakeAttemptRepo) AppendAuditEvent(ctx context.Context, event *models.AttemptAuditEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = r.s.id()
	event.CreatedAt = time.Now()
	c := *event
	r.s.attemptAudits = append(r.s.attemptAudits, &c)
	return nil
}

// ===== FAKE CACHE =====

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	c.sets++
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) DeletePattern(ctx context.Context, pattern string) error {
	return nil
}
