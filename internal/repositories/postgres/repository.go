package postgres

import (
	"context"

	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"gorm.io/gorm"
)

// gormRepository binds all entity repositories to one *gorm.DB handle.
// WithTransaction rebinds them to a transaction handle so every call
// inside fn shares the same database transaction.
type gormRepository struct {
	db *gorm.DB

	session      repositories.SessionRepository
	event        repositories.EventRepository
	riskRule     repositories.RiskRuleRepository
	riskSnapshot repositories.RiskSnapshotRepository
	decision     repositories.DecisionRepository
	evidence     repositories.EvidenceRepository
	attempt      repositories.AttemptRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:           db,
		session:      NewSessionPostgreSQL(db),
		event:        NewEventPostgreSQL(db),
		riskRule:     NewRiskRulePostgreSQL(db),
		riskSnapshot: NewRiskSnapshotPostgreSQL(db),
		decision:     NewDecisionPostgreSQL(db),
		evidence:     NewEvidencePostgreSQL(db),
		attempt:      NewAttemptPostgreSQL(db),
	}
}

func (r *gormRepository) Session() repositories.SessionRepository           { return r.session }
func (r *gormRepository) Event() repositories.EventRepository               { return r.event }
func (r *gormRepository) RiskRule() repositories.RiskRuleRepository         { return r.riskRule }
func (r *gormRepository) RiskSnapshot() repositories.RiskSnapshotRepository { return r.riskSnapshot }
func (r *gormRepository) Decision() repositories.DecisionRepository         { return r.decision }
func (r *gormRepository) Evidence() repositories.EvidenceRepository         { return r.evidence }
func (r *gormRepository) Attempt() repositories.AttemptRepository           { return r.attempt }

func (r *gormRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *gormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *gormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
