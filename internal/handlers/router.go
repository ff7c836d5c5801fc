package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	repo            repositories.Repository
	sessionHandler  *SessionHandler
	eventHandler    *EventHandler
	ruleHandler     *RuleHandler
	decisionHandler *DecisionHandler
	evidenceHandler *EvidenceHandler
	triageHandler   *TriageHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	repo repositories.Repository,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		repo:            repo,
		sessionHandler:  NewSessionHandler(serviceManager.Session(), validator, logger),
		eventHandler:    NewEventHandler(serviceManager.Event(), validator, logger),
		ruleHandler:     NewRuleHandler(serviceManager.Risk(), validator, logger),
		decisionHandler: NewDecisionHandler(serviceManager.Decision(), validator, logger),
		evidenceHandler: NewEvidenceHandler(serviceManager.Evidence(), validator, logger),
		triageHandler:   NewTriageHandler(serviceManager.Triage(), logger),
	}
}

// AuthMiddleware trusts the authenticating gateway and lifts the subject
// into the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", hm.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware())
	{
		proctoring := v1.Group("/proctoring")
		{
			// Session lifecycle
			sessions := proctoring.Group("/sessions")
			{
				sessions.POST("", hm.sessionHandler.StartSession)
				sessions.GET("", hm.sessionHandler.ListSessions)
				sessions.GET("/:id", hm.sessionHandler.GetSession)
				sessions.POST("/:id/end", hm.sessionHandler.EndSession)
				sessions.POST("/:id/cancel", hm.sessionHandler.CancelSession)

				// Proctor actions
				sessions.POST("/:id/flag", hm.sessionHandler.FlagSession)
				sessions.POST("/:id/warning", hm.sessionHandler.SendWarning)
				sessions.POST("/:id/terminate", hm.sessionHandler.TerminateSession)

				// Candidate surfaces
				sessions.GET("/:id/status", hm.sessionHandler.GetCandidateStatus)
				sessions.POST("/:id/events", hm.eventHandler.LogEvent)
				sessions.POST("/:id/events/batch", hm.eventHandler.BulkLogEvents)
				sessions.POST("/:id/heartbeat", hm.eventHandler.Heartbeat)

				// Risk
				sessions.POST("/:id/risk/calculate", hm.ruleHandler.CalculateRisk)
				sessions.GET("/:id/risk/snapshots", hm.ruleHandler.GetRiskSnapshots)

				// Decision
				sessions.POST("/:id/decision", hm.decisionHandler.MakeDecision)
				sessions.GET("/:id/decision", hm.decisionHandler.GetDecision)

				// Evidence
				sessions.POST("/:id/evidence", hm.evidenceHandler.RequestUpload)
				sessions.GET("/:id/evidence", hm.evidenceHandler.ListEvidence)
			}

			// Rule administration
			rules := proctoring.Group("/risk-rules")
			{
				rules.POST("", hm.ruleHandler.CreateRule)
				rules.GET("", hm.ruleHandler.ListRules)
				rules.PUT("/:id", hm.ruleHandler.UpdateRule)
				rules.DELETE("/:id", hm.ruleHandler.DeleteRule)
				rules.PUT("/:id/toggle", hm.ruleHandler.ToggleRule)
			}

			// Decision override and history
			decisions := proctoring.Group("/decisions")
			{
				decisions.POST("/:id/override", hm.decisionHandler.OverrideDecision)
				decisions.GET("/:id/history", hm.decisionHandler.GetDecisionHistory)
			}

			// Evidence confirmation (token-addressed, not session-addressed)
			proctoring.POST("/evidence/confirm", hm.evidenceHandler.ConfirmUpload)

			// Review triage
			proctoring.GET("/triage", hm.triageHandler.GetRecommendations)

			// Operator-triggered sweeps (same code paths as the tickers)
			admin := proctoring.Group("/admin")
			{
				admin.POST("/sweep/heartbeats", hm.eventHandler.SweepHeartbeats)
				admin.POST("/sweep/evidence", hm.evidenceHandler.SweepEvidence)
			}
		}
	}
}

// HealthCheck reports service and database health
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.repo.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "proctoring-service",
	})
}
