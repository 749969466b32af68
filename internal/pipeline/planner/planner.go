// internal/pipeline/planner/planner.go

// Package planner computes advisory transition plans for proposed stage moves.
// The planner is read-only and fail-open: it never blocks a transition, and
// any internal failure degrades to an empty permissive plan.
package planner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/common/observability"
	"hiring-pipeline/internal/pipeline/stages"

	"hiring-pipeline/internal/models"
)

// PlanRequest describes a proposed stage move.
type PlanRequest struct {
	ApplicationID  string       `json:"applicationId"`
	JobID          string       `json:"jobId"`
	FromStage      models.Stage `json:"fromStage"`
	ToStage        models.Stage `json:"toStage"`
	OrganizationID string       `json:"organizationId"`
}

// StageResolver resolves a job's ordered stage list.
type StageResolver interface {
	JobStages(ctx context.Context, organizationID, jobID string) ([]models.StageDefinition, error)
}

type Planner struct {
	db     *sql.DB
	stages StageResolver
	obs    *observability.Observability
	logger logger.Logger
}

// New creates a Planner. obs may be nil.
func New(db *sql.DB, resolver StageResolver, obs *observability.Observability, log logger.Logger) *Planner {
	return &Planner{
		db:     db,
		stages: resolver,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "transition-planner"}),
	}
}

// GetTransitionPlan computes the advisory side effects for a proposed move.
//
// Allowed is always true, even when required side effects are present: the
// planner advises, the caller enforces. A planning failure is logged and
// degrades to an empty permissive plan so the core transition stays available.
func (p *Planner) GetTransitionPlan(ctx context.Context, req PlanRequest) models.TransitionPlan {
	start := time.Now()

	plan, err := p.compute(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "degraded"
		metrics.TransitionPlanFailures.Inc()
		p.logger.WithError(err).Error("transition planning failed, returning permissive plan", map[string]interface{}{
			"applicationId": req.ApplicationID,
			"jobId":         req.JobID,
			"fromStage":     req.FromStage,
			"toStage":       req.ToStage,
		})
		plan = models.TransitionPlan{Allowed: true, SideEffects: []models.TransitionSideEffect{}}
	}

	metrics.TransitionPlansComputed.WithLabelValues(string(req.ToStage)).Inc()
	metrics.TransitionPlanDuration.WithLabelValues(string(req.ToStage)).Observe(time.Since(start).Seconds())
	if p.obs != nil {
		p.obs.RecordPlanComputed(ctx, outcome)
		p.obs.RecordPlanDuration(ctx, time.Since(start), outcome)
	}

	return plan
}

// compute runs gates first, then the stage rules in fixed order. The rules
// are independent: any subset may fire.
func (p *Planner) compute(ctx context.Context, req PlanRequest) (models.TransitionPlan, error) {
	defs, err := p.stages.JobStages(ctx, req.OrganizationID, req.JobID)
	if err != nil {
		return models.TransitionPlan{}, err
	}

	effects := []models.TransitionSideEffect{}

	if def, ok := stages.Find(defs, req.FromStage); ok && !def.Gate.Empty() {
		gateEffects, err := p.evaluateGate(ctx, req.ApplicationID, def)
		if err != nil {
			return models.TransitionPlan{}, err
		}
		effects = append(effects, gateEffects...)
	}

	if req.ToStage == models.StageInterview {
		effect, err := p.interviewRule(ctx, req.ApplicationID)
		if err != nil {
			return models.TransitionPlan{}, err
		}
		if effect != nil {
			effects = append(effects, *effect)
		}
	}

	if req.ToStage == models.StageOffer {
		effect, err := p.offerRule(ctx, req.ApplicationID)
		if err != nil {
			return models.TransitionPlan{}, err
		}
		if effect != nil {
			effects = append(effects, *effect)
		}
	}

	if req.ToStage == models.StageHired {
		hiredEffects, err := p.hiredRule(ctx, req.ApplicationID, req.JobID)
		if err != nil {
			return models.TransitionPlan{}, err
		}
		effects = append(effects, hiredEffects...)
	}

	if req.ToStage == models.StageRejected {
		effects = append(effects, models.TransitionSideEffect{
			Action:   models.ActionPromptSendRejectionEmail,
			Message:  "Send the candidate a rejection email",
			Required: false,
		})
	}

	return models.TransitionPlan{Allowed: true, SideEffects: effects}, nil
}

// interviewRule prompts for scheduling when the candidate has no scheduled or
// in-progress interview.
func (p *Planner) interviewRule(ctx context.Context, applicationID string) (*models.TransitionSideEffect, error) {
	var active bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM interviews
			WHERE application_id = $1 AND status IN ($2, $3)
		)`, applicationID, models.InterviewScheduled, models.InterviewInProgress).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("active interview check failed: %w", err)
	}
	if active {
		return nil, nil
	}

	return &models.TransitionSideEffect{
		Action:   models.ActionPromptScheduleInterview,
		Message:  "No interview is scheduled for this candidate yet",
		Required: false,
	}, nil
}

// offerRule requires an offer record before the candidate sits in the offer
// stage without one.
func (p *Planner) offerRule(ctx context.Context, applicationID string) (*models.TransitionSideEffect, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM offers
			WHERE application_id = $1
		)`, applicationID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("offer record check failed: %w", err)
	}
	if exists {
		return nil, nil
	}

	return &models.TransitionSideEffect{
		Action:   models.ActionPromptCreateOffer,
		Message:  "No offer has been created for this candidate",
		Required: true,
	}, nil
}

// hiredRule suggests rejecting the remaining active siblings and always logs
// the hire milestone.
func (p *Planner) hiredRule(ctx context.Context, applicationID, jobID string) ([]models.TransitionSideEffect, error) {
	var otherCount int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM applications
		WHERE job_id = $1 AND id <> $2 AND stage NOT IN ($3, $4, $5)`,
		jobID, applicationID,
		models.StageRejected, models.StageTalentPool, models.StageHired).Scan(&otherCount)
	if err != nil {
		return nil, fmt.Errorf("sibling count failed: %w", err)
	}

	effects := []models.TransitionSideEffect{}
	if otherCount > 0 {
		effects = append(effects, models.TransitionSideEffect{
			Action:   models.ActionSuggestRejectOthers,
			Message:  fmt.Sprintf("%d other candidate(s) are still active for this job", otherCount),
			Required: false,
			Metadata: map[string]interface{}{"otherCount": otherCount},
		})
	}

	effects = append(effects, models.TransitionSideEffect{
		Action:   models.ActionAutoLogMilestone,
		Message:  "A hire milestone will be recorded for this job",
		Required: false,
		Metadata: map[string]interface{}{"milestone": "hired"},
	})

	return effects, nil
}
