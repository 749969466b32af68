// internal/pipeline/planner/gates.go
package planner

import (
	"context"
	"fmt"
	"sync"

	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/models"
)

// evaluateGate counts completed scorecards/interviews against the stage's
// thresholds and emits a required side effect for each unmet one. The two
// count queries run concurrently; a query whose threshold is unset is skipped
// entirely.
func (p *Planner) evaluateGate(ctx context.Context, applicationID string, def models.StageDefinition) ([]models.TransitionSideEffect, error) {
	gate := def.Gate

	var (
		wg            sync.WaitGroup
		scorecards    int
		interviews    int
		scorecardsErr error
		interviewsErr error
	)

	if gate.RequiredScorecards > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scorecards, scorecardsErr = p.countScorecards(ctx, applicationID, def.ID)
		}()
	}

	if gate.RequiredInterviews > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			interviews, interviewsErr = p.countCompletedInterviews(ctx, applicationID, def.ID)
		}()
	}

	wg.Wait()

	if scorecardsErr != nil {
		return nil, scorecardsErr
	}
	if interviewsErr != nil {
		return nil, interviewsErr
	}

	effects := []models.TransitionSideEffect{}

	if gate.RequiredScorecards > 0 && scorecards < gate.RequiredScorecards {
		metrics.GateRequirementsEmitted.WithLabelValues("scorecards").Inc()
		effects = append(effects, models.TransitionSideEffect{
			Action: models.ActionGateScorecardsRequired,
			Message: fmt.Sprintf("Stage %q requires %d scorecard(s); %d submitted",
				def.Name, gate.RequiredScorecards, scorecards),
			Required: true,
			Metadata: map[string]interface{}{
				"current":   scorecards,
				"required":  gate.RequiredScorecards,
				"stageId":   def.ID,
				"stageName": def.Name,
			},
		})
	}

	if gate.RequiredInterviews > 0 && interviews < gate.RequiredInterviews {
		metrics.GateRequirementsEmitted.WithLabelValues("interviews").Inc()
		effects = append(effects, models.TransitionSideEffect{
			Action: models.ActionGateInterviewsRequired,
			Message: fmt.Sprintf("Stage %q requires %d completed interview(s); %d completed",
				def.Name, gate.RequiredInterviews, interviews),
			Required: true,
			Metadata: map[string]interface{}{
				"current":   interviews,
				"required":  gate.RequiredInterviews,
				"stageId":   def.ID,
				"stageName": def.Name,
			},
		})
	}

	return effects, nil
}

func (p *Planner) countScorecards(ctx context.Context, applicationID, stageID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scores
		WHERE application_id = $1 AND stage_id = $2`, applicationID, stageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("scorecard count failed: %w", err)
	}
	return count, nil
}

func (p *Planner) countCompletedInterviews(ctx context.Context, applicationID, stageID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM interviews
		WHERE application_id = $1 AND stage_id = $2 AND status = $3`,
		applicationID, stageID, models.InterviewCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("completed interview count failed: %w", err)
	}
	return count, nil
}
