// internal/models/job.go
package models

// Stage is a job-scoped stage identifier. Stage lists are configured per job,
// so this is an open string type with membership helpers, not a closed enum.
type Stage string

// Well-known stage identifiers. Jobs may define additional stages; these are
// the ones the transition rules key on.
const (
	StageApplied    Stage = "applied"
	StageScreen     Stage = "screen"
	StageInterview  Stage = "interview"
	StageOffer      Stage = "offer"
	StageHired      Stage = "hired"
	StageRejected   Stage = "rejected"
	StageWithdrawn  Stage = "withdrawn"
	StageTalentPool Stage = "talent-pool"
)

// TerminalStages are the stages an application can be reopened from.
var TerminalStages = []Stage{StageRejected, StageWithdrawn, StageTalentPool}

// IsTerminal reports whether s is a stage reopening is defined from.
func (s Stage) IsTerminal() bool {
	for _, t := range TerminalStages {
		if s == t {
			return true
		}
	}
	return false
}

// BulkRejectExcludedStages are never touched by a bulk rejection: already
// rejected or hired applications, and candidates parked in the talent pool.
var BulkRejectExcludedStages = []Stage{StageRejected, StageTalentPool, StageHired}

// StageGate is a stage-level prerequisite: minimum completed scorecards and/or
// interviews required before an application may leave the stage.
type StageGate struct {
	RequiredScorecards int `json:"requiredScorecards,omitempty"`
	RequiredInterviews int `json:"requiredInterviews,omitempty"`
}

// Empty reports whether the gate configures no thresholds at all.
func (g *StageGate) Empty() bool {
	return g == nil || (g.RequiredScorecards <= 0 && g.RequiredInterviews <= 0)
}

// StageDefinition is one step of a job's hiring pipeline.
type StageDefinition struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Gate *StageGate `json:"gate,omitempty"`
}

// Job owns the pipeline configuration. StageConfig is the opaque serialized
// stage list; it is parsed defensively by the stage registry.
type Job struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	Title          string `json:"title"`
	StageConfig    []byte `json:"stageConfig,omitempty"`
}
