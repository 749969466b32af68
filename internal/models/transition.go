// internal/models/transition.go
package models

// TransitionAction identifies an advisory action attached to a proposed stage
// move. Actions are prompts for the operator, not state.
type TransitionAction string

const (
	ActionGateScorecardsRequired   TransitionAction = "gate_scorecards_required"
	ActionGateInterviewsRequired   TransitionAction = "gate_interviews_required"
	ActionPromptScheduleInterview  TransitionAction = "prompt_schedule_interview"
	ActionPromptCreateOffer        TransitionAction = "prompt_create_offer"
	ActionSuggestRejectOthers      TransitionAction = "suggest_reject_others"
	ActionAutoLogMilestone         TransitionAction = "auto_log_milestone"
	ActionPromptSendRejectionEmail TransitionAction = "prompt_send_rejection_email"
)

// TransitionSideEffect is one advisory prompt. Required marks effects the
// caller is expected to resolve before committing the move; the engine itself
// never enforces them.
type TransitionSideEffect struct {
	Action   TransitionAction       `json:"action"`
	Message  string                 `json:"message"`
	Required bool                   `json:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TransitionPlan is the planner's read-only output for a proposed stage move.
// Allowed is always true: the planner is advisory and enforcement, if any, is
// the caller's responsibility based on the Required flags. Never persisted.
type TransitionPlan struct {
	Allowed       bool                   `json:"allowed"`
	BlockedReason string                 `json:"blockedReason,omitempty"`
	SideEffects   []TransitionSideEffect `json:"sideEffects"`
}
