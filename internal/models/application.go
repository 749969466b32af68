// internal/models/application.go
package models

import "time"

// Application tracks one candidate's progress through one job's pipeline.
// Applications are never physically deleted: DeletedAt marks withdrawal.
// RejectedAt/HiredAt/DeletedAt are mutually exclusive in normal operation;
// reopen clears all three.
type Application struct {
	ID              string     `json:"id"`
	JobID           string     `json:"jobId"`
	CandidateEmail  string     `json:"candidateEmail,omitempty"`
	Stage           Stage      `json:"stage"`
	StageOrder      int        `json:"stageOrder"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	RejectionNote   string     `json:"rejectionNote,omitempty"`
	HiredAt         *time.Time `json:"hiredAt,omitempty"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Score is a scorecard submitted against an application for a specific stage.
// The pipeline engine only ever counts these.
type Score struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	StageID       string    `json:"stageId"`
	SubmittedBy   string    `json:"submittedBy"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Interview status values.
const (
	InterviewScheduled  = "SCHEDULED"
	InterviewInProgress = "IN_PROGRESS"
	InterviewCompleted  = "COMPLETED"
	InterviewCancelled  = "CANCELLED"
)

// Interview is a scheduling record keyed by application and stage. Completed
// interviews count toward gates; scheduled or in-progress ones suppress the
// schedule-interview prompt.
type Interview struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"applicationId"`
	StageID       string     `json:"stageId"`
	Status        string     `json:"status"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
}

// OfferRecord exists at most once per application; its presence suppresses the
// create-offer prompt when entering the offer stage.
type OfferRecord struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}
