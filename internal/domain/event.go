package domain

import "time"

// Stage names one pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageEmbed     Stage = "embed"
	StageFilter    Stage = "filter"
	StageDedup     Stage = "dedup"
	StageSummarize Stage = "summarize"
	StagePersist   Stage = "persist"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageEmbed, StageFilter, StageDedup, StageSummarize, StagePersist}

// EventStatus is the outcome of one stage transition.
type EventStatus string

// Stage event statuses.
const (
	EventStarted   EventStatus = "started"
	EventSucceeded EventStatus = "succeeded"
	EventFailed    EventStatus = "failed"
	EventSkipped   EventStatus = "skipped"
)

// StageEvent is one append-only trace record of a stage transition,
// correlated by run and article ID. Events for a single article are strictly
// ordered by stage sequence.
type StageEvent struct {
	RunID     string
	ArticleID string
	Stage     Stage
	Status    EventStatus
	At        time.Time
	Detail    string
}

// OutcomeStatus is the terminal state of one article's pipeline pass.
type OutcomeStatus string

// Article pass outcomes.
const (
	OutcomeSummarized OutcomeStatus = "summarized"
	OutcomeRejected   OutcomeStatus = "rejected"
	OutcomeDuplicate  OutcomeStatus = "duplicate"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeTimeout    OutcomeStatus = "timeout"
)

// Outcome is the per-article result of a pipeline pass. Exactly one of
// Summary or Err may be set; rejected and duplicate passes carry neither.
type Outcome struct {
	RunID     string
	ArticleID string
	Status    OutcomeStatus
	Summary   *Summary
	Err       error
}
