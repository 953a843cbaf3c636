package model

import "time"

// Task statuses. A task starts pending and ends in exactly one of the
// terminal states.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Task types. Long tasks track progress, short ones do not.
const (
	TypeShort = "short"
	TypeLong  = "long"
)

// Repeat rules understood by the recurrence generator.
const (
	RepeatDaily    = "daily"
	RepeatWeekdays = "weekdays"
	RepeatWeekly   = "weekly"
	RepeatMonthly  = "monthly"
)

// Task represents a single trackable unit of work.
type Task struct {
	ID           uint   `gorm:"primaryKey"`
	OwnerID      string `gorm:"index"`
	Title        string
	Deadline     *time.Time
	SoftDeadline *time.Time
	Status       string `gorm:"index;default:pending"`
	Type         string `gorm:"default:short"`

	// Progress is only meaningful for long tasks and is kept in [0,100].
	Progress       int
	LastProgressAt *time.Time

	ProjectID *uint `gorm:"index"`

	// Repeat is empty for non-recurring tasks. RecurrenceGroupID links all
	// occurrences of one recurring task; it is assigned when the first
	// occurrence is created and copied verbatim to every successor.
	Repeat            string
	RecurrenceGroupID string `gorm:"index"`

	Importance       int
	EstimatedMinutes int
	URL              string
	Details          string

	CreatedAt time.Time
	DoneAt    *time.Time
	FailedAt  *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Recurring reports whether the task carries a recurrence rule.
func (t *Task) Recurring() bool {
	return t.Repeat != ""
}

// ValidRepeat reports whether s is one of the supported recurrence rules.
func ValidRepeat(s string) bool {
	switch s {
	case RepeatDaily, RepeatWeekdays, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}
