package feeds

import "errors"

// Static sentinel errors, matching the teacher's err113-clean style of
// declaring every error value instead of constructing ad-hoc strings.
var (
	// ErrTaskNotFound is returned when advancing a task whose row no
	// longer exists (e.g. already completed). Completing a missing task is
	// not an error.
	ErrTaskNotFound = errors.New("feeds: task not found")

	// ErrUnknownPayloadKind is returned when a task's payload Kind has no
	// matching variant field populated — a forward-compatibility guard
	// for payload variants a future worker doesn't understand yet.
	ErrUnknownPayloadKind = errors.New("feeds: unknown task payload kind")

	// ErrMissingEventHeader is returned when a bus message is missing a
	// header required to interpret its payload (e.g. ce_type).
	ErrMissingEventHeader = errors.New("feeds: missing required event header")

	// ErrUnknownMembershipEventType is returned when ce_type carries a
	// value outside {Created, Updated, Deleted}.
	ErrUnknownMembershipEventType = errors.New("feeds: unknown topic-user event type")
)
