// shared/teambuilder/errors.go
package teambuilder

import "github.com/cockroachdb/errors"

// Draft state machine violations. These are caller errors and never transient,
// so the command layer renders a precise message for each kind.
var (
	ErrInvalidTurn        = errors.New("not this captain's turn")
	ErrPlayerNotAvailable = errors.New("player is not available for picking")
	ErrTeamFull           = errors.New("team is already full")
	ErrDraftIncomplete    = errors.New("draft is not finished")
)

// ErrInsufficientPlayers is never returned by the builders themselves (they return an
// empty result instead). Callers that validate headcount up front use it to report
// the condition.
var ErrInsufficientPlayers = errors.New("not enough players to build teams")

// ErrUnknownMethod is returned by ParseMethod for anything other than random or captains.
var ErrUnknownMethod = errors.New("unknown team build method")
