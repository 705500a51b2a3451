package session

// State is the coarse lifecycle stage of a session.
type State string

const (
	StateIdle             State = "idle"
	StateCategorySelected State = "category_selected"
	StateTemplateSelected State = "template_selected"
	StateCollectingFields State = "collecting_fields"
	StateReadyToBuild     State = "ready_to_build"
	StateBuilt            State = "built"
	StateReadyToSign      State = "ready_to_sign"
	StateCompleted        State = "completed"
)

// ParseState normalizes a raw state string, falling back to idle for unknown
// or historical values.
func ParseState(raw string) State {
	switch State(raw) {
	case StateIdle, StateCategorySelected, StateTemplateSelected,
		StateCollectingFields, StateReadyToBuild, StateBuilt,
		StateReadyToSign, StateCompleted:
		return State(raw)
	default:
		return StateIdle
	}
}

// CanTransition reports whether moving from the current state to next is a
// valid lifecycle step. The lifecycle is monotonic in spirit but editing after
// a build legitimately moves the session back to the collecting states.
// Completed is terminal.
func CanTransition(current, next State) bool {
	if current == next {
		return true
	}
	switch current {
	case StateIdle:
		return next == StateCategorySelected || next == StateTemplateSelected
	case StateCategorySelected:
		return next == StateTemplateSelected || next == StateCollectingFields
	case StateTemplateSelected:
		return next == StateCollectingFields || next == StateReadyToBuild
	case StateCollectingFields:
		return next == StateReadyToBuild
	case StateReadyToBuild:
		return next == StateCollectingFields || next == StateBuilt
	case StateBuilt:
		// Editing a field reopens the collecting states. A fully signed
		// document completes without passing through ready_to_sign.
		return next == StateReadyToSign || next == StateCompleted ||
			next == StateCollectingFields || next == StateReadyToBuild
	case StateReadyToSign:
		return next == StateCompleted || next == StateCollectingFields || next == StateReadyToBuild
	case StateCompleted:
		return false
	default:
		return false
	}
}
