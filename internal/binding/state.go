package binding

// State is the lifecycle state of a StorageObject.
type State int32

// Wrapper lifecycle: Uninitialized -> Wrapping -> Released. Released is
// terminal.
const (
	StateUninitialized State = iota
	StateWrapping
	StateReleased
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateWrapping:
		return "wrapping"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}
