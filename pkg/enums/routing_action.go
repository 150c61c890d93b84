package enums

// RoutingAction labels a custody handoff. The set is open: callers may supply
// their own labels, and anything other than "completed" leaves the document
// in progress. Only ActionCompleted is special-cased by the lifecycle engine.
type RoutingAction string

const (
	ActionForwarded RoutingAction = "forwarded"
	ActionReturned  RoutingAction = "returned"
	ActionCompleted RoutingAction = "completed"
)

// String implements fmt.Stringer.
func (r RoutingAction) String() string {
	return string(r)
}

// IsTerminal reports whether the action completes the document.
func (r RoutingAction) IsTerminal() bool {
	return r == ActionCompleted
}
