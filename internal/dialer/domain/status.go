// Package domain provides core business rules for the dialer bounded context.
package domain

// OutboundStatus is the lifecycle state of a lead with respect to outbound calling.
type OutboundStatus string

const (
	StatusNew        OutboundStatus = "NEW"
	StatusContacted  OutboundStatus = "CONTACTED"
	StatusQualified  OutboundStatus = "QUALIFIED"
	StatusRejected   OutboundStatus = "REJECTED"
	StatusIncomplete OutboundStatus = "INCOMPLETE"
)

// terminalStatuses are states the dialer never re-enters on its own. A
// REJECTED lead can only come back through an explicit manual reschedule.
var terminalStatuses = map[OutboundStatus]bool{
	StatusRejected:  true,
	StatusQualified: true,
}

// engineTransitions are the status transitions this engine is allowed to
// drive. Everything else (CONTACTED->QUALIFIED, any->INCOMPLETE, ...) belongs
// to external processes.
var engineTransitions = map[OutboundStatus][]OutboundStatus{
	StatusNew: {StatusNew, StatusContacted, StatusRejected},
}

// AllStatuses lists every outbound status, in lifecycle order.
func AllStatuses() []OutboundStatus {
	return []OutboundStatus{StatusNew, StatusContacted, StatusQualified, StatusRejected, StatusIncomplete}
}

// IsTerminal returns true if the dialer must never act on a lead in this status again.
func IsTerminal(status OutboundStatus) bool {
	return terminalStatuses[status]
}

// CanTransition reports whether this engine may move a lead from one status to another.
func CanTransition(from, to OutboundStatus) bool {
	for _, allowed := range engineTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
