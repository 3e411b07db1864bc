package workflow

import (
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

// transition is one (from, to) pair in the status machine.
type transition struct {
	from, to contracts.CaseStatus
}

// allowedTransitions encodes the status machine by role. Terminal states
// have no outgoing edges; "any → closed" is admin-only and expanded over
// the non-terminal states below.
var allowedTransitions = map[contracts.Role]map[transition]bool{
	contracts.RoleVerifier: {
		{contracts.CaseNew, contracts.CaseInReview}:       true,
		{contracts.CaseNew, contracts.CaseNeedsInfo}:      true,
		{contracts.CaseInReview, contracts.CaseApproved}:  true,
		{contracts.CaseInReview, contracts.CaseRejected}:  true,
		{contracts.CaseInReview, contracts.CaseBlocked}:   true,
		{contracts.CaseNeedsInfo, contracts.CaseInReview}: true,
	},
	contracts.RoleAdmin: {
		{contracts.CaseNew, contracts.CaseInReview}:       true,
		{contracts.CaseNew, contracts.CaseNeedsInfo}:      true,
		{contracts.CaseInReview, contracts.CaseApproved}:  true,
		{contracts.CaseInReview, contracts.CaseRejected}:  true,
		{contracts.CaseInReview, contracts.CaseBlocked}:   true,
		{contracts.CaseNeedsInfo, contracts.CaseInReview}: true,
		{contracts.CaseNew, contracts.CaseClosed}:         true,
		{contracts.CaseInReview, contracts.CaseClosed}:    true,
		{contracts.CaseNeedsInfo, contracts.CaseClosed}:   true,
	},
	// Submitters only move needs_info → in_review, implicitly via
	// resubmission.
	contracts.RoleSubmitter: {
		{contracts.CaseNeedsInfo, contracts.CaseInReview}: true,
	},
}

// TransitionAllowed reports whether role may move a case from one status
// to another. Terminal states never transition.
func TransitionAllowed(role contracts.Role, from, to contracts.CaseStatus) bool {
	if from.Terminal() {
		return false
	}
	return allowedTransitions[role][transition{from, to}]
}
