package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

var allStatuses = []contracts.CaseStatus{
	contracts.CaseNew, contracts.CaseInReview, contracts.CaseNeedsInfo,
	contracts.CaseApproved, contracts.CaseRejected, contracts.CaseBlocked,
	contracts.CaseClosed,
}

var allRoles = []contracts.Role{
	contracts.RoleSubmitter, contracts.RoleVerifier, contracts.RoleAdmin,
	contracts.RoleDevSupport, contracts.RoleSystem,
}

func TestTransitionAllowed_VerifierEdges(t *testing.T) {
	allowed := []struct{ from, to contracts.CaseStatus }{
		{contracts.CaseNew, contracts.CaseInReview},
		{contracts.CaseNew, contracts.CaseNeedsInfo},
		{contracts.CaseInReview, contracts.CaseApproved},
		{contracts.CaseInReview, contracts.CaseRejected},
		{contracts.CaseInReview, contracts.CaseBlocked},
		{contracts.CaseNeedsInfo, contracts.CaseInReview},
	}
	allowedSet := map[transition]bool{}
	for _, e := range allowed {
		allowedSet[transition{e.from, e.to}] = true
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowedSet[transition{from, to}]
			assert.Equal(t, want, TransitionAllowed(contracts.RoleVerifier, from, to),
				"verifier %s -> %s", from, to)
		}
	}
}

func TestTransitionAllowed_AdminCanClose(t *testing.T) {
	for _, from := range []contracts.CaseStatus{contracts.CaseNew, contracts.CaseInReview, contracts.CaseNeedsInfo} {
		assert.True(t, TransitionAllowed(contracts.RoleAdmin, from, contracts.CaseClosed), "admin %s -> closed", from)
		assert.False(t, TransitionAllowed(contracts.RoleVerifier, from, contracts.CaseClosed), "verifier %s -> closed", from)
	}
}

func TestTransitionAllowed_SubmitterResubmitOnly(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := from == contracts.CaseNeedsInfo && to == contracts.CaseInReview
			assert.Equal(t, want, TransitionAllowed(contracts.RoleSubmitter, from, to),
				"submitter %s -> %s", from, to)
		}
	}
}

func TestTransitionAllowed_TerminalStatesAreFinal(t *testing.T) {
	for _, role := range allRoles {
		for _, from := range allStatuses {
			if !from.Terminal() {
				continue
			}
			for _, to := range allStatuses {
				assert.False(t, TransitionAllowed(role, from, to), "%s: %s -> %s", role, from, to)
			}
		}
	}
}

func TestTransitionAllowed_NoDirectRequestInfoFromReview(t *testing.T) {
	for _, role := range allRoles {
		assert.False(t, TransitionAllowed(role, contracts.CaseInReview, contracts.CaseNeedsInfo), "%s", role)
	}
}

func TestTransitionAllowed_SelfTransitionRejected(t *testing.T) {
	for _, role := range allRoles {
		for _, status := range allStatuses {
			assert.False(t, TransitionAllowed(role, status, status), "%s: %s -> %s", role, status, status)
		}
	}
}
