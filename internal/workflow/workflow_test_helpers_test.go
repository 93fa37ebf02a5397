package workflow

import (
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/sendline/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized
// correctly. All activities are mocked via OnActivity in unit tests.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Delivery{})
}

// matchAbandon matches AbandonEmailParams for an email with a non-empty reason.
func matchAbandon(emailID int64) interface{} {
	return mock.MatchedBy(func(params activity.AbandonEmailParams) bool {
		return params.EmailID == emailID && params.Reason != ""
	})
}
