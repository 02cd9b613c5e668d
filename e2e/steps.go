package e2e

import (
	"github.com/cucumber/godog"

	"tally/e2e/steps/common"
	"tally/e2e/steps/reconciliation"
	"tally/e2e/steps/shift"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	reconciliation.RegisterSteps(ctx, tc)
	shift.RegisterSteps(ctx, tc)
}
