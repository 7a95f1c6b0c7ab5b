package e2e

import (
	"github.com/cucumber/godog"

	"clockgate/e2e/steps/clock"
	"clockgate/e2e/steps/common"
	"clockgate/e2e/steps/devices"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and response assertions
	common.RegisterSteps(ctx, tc)

	// Employee onboarding and device enrollment
	devices.RegisterSteps(ctx, tc)

	// Location, biometric and clock attempts
	clock.RegisterSteps(ctx, tc)
}
