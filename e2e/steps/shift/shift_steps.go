package shift

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GetResponseField(field string) (any, error)
	GetLastResponseBody() []byte
	Saved(key string) string
}

// RegisterSteps registers shift session step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &shiftSteps{tc: tc}

	ctx.Step(`^the waiter opens a shift$`, steps.openShift)
	ctx.Step(`^the waiter closes the shift$`, steps.closeShift)
	ctx.Step(`^the shift summary should show sales "([^"]*)" and tips "([^"]*)"$`, steps.summaryShouldShow)
	ctx.Step(`^the shift summary should count (\d+) matched$`, steps.summaryShouldCount)
}

type shiftSteps struct {
	tc TestContext
}

func (s *shiftSteps) waiterPath(suffix string) string {
	return "/v1/tenants/" + s.tc.Saved("tenant_id") + "/waiters/" + s.tc.Saved("waiter_id") + suffix
}

func (s *shiftSteps) openShift(ctx context.Context) error {
	return s.tc.POST(s.waiterPath("/shifts"), nil)
}

func (s *shiftSteps) closeShift(ctx context.Context) error {
	return s.tc.POST(s.waiterPath("/shifts/close"), nil)
}

func (s *shiftSteps) summaryShouldShow(ctx context.Context, sales, tips string) error {
	for field, want := range map[string]string{"summary.total_sales": sales, "summary.total_tips": tips} {
		got, err := s.tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("expected %s %q, got %v: %s", field, want, got, s.tc.GetLastResponseBody())
		}
	}
	return nil
}

func (s *shiftSteps) summaryShouldCount(ctx context.Context, matched int) error {
	got, err := s.tc.GetResponseField("summary.matched_count")
	if err != nil {
		return err
	}
	if n, ok := got.(float64); !ok || int(n) != matched {
		return fmt.Errorf("expected %d matched, got %v", matched, got)
	}
	return nil
}
