package common

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	AdminPOST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers the directory background and generic assertions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^a tenant "([^"]*)" with waiter "([^"]*)"$`, steps.tenantWithWaiter)
	ctx.Step(`^the tenant accepts payments on "([^"]*)"$`, steps.tenantAcceptsPaymentsOn)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the error should be "([^"]*)"$`, steps.errorShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) tenantWithWaiter(ctx context.Context, tenant, waiter string) error {
	// Tenant names are unique per server; suffix so reruns do not collide.
	name := tenant + " " + strconv.FormatInt(time.Now().UnixNano(), 36)
	tenantID, err := s.create("/v1/tenants", map[string]string{"name": name}, "tenant_id")
	if err != nil {
		return err
	}
	s.tc.Save("tenant_id", tenantID)

	waiterID, err := s.create("/v1/tenants/"+tenantID+"/waiters", map[string]string{"name": waiter}, "waiter_id")
	if err != nil {
		return err
	}
	s.tc.Save("waiter_id", waiterID)
	return nil
}

func (s *commonSteps) tenantAcceptsPaymentsOn(ctx context.Context, channelRef string) error {
	_, err := s.create("/v1/tenants/"+s.tc.Saved("tenant_id")+"/merchants",
		map[string]string{"channel_ref": channelRef}, "merchant_id")
	return err
}

func (s *commonSteps) create(path string, body any, idField string) (string, error) {
	if err := s.tc.AdminPOST(path, body); err != nil {
		return "", err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return "", fmt.Errorf("POST %s: status %d: %s", path, s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	v, err := s.tc.GetResponseField(idField)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(ctx context.Context, field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	return s.responseFieldShouldBe(ctx, "error", code)
}
