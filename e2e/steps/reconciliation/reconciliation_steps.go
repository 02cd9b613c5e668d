package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers ingest and record step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &reconciliationSteps{tc: tc}

	ctx.Step(`^I submit receipt "([^"]*)" for "([^"]*)"$`, steps.submitReceipt)
	ctx.Step(`^I submit receipt "([^"]*)" again$`, steps.resubmitReceipt)
	ctx.Step(`^I submit a "([^"]*)" payment "([^"]*)" for "([^"]*)" with tip "([^"]*)" on "([^"]*)"$`, steps.submitPayment)
	ctx.Step(`^the record should be "([^"]*)"$`, steps.recordShouldBe)
	ctx.Step(`^the record should carry a "([^"]*)" discrepancy$`, steps.recordShouldCarry)
	ctx.Step(`^I remember the record$`, steps.rememberRecord)
	ctx.Step(`^it should be the remembered record$`, steps.shouldBeRemembered)
	ctx.Step(`^I fetch the remembered record$`, steps.fetchRemembered)
	ctx.Step(`^I escalate the remembered record as "([^"]*)"$`, steps.escalateRemembered)
}

type reconciliationSteps struct {
	tc       TestContext
	receipts map[string]map[string]any
}

func (s *reconciliationSteps) tenantPath(suffix string) string {
	return "/v1/tenants/" + s.tc.Saved("tenant_id") + suffix
}

func (s *reconciliationSteps) submitReceipt(ctx context.Context, ext, amount string) error {
	body := map[string]any{
		"waiter_id":   s.tc.Saved("waiter_id"),
		"amount":      amount,
		"issued_at":   time.Now().UTC().Format(time.RFC3339),
		"raw_source":  "e2e " + ext + "\nTOTAL " + amount,
		"external_id": ext,
	}
	if s.receipts == nil {
		s.receipts = make(map[string]map[string]any)
	}
	s.receipts[ext] = body
	return s.tc.POST(s.tenantPath("/receipts"), body)
}

func (s *reconciliationSteps) resubmitReceipt(ctx context.Context, ext string) error {
	body, ok := s.receipts[ext]
	if !ok {
		return fmt.Errorf("receipt %q was never submitted in this scenario", ext)
	}
	return s.tc.POST(s.tenantPath("/receipts"), body)
}

func (s *reconciliationSteps) submitPayment(ctx context.Context, method, ext, amount, tip, channelRef string) error {
	return s.tc.POST(s.tenantPath("/payments"), map[string]any{
		"amount":      amount,
		"tip":         tip,
		"method":      method,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
		"channel_ref": channelRef,
		"external_id": ext,
	})
}

func (s *reconciliationSteps) recordShouldBe(ctx context.Context, status string) error {
	got, err := s.tc.GetResponseField("record.status")
	if err != nil {
		return err
	}
	if got != status {
		return fmt.Errorf("expected record %s, got %v: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *reconciliationSteps) recordShouldCarry(ctx context.Context, discrepancyType string) error {
	v, err := s.tc.GetResponseField("discrepancies")
	if err != nil {
		return err
	}
	list, _ := v.([]any)
	for _, d := range list {
		if m, ok := d.(map[string]any); ok && m["type"] == discrepancyType {
			return nil
		}
	}
	return fmt.Errorf("no %s discrepancy in %s", discrepancyType, s.tc.GetLastResponseBody())
}

func (s *reconciliationSteps) recordID() (string, error) {
	v, err := s.tc.GetResponseField("record.id")
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func (s *reconciliationSteps) rememberRecord(ctx context.Context) error {
	recordID, err := s.recordID()
	if err != nil {
		return err
	}
	s.tc.Save("record_id", recordID)
	return nil
}

func (s *reconciliationSteps) shouldBeRemembered(ctx context.Context) error {
	recordID, err := s.recordID()
	if err != nil {
		return err
	}
	if want := s.tc.Saved("record_id"); recordID != want {
		return fmt.Errorf("expected record %s, got %s", want, recordID)
	}
	return nil
}

func (s *reconciliationSteps) fetchRemembered(ctx context.Context) error {
	return s.tc.GET("/v1/records/" + s.tc.Saved("record_id"))
}

func (s *reconciliationSteps) escalateRemembered(ctx context.Context, discrepancyType string) error {
	return s.tc.POST("/v1/records/"+s.tc.Saved("record_id")+"/escalations", map[string]string{
		"type":        discrepancyType,
		"description": "raised from e2e",
	})
}
