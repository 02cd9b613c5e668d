package handler

import (
	"time"

	"tally/internal/tenant/models"
)

type TenantResponse struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type WaiterResponse struct {
	WaiterID    string    `json:"waiter_id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	ActiveShift string    `json:"active_shift,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MerchantResponse struct {
	MerchantID string    `json:"merchant_id"`
	ChannelRef string    `json:"channel_ref"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTenant(t *models.Tenant) TenantResponse {
	return TenantResponse{TenantID: t.ID.String(), Name: t.Name, CreatedAt: t.CreatedAt}
}

func toWaiter(w *models.Waiter) WaiterResponse {
	resp := WaiterResponse{
		WaiterID:  w.ID.String(),
		TenantID:  w.TenantID.String(),
		Name:      w.Name,
		CreatedAt: w.CreatedAt,
	}
	if w.ActiveShift != nil {
		resp.ActiveShift = w.ActiveShift.String()
	}
	return resp
}

func toWaiters(ws []*models.Waiter) []WaiterResponse {
	out := make([]WaiterResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWaiter(w))
	}
	return out
}

func toMerchant(m *models.Merchant) MerchantResponse {
	return MerchantResponse{
		MerchantID: m.ID.String(),
		ChannelRef: m.ChannelRef,
		Label:      m.Label,
		CreatedAt:  m.CreatedAt,
	}
}

func toMerchants(ms []*models.Merchant) []MerchantResponse {
	out := make([]MerchantResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMerchant(m))
	}
	return out
}
