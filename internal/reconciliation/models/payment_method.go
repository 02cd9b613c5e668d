package models

import (
	"strings"

	dErrors "tally/pkg/domain-errors"
)

// PaymentMethod is the rail a payment settled on.
type PaymentMethod string

const (
	MethodTelebirr PaymentMethod = "Telebirr"
	MethodMPesa    PaymentMethod = "M-Pesa"
	MethodCBEBirr  PaymentMethod = "CBE Birr"
	MethodCash     PaymentMethod = "Cash"
	MethodCard     PaymentMethod = "Card"
)

var AllPaymentMethods = []PaymentMethod{MethodTelebirr, MethodMPesa, MethodCBEBirr, MethodCash, MethodCard}

func (m PaymentMethod) IsValid() bool {
	for _, known := range AllPaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// UsesMerchantChannel reports whether payments on this rail carry a
// sub-merchant reference that can be checked against the tenant allow-list.
func (m PaymentMethod) UsesMerchantChannel() bool {
	return m != MethodCash
}

// ParsePaymentMethod accepts the canonical names plus the common spellings
// gateways send ("mpesa", "CBEBirr", "cbe_birr").
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.TrimSpace(raw)))
	switch key {
	case "telebirr":
		return MethodTelebirr, nil
	case "mpesa":
		return MethodMPesa, nil
	case "cbebirr":
		return MethodCBEBirr, nil
	case "cash":
		return MethodCash, nil
	case "card":
		return MethodCard, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "method must be one of Telebirr, M-Pesa, CBE Birr, Cash, Card")
}
