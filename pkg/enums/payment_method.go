package enums

import "fmt"

// PaymentMethod records how a plan or subscription is paid for.
type PaymentMethod string

const (
	PaymentMethodManual  PaymentMethod = "manual"
	PaymentMethodAutopay PaymentMethod = "autopay"
	PaymentMethodFree    PaymentMethod = "free"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodManual,
	PaymentMethodAutopay,
	PaymentMethodFree,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
