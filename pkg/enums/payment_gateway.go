package enums

import "fmt"

// PaymentGateway is the label of the method chosen at checkout.
type PaymentGateway string

const (
	PaymentGatewayCashOnDelivery PaymentGateway = "cash_on_delivery"
	PaymentGatewayCard           PaymentGateway = "card"
	PaymentGatewayMobileWallet   PaymentGateway = "mobile_wallet"
	PaymentGatewayBankTransfer   PaymentGateway = "bank_transfer"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayCashOnDelivery,
	PaymentGatewayCard,
	PaymentGatewayMobileWallet,
	PaymentGatewayBankTransfer,
}

func (g PaymentGateway) String() string {
	return string(g)
}

func (g PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

func ParsePaymentGateway(value string) (PaymentGateway, error) {
	for _, candidate := range validPaymentGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
