package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OptionsFromConfig maps the env-driven configuration onto service options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := Options{
		AllowStatusOverride: cfg.FeatureFlags.AllowStatusOverride,
		MaxLines:            cfg.Checkout.MaxLines,
	}
	for _, raw := range cfg.Checkout.EnabledGateways {
		gw, err := enums.ParsePaymentGateway(strings.TrimSpace(raw))
		if err != nil {
			return Options{}, err
		}
		opts.EnabledGateways = append(opts.EnabledGateways, gw)
	}
	if raw := strings.TrimSpace(cfg.Checkout.DefaultPaymentStatus); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return Options{}, fmt.Errorf("default payment status: %w", err)
		}
		opts.DefaultPaymentStatus = status
	}
	return opts, nil
}
