// Package settings resolves the platform-wide pricing configuration.
package settings

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/consultbook/libs/config"
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	KeyPlatformFeePercent    = "PLATFORM_FEE_PERCENT"
	KeyOnlineDiscountPercent = "ONLINE_PAYMENT_DISCOUNT_PERCENT"
	KeyOnlinePaymentEnabled  = "ONLINE_PAYMENT_ENABLED"
)

// Platform is immutable once loaded and is passed by value into pricing.
type Platform struct {
	PlatformFeePercent    decimal.Decimal
	OnlineDiscountPercent decimal.Decimal
	OnlinePaymentEnabled  bool
}

// DiscountFor returns the online discount to apply, or nil when it does not apply.
func (p Platform) DiscountFor(onlinePayment bool) *decimal.Decimal {
	if !p.OnlinePaymentEnabled || !onlinePayment || !p.OnlineDiscountPercent.IsPositive() {
		return nil
	}
	d := p.OnlineDiscountPercent
	return &d
}

// Load reads the platform settings through lookup. Absent keys are reported as
// ConfigurationMissingError values next to a usable Platform with that feature
// disabled; malformed values are a hard error.
func Load(lookup func(string) (string, bool)) (Platform, []error, error) {
	var (
		p       Platform
		missing []error
	)

	fee, ok, err := decimalSetting(lookup, KeyPlatformFeePercent)
	switch {
	case err != nil:
		return Platform{}, nil, err
	case !ok:
		missing = append(missing, &apperr.ConfigurationMissingError{Key: KeyPlatformFeePercent})
	default:
		p.PlatformFeePercent = fee
	}

	discount, ok, err := decimalSetting(lookup, KeyOnlineDiscountPercent)
	switch {
	case err != nil:
		return Platform{}, nil, err
	case !ok:
		missing = append(missing, &apperr.ConfigurationMissingError{Key: KeyOnlineDiscountPercent})
	default:
		if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
			return Platform{}, nil, fmt.Errorf("%s must be between 0 and 100 (got %s)", KeyOnlineDiscountPercent, discount)
		}
		p.OnlineDiscountPercent = discount
	}

	if raw, ok := lookup(KeyOnlinePaymentEnabled); ok {
		switch raw {
		case "1", "true", "TRUE", "True", "yes", "on":
			p.OnlinePaymentEnabled = true
		case "0", "false", "FALSE", "False", "no", "off":
		default:
			return Platform{}, nil, fmt.Errorf("%s must be a boolean (got %q)", KeyOnlinePaymentEnabled, raw)
		}
	}
	return p, missing, nil
}

// FromEnv loads from the process environment and logs every missing key.
func FromEnv(logger *slog.Logger) (Platform, error) {
	p, missing, err := Load(config.Lookup)
	if err != nil {
		return Platform{}, err
	}
	for _, m := range missing {
		var cm *apperr.ConfigurationMissingError
		if errors.As(m, &cm) && logger != nil {
			logger.Warn("platform setting missing; feature disabled", "key", cm.Key)
		}
	}
	return p, nil
}

func decimalSetting(lookup func(string) (string, bool), key string) (decimal.Decimal, bool, error) {
	raw, ok := lookup(key)
	if !ok {
		return decimal.Zero, false, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%s must be a number (got %q)", key, raw)
	}
	return v, true, nil
}
