package domain

import "fmt"

// Tier is a warranty plan level. The three tiers are ordered by coverage:
// Standard < Comfort < Premium. Only Standard has a defined period derivation
// (12 calendar months from the purchase date).
type Tier string

const (
	TierStandard Tier = "standard"
	TierComfort  Tier = "comfort"
	TierPremium  Tier = "premium"
)

// ParseTier converts a wire value into a Tier. Unknown values are rejected so
// stale or forged button payloads cannot smuggle in an unnamed tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierStandard, TierComfort, TierPremium:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown warranty tier %q", s)
}

// Title returns the user-facing plan name.
func (t Tier) Title() string {
	switch t {
	case TierStandard:
		return "Standard"
	case TierComfort:
		return "Comfort"
	case TierPremium:
		return "Premium"
	}
	return string(t)
}

// DeviceType classifies the kind of appliance a serial number belongs to.
type DeviceType string

const (
	DeviceUnknown        DeviceType = "unknown"
	DeviceSteamGenerator DeviceType = "steam_generator"
	DeviceIron           DeviceType = "iron"
	DeviceBlender        DeviceType = "blender"
	DeviceAirFryer       DeviceType = "air_fryer"
	DeviceJuicer         DeviceType = "juicer"
	DeviceHairDryer      DeviceType = "hair_dryer"
)

// OrderSource is the marketplace a device was purchased from. The set is
// closed: button payloads map onto these values and nothing else.
type OrderSource string

const (
	SourceOzon         OrderSource = "ozon"
	SourceWildberries  OrderSource = "wildberries"
	SourceYandexMarket OrderSource = "yandex_market"
	SourceAvito        OrderSource = "avito"
	SourceRetail       OrderSource = "retail"
)

// AllOrderSources lists the selectable sources in keyboard order.
func AllOrderSources() []OrderSource {
	return []OrderSource{SourceOzon, SourceWildberries, SourceYandexMarket, SourceAvito, SourceRetail}
}

// ParseOrderSource converts a wire value into an OrderSource.
func ParseOrderSource(s string) (OrderSource, error) {
	switch OrderSource(s) {
	case SourceOzon, SourceWildberries, SourceYandexMarket, SourceAvito, SourceRetail:
		return OrderSource(s), nil
	}
	return "", fmt.Errorf("unknown order source %q", s)
}

// Title returns the user-facing marketplace name.
func (s OrderSource) Title() string {
	switch s {
	case SourceOzon:
		return "Ozon"
	case SourceWildberries:
		return "Wildberries"
	case SourceYandexMarket:
		return "Yandex Market"
	case SourceAvito:
		return "Avito"
	case SourceRetail:
		return "Retail"
	}
	return string(s)
}
