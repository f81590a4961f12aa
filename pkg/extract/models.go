package extract

import (
	"strconv"
	"strings"
)

// Package is the flexible record form: an open attribute map that tolerates
// whatever fields a given provider's documents happen to carry.
type Package struct {
	Name        string         `json:"name" bson:"name"`
	PartnerName string         `json:"partner_name,omitempty" bson:"partner_name,omitempty"`
	ServiceType string         `json:"service_type,omitempty" bson:"service_type,omitempty"`
	Attributes  map[string]any `json:"attributes" bson:"attributes"`
}

// StrictAttributes is the fixed-field attribute struct used when the model is
// driven with a rigid response schema. Pointer fields distinguish "absent"
// from zero values so conversion can drop them.
type StrictAttributes struct {
	Price              *int    `json:"price,omitempty"`
	BillingCycle       *string `json:"billing_cycle,omitempty"`
	PaymentType        *string `json:"payment_type,omitempty"`
	DataLimit          *string `json:"data_limit,omitempty"`
	DataUnit           *string `json:"data_unit,omitempty"`
	VoiceMinutes       *string `json:"voice_minutes,omitempty"`
	SMSCount           *int    `json:"sms_count,omitempty"`
	Speed              *string `json:"speed,omitempty"`
	Channels           *int    `json:"channels,omitempty"`
	Promotion          *string `json:"promotion,omitempty"`
	AutoRenew          *string `json:"auto_renew,omitempty"`
	RegistrationSyntax *string `json:"registration_syntax,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

// StrictPackage is the rigid-schema record form. It never leaves this
// package: every strict result is converted to the flexible form first.
type StrictPackage struct {
	Name        string           `json:"name"`
	PartnerName string           `json:"partner_name,omitempty"`
	ServiceType string           `json:"service_type,omitempty"`
	Attributes  StrictAttributes `json:"attributes"`
}

type strictPackageList struct {
	Packages []StrictPackage `json:"packages"`
}

// FromStrict converts a strict record to the flexible form, dropping
// attribute fields that were absent.
func FromStrict(sp StrictPackage) Package {
	attrs := map[string]any{}
	put := func(key string, v any) {
		switch p := v.(type) {
		case *int:
			if p != nil {
				attrs[key] = *p
			}
		case *string:
			if p != nil && strings.TrimSpace(*p) != "" {
				attrs[key] = *p
			}
		}
	}
	put("price", sp.Attributes.Price)
	put("billing_cycle", sp.Attributes.BillingCycle)
	put("payment_type", sp.Attributes.PaymentType)
	put("data_limit", sp.Attributes.DataLimit)
	put("data_unit", sp.Attributes.DataUnit)
	put("voice_minutes", sp.Attributes.VoiceMinutes)
	put("sms_count", sp.Attributes.SMSCount)
	put("speed", sp.Attributes.Speed)
	put("channels", sp.Attributes.Channels)
	put("promotion", sp.Attributes.Promotion)
	put("auto_renew", sp.Attributes.AutoRenew)
	put("registration_syntax", sp.Attributes.RegistrationSyntax)
	put("notes", sp.Attributes.Notes)

	return Package{
		Name:        strings.TrimSpace(sp.Name),
		PartnerName: strings.TrimSpace(sp.PartnerName),
		ServiceType: strings.TrimSpace(sp.ServiceType),
		Attributes:  attrs,
	}
}

// priceKeys are attribute keys that carry a monetary amount and should be
// stored as integers.
var priceKeys = map[string]bool{
	"price":   true,
	"giá":     true,
	"gia_vnd": true,
}

// normalizeAttributes coerces price-like string values such as "80.000" or
// "1.570.000" (Vietnamese thousands separators) to integers. Non-numeric
// values are left untouched.
func normalizeAttributes(attrs map[string]any) {
	for key, val := range attrs {
		if !priceKeys[strings.ToLower(key)] {
			continue
		}
		switch v := val.(type) {
		case string:
			if n, ok := parseAmount(v); ok {
				attrs[key] = n
			}
		case float64:
			attrs[key] = int(v)
		}
	}
}

// parseAmount strips currency decoration and thousands separators. It only
// converts when the remainder is purely numeric.
func parseAmount(s string) (int, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimSuffix(cleaned, "đ")
	cleaned = strings.TrimSuffix(strings.ToUpper(cleaned), "VND")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}
