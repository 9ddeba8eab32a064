package enums

import "fmt"

// PointsReason records why points were granted or redeemed.
type PointsReason string

const (
	PointsReasonPurchase   PointsReason = "purchase"
	PointsReasonWelcome    PointsReason = "welcome"
	PointsReasonBirthday   PointsReason = "birthday"
	PointsReasonReferral   PointsReason = "referral"
	PointsReasonRedemption PointsReason = "redemption"
	PointsReasonAdmin      PointsReason = "admin"
)

var validPointsReasons = []PointsReason{
	PointsReasonPurchase,
	PointsReasonWelcome,
	PointsReasonBirthday,
	PointsReasonReferral,
	PointsReasonRedemption,
	PointsReasonAdmin,
}

// String implements fmt.Stringer.
func (p PointsReason) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PointsReason.
func (p PointsReason) IsValid() bool {
	for _, candidate := range validPointsReasons {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePointsReason converts raw input into a PointsReason.
func ParsePointsReason(value string) (PointsReason, error) {
	for _, candidate := range validPointsReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid points reason %q", value)
}
