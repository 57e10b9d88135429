package scoring

import (
	"fmt"
	"math"

	"crisiswatch/domain/core"
)

// Pure scoring primitives. All four functions are deterministic given
// their inputs and have no failure modes beyond input validation: invalid
// inputs fail fast rather than being silently clamped, except where a
// clamp is part of the formula itself (churn risk, reach cap).

const (
	MinAuthority = 1
	MaxAuthority = 5
	MinSeverity  = 1
	MaxSeverity  = 5
)

func validateAuthority(authority int) error {
	if authority < MinAuthority || authority > MaxAuthority {
		return core.NewValidationError("authority", fmt.Sprintf("must be in [%d,%d], got %d", MinAuthority, MaxAuthority, authority))
	}
	return nil
}

func validateSeverity(severity int) error {
	if severity < MinSeverity || severity > MaxSeverity {
		return core.NewValidationError("severity", fmt.Sprintf("must be in [%d,%d], got %d", MinSeverity, MaxSeverity, severity))
	}
	return nil
}

func validateNonNegative(field string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return core.NewValidationError(field, fmt.Sprintf("must be a non-negative finite number, got %v", v))
	}
	return nil
}

// ExposureScore combines authority, severity, topic risk, recency and
// sentiment into a single composite risk signal:
//
//	exposure = authority * severity * riskMultiplier * recencyMultiplier * sentimentWeight
//
// All multipliers come from fixed lookup tables except recency, which the
// caller derives from publication time via DecayTable.
func ExposureScore(authority, severity int, recencyMultiplier, riskMultiplier, sentimentWeight float64) (float64, error) {
	if err := validateAuthority(authority); err != nil {
		return 0, err
	}
	if err := validateSeverity(severity); err != nil {
		return 0, err
	}
	if err := validateNonNegative("recency_multiplier", recencyMultiplier); err != nil {
		return 0, err
	}
	if err := validateNonNegative("risk_multiplier", riskMultiplier); err != nil {
		return 0, err
	}
	if err := validateNonNegative("sentiment_weight", sentimentWeight); err != nil {
		return 0, err
	}
	score := float64(authority) * float64(severity) * riskMultiplier * recencyMultiplier * sentimentWeight
	return round2(score), nil
}

// ReachEstimate projects the audience reached by one piece of coverage:
//
//	reach = (authority * K_REACH) * (severity / 2) * viralCoefficient
//
// capped at ReachCap.
func ReachEstimate(authority, severity int, viralCoefficient float64) (float64, error) {
	if err := validateAuthority(authority); err != nil {
		return 0, err
	}
	if err := validateSeverity(severity); err != nil {
		return 0, err
	}
	if err := validateNonNegative("viral_coefficient", viralCoefficient); err != nil {
		return 0, err
	}
	raw := float64(authority) * KReach * (float64(severity) / 2.0) * viralCoefficient
	return round2(math.Min(raw, ReachCap)), nil
}

// ChurnRiskPercent estimates the share of the customer base at risk of
// leaving:
//
//	churn% = (severity / 100) * topicWeight
//
// clamped to [0, 100] by specification.
func ChurnRiskPercent(severity int, topicWeight float64) (float64, error) {
	if err := validateSeverity(severity); err != nil {
		return 0, err
	}
	if err := validateNonNegative("topic_weight", topicWeight); err != nil {
		return 0, err
	}
	pct := (float64(severity) / 100.0) * topicWeight
	return round2(math.Min(math.Max(pct, 0), 100)), nil
}

// ValueAtRisk converts reach and churn projections into a monetary figure:
//
//	VaR = (reach * cac) + (churn%/100 * totalCustomers * arr)
func ValueAtRisk(reach, cac, churnRiskPercent, totalCustomers, arr float64) (float64, error) {
	if err := validateNonNegative("reach", reach); err != nil {
		return 0, err
	}
	if err := validateNonNegative("cac", cac); err != nil {
		return 0, err
	}
	if err := validateNonNegative("churn_risk_percent", churnRiskPercent); err != nil {
		return 0, err
	}
	if churnRiskPercent > 100 {
		return 0, core.NewValidationError("churn_risk_percent", fmt.Sprintf("must not exceed 100, got %v", churnRiskPercent))
	}
	if err := validateNonNegative("total_customers", totalCustomers); err != nil {
		return 0, err
	}
	if err := validateNonNegative("arr", arr); err != nil {
		return 0, err
	}
	acquisitionLoss := reach * cac
	churnLoss := (churnRiskPercent / 100.0) * totalCustomers * arr
	return round2(acquisitionLoss + churnLoss), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
