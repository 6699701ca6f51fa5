// Package recommendation maps predicted skin conditions to advice text.
package recommendation

import (
	"math"
	"strings"
)

// LowConfidenceThreshold is the percentage below which label-specific advice is withheld.
const LowConfidenceThreshold = 50

// Condition is a lowercase predicted class label.
type Condition string

const (
	HealthySkin Condition = "healthy skin"
	Acne        Condition = "acne"
	Eczema      Condition = "eczema"
	Psoriasis   Condition = "psoriasis"
	Melanoma    Condition = "melanoma"
	SkinCancer  Condition = "skin cancer"
)

const (
	LowConfidence = "Low confidence prediction. Please consult a healthcare professional for accurate diagnosis."
	Default       = "Please consult a healthcare professional for proper diagnosis and treatment."

	urgent = "This requires immediate medical attention. Please consult a dermatologist as soon as possible."
)

var advice = map[Condition]string{
	HealthySkin: "Your skin appears healthy. Continue with your regular skincare routine.",
	Acne:        "Consider using gentle cleansers and avoiding harsh scrubs. Consult a dermatologist if persistent.",
	Eczema:      "Keep skin moisturized and avoid triggers. Consider seeing a dermatologist for treatment options.",
	Psoriasis:   "This condition may require medical treatment. Please consult a dermatologist.",
	Melanoma:    urgent,
	SkinCancer:  urgent,
}

// ConfidencePercent converts a [0,1] confidence into a rounded percentage.
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// For returns the advice for label at the given confidence percentage.
func For(label string, percent int) string {
	if percent < LowConfidenceThreshold {
		return LowConfidence
	}
	if text, ok := advice[Condition(strings.ToLower(label))]; ok {
		return text
	}
	return Default
}
