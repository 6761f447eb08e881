package utils

import (
	"errors"
	"fmt"
)

const (
	MinHeightCm = 100
	MaxHeightCm = 250
	MinWeightKg = 30
	MaxWeightKg = 200
)

var ErrBiometricsOutOfRange = errors.New("biometrics out of range")

// ValidateBiometrics checks the inputs the meal planner accepts.
func ValidateBiometrics(heightCm, weightKg int) error {
	if heightCm < MinHeightCm || heightCm > MaxHeightCm {
		return fmt.Errorf("%w: height must be between %d and %d cm", ErrBiometricsOutOfRange, MinHeightCm, MaxHeightCm)
	}
	if weightKg < MinWeightKg || weightKg > MaxWeightKg {
		return fmt.Errorf("%w: weight must be between %d and %d kg", ErrBiometricsOutOfRange, MinWeightKg, MaxWeightKg)
	}
	return nil
}

// CalculateBMI expects height in centimeters and weight in kilograms.
func CalculateBMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, errors.New("height and weight must be positive")
	}
	h := heightCm / 100.0
	return weightKg / (h * h), nil
}

func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Obesity class I"
	case bmi < 40.0:
		return "Obesity class II"
	default:
		return "Obesity class III"
	}
}
