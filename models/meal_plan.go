package models

import "time"

const StatusSuccess = "SUCCESS"

// MealPlanRequest is the body of POST /api/chat/meal-recommendation.
type MealPlanRequest struct {
	Height      int      `json:"height"`
	Weight      int      `json:"weight"`
	ServingSize int      `json:"servingSize"`
	Allergies   []string `json:"allergies"`
	Message     string   `json:"message"`
}

type MealPlanResponse struct {
	Status   string `json:"status"`
	MealPlan string `json:"mealPlan"`
	Message  string `json:"message,omitempty"`
}

// ResultCard is a generated plan as shown in the results area.
type ResultCard struct {
	Plan        string    `json:"plan"`
	CreatedAt   time.Time `json:"created_at"`
	BMI         float64   `json:"bmi,omitempty"`
	BMICategory string    `json:"bmi_category,omitempty"`
}
