package domain

import "time"

// Point is one (Year, value) sample of a metric history.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// ForecastPoint is one predicted value with its uncertainty interval.
type ForecastPoint struct {
	Date      time.Time `json:"ds"`
	Year      int       `json:"year"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
}
