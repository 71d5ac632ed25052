// Package weather produces the report served behind the payment gate.
package weather

import "math/rand"

// Report is the paid resource body.
type Report struct {
	TemperatureF int `json:"temperatureF"`
}

// Service generates weather reports.
type Service struct{}

// NewService creates a weather service.
func NewService() *Service {
	return &Service{}
}

// Current returns the current report. Readings land between 58 and 82
// degrees Fahrenheit.
func (s *Service) Current() Report {
	return Report{TemperatureF: 58 + rand.Intn(25)}
}
