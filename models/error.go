package models

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// HealthCheckResponse shows the current health of the api. true means
// it is alive, false means it is not.
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
