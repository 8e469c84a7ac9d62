package model

// Message is a generic text response
type Message struct {
	Message string `json:"message"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// EmailData is a rendered email ready for dispatch
type EmailData struct {
	Subject     string
	HTMLContent string
}
