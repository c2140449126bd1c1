package dto

// ErrorResponse cuerpo de error HTTP.
// Field nombra el campo del registro de entrada cuando el error proviene de los datos del usuario.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	Details []string `json:"details,omitempty"`
}

// HealthResponse cuerpo de GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Profile string `json:"profile"`
}
