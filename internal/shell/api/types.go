package api

import "time"

// =============================================================================
// Response Types
// =============================================================================

// ResourceResponse describes one resource in the application manifest.
// Property values are template expressions; resolved values (which may carry
// credentials) are never exposed here.
type ResourceResponse struct {
	Name                     string             `json:"name"`
	Type                     string             `json:"type"` // "server", "database", "parameter"
	ConnectionStringTemplate string             `json:"connection_string_template,omitempty"`
	Properties               []PropertyResponse `json:"properties"`
}

// PropertyResponse is one (key, template expression) pair.
type PropertyResponse struct {
	Key        string `json:"key"`
	Expression string `json:"expression"`
}

// ProvisionResponse is one recorded database-creation attempt.
type ProvisionResponse struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	ServerName   string    `json:"server_name"`
	ResourceName string    `json:"resource_name"`
	DatabaseName string    `json:"database_name"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
