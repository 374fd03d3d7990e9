package apperror

// ErrorResponse is the standardized HTTP error payload
type ErrorResponse struct {
	Error     string            `json:"error"`
	ErrorCode string            `json:"error_code"`
	Details   map[string]string `json:"details,omitempty"`
}

// Meta carries pagination info next to list payloads.
type Meta struct {
	Skip  int   `json:"skip"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}
