package errors

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the standard error payload from any error
func NewErrorResponse(err error) ErrorResponse {
	detail := ErrorDetail{
		Display: err.Error(),
	}

	var internal *InternalError
	if As(err, &internal) {
		detail.Display = internal.DisplayError()
		if internal.Err != nil {
			detail.InternalError = internal.Err.Error()
		}
	}

	return ErrorResponse{
		Success: false,
		Error:   detail,
	}
}
