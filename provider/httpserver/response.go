package httpserver

// JSONResponseSuccess is the success envelope every handler in this
// service returns; Data is omitted for endpoints with no payload.
type JSONResponseSuccess struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// JSONErrorDetail carries the human-readable error message and, for
// validation failures, the list of field errors.
type JSONErrorDetail struct {
	Message      string            `json:"message,omitempty"`
	RequestError []ValidationError `json:"requestError,omitempty"`
}

type JSONResponseError struct {
	Success bool            `json:"success"`
	Error   JSONErrorDetail `json:"error"`
}
