package model

// AppError is the only error payload surfaced to users, both as the CLI's
// fatal message and as the HTTP API's JSON error envelope.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage"`

	Source  string `json:"source,omitempty"`  // input file path or URL
	Snippet string `json:"snippet,omitempty"` // <= 200 chars recommended
	Hint    string `json:"hint,omitempty"`
}

type ErrorResponse struct {
	Error AppError `json:"error"`
}
