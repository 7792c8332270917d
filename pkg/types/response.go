package types

// SuccessEnvelope wraps every successful response body. Data may be nil
// when an operation has nothing to return, which still serializes as
// {"data": null} so clients can rely on the key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of a failed request. Details is populated
// only for codes that allow it, such as quota errors carrying limit and
// current counts.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
