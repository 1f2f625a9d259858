package apperror

// Response is the JSON body of every failed API call, whether a handler or
// a gate in front of it refused the request.
//
//	{"error": "validation_error", "message": "Caption dan gambar harus diisi!"}
//
// Error is a stable machine-readable kind. Message is localized for the
// visitor and safe to show as-is.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
