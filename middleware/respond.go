package middleware

import (
	"encoding/json"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
)

type rejectionBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// writeRejection renders err as the JSON rejection body. Errors that are not
// rejections become an opaque 500.
func writeRejection(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := rejectionBody{Error: "Internal server error"}
	if rej, ok := goGate.RejectionOf(err); ok {
		status = rej.Status
		body.Error = rej.Message
		body.Code = rej.Code
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
