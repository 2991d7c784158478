package handler

import (
	"encoding/json"
	"net/http"

	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates the error taxonomy into HTTP statuses. Coded
// business failures surface their message; anything that classifies as
// Unprocessable is an unexpected internal error, so its text is logged
// with the request context and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)

	msg := err.Error()
	if code == apperr.CodeUnprocessable || status == http.StatusInternalServerError {
		log.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.WithError(err),
		)
		msg = "unprocessable request"
	}
	writeJSON(w, status, errorBody{Code: string(code), Message: msg})
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeInvalidOperation, apperr.CodeUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
