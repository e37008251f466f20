package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/admission/store"
	"enrolldesk/internal/notification"
	dErrors "enrolldesk/pkg/domain-errors"
)

// submitRequest is the wire shape of POST /applications.
type submitRequest struct {
	ApplicantEmail string `json:"applicant_email"`
	ApplicantName  string `json:"applicant_name"`
	CourseName     string `json:"course_name"`
	// CourseFee is in minor currency units.
	CourseFee int64 `json:"course_fee"`
}

type listResponse struct {
	Applications []*models.Application `json:"applications"`
	Count        int                   `json:"count"`
}

type resendResponse struct {
	NotificationStatus notification.Status `json:"notification_status"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func decodeSubmitRequest(r *http.Request) (submitRequest, error) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return submitRequest{}, dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	return req, nil
}

// parseListFilter reads the optional status, payment, and limit query
// parameters. Absent parameters leave the filter unconstrained.
func parseListFilter(r *http.Request) (store.Filter, error) {
	var filter store.Filter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseReviewStatus(raw)
		if err != nil {
			return store.Filter{}, err
		}
		filter.ReviewStatus = status
	}
	if raw := r.URL.Query().Get("payment"); raw != "" {
		status, err := models.ParsePaymentStatus(raw)
		if err != nil {
			return store.Filter{}, err
		}
		filter.PaymentStatus = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return store.Filter{}, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates a coded error to the JSON error envelope. Errors
// without a code render as an internal failure to avoid leaking details.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), errorResponse{
		Error:            string(code),
		ErrorDescription: dErrors.MessageOf(err),
	})
}
