package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mothertree-labs/mothertree-oss/internal/portal/service"
	"github.com/mothertree-labs/mothertree-oss/pkg/httpx"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

// RecoveryRequest is the public recovery form submission.
type RecoveryRequest struct {
	TenantEmail   string `json:"tenant_email"   validate:"required,email"`
	RecoveryEmail string `json:"recovery_email" validate:"required,email"`
}

// RecoveryResponse confirms initiation with a masked hint of where the
// link went.
type RecoveryResponse struct {
	Message           string `json:"message"`
	RecoveryEmailHint string `json:"recovery_email_hint"`
}

type RecoveryHandler struct {
	RecoveryService *service.RecoveryService
	Validate        *validator.Validate
}

// ServeHTTP godoc
//
//	@Summary		Initiate Account Recovery
//	@Description	Validates the tenant and recovery address pair, revokes the account's passkeys and sends a re-enrollment link to the recovery address.
//	@Tags			Recovery
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RecoveryRequest		true	"Recovery request"
//	@Success		200		{object}	RecoveryResponse	"message, recovery_email_hint"
//	@Failure		400		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		404		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		502		{object}	httpx.ErrorResponse	"error, error_description"
//	@Router			/api/recovery [post].
func (h *RecoveryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RecoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid JSON body",
		})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Both email addresses are required",
		})
		return
	}

	result, err := h.RecoveryService.StartRecovery(ctx, req.TenantEmail, req.RecoveryEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{
				Error:            "account_not_found",
				ErrorDescription: "No account found with that email address",
			})
		case errors.Is(err, service.ErrRecoveryNotConfigured):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:            "recovery_not_configured",
				ErrorDescription: "This account does not have a recovery email configured",
			})
		case errors.Is(err, service.ErrRecoveryEmailMismatch):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:            "recovery_email_mismatch",
				ErrorDescription: "The recovery email address does not match our records",
			})
		case errors.Is(err, service.ErrRecoverySendFailed):
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "send_failed",
				ErrorDescription: "Failed to send the recovery email, please try again later",
			})
		default:
			log.Error("recovery failed", "error", err)
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "upstream_unavailable",
				ErrorDescription: "The identity provider is unavailable, please try again later",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RecoveryResponse{
		Message:           "Recovery link sent to your recovery email address",
		RecoveryEmailHint: result.RecoveryEmailHint,
	})
}
