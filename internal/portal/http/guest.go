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

// GuestSignupRequest is the public guest registration payload.
type GuestSignupRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name"  validate:"required"`
	Email       string `json:"email"      validate:"required,email"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// GuestSignupResponse confirms the registration.
type GuestSignupResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type GuestHandler struct {
	GuestService *service.GuestService
	Validate     *validator.Validate
}

// ServeHTTP godoc
//
//	@Summary		Guest Self-Registration
//	@Description	Registers an external collaborator with their own email address. The guest must verify the address and register a passkey via the emailed link.
//	@Tags			Guests
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GuestSignupRequest	true	"Signup"
//	@Success		201		{object}	GuestSignupResponse	"user_id, message"
//	@Failure		400		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		502		{object}	httpx.ErrorResponse	"error, error_description"
//	@Router			/api/guests [post].
func (h *GuestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req GuestSignupRequest
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
			ErrorDescription: "first_name, last_name and email are required",
		})
		return
	}

	userID, err := h.GuestService.RegisterGuest(ctx, service.GuestSignup{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		RedirectURI: req.RedirectURI,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGuestDomainNotAllowed):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:            "domain_not_allowed",
				ErrorDescription: "Workspace members cannot register as guests",
			})
		case errors.Is(err, service.ErrUserExists):
			httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
				Error:            "user_exists",
				ErrorDescription: "A user with this email already exists",
			})
		default:
			log.Error("guest registration failed", "error", err)
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "upstream_unavailable",
				ErrorDescription: "The identity provider is unavailable",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, GuestSignupResponse{
		UserID:  userID,
		Message: "Check your email to verify your address and register a passkey",
	})
}
