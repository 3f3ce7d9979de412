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

// InviteRequest is the operator's member invitation payload.
type InviteRequest struct {
	FirstName     string `json:"first_name"     validate:"required"`
	LastName      string `json:"last_name"      validate:"required"`
	Email         string `json:"email"          validate:"required,email"`
	RecoveryEmail string `json:"recovery_email" validate:"required,email"`
}

// InviteResponse carries the new account's ID.
type InviteResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type InviteHandler struct {
	InvitationService *service.InvitationService
	Validate          *validator.Validate
}

// ServeHTTP godoc
//
//	@Summary		Invite Member
//	@Description	Creates a member account with the tenant address and sends the enrollment link to the invitee's personal address. Internal-only.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		InviteRequest		true	"Invitation"
//	@Success		201		{object}	InviteResponse		"user_id, message"
//	@Failure		400		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		502		{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		InternalAuth
//	@Router			/api/users [post].
func (h *InviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req InviteRequest
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
			ErrorDescription: "first_name, last_name, email and recovery_email are required",
		})
		return
	}

	userID, err := h.InvitationService.InviteMember(ctx, service.MemberInvite{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		RecoveryEmail: req.RecoveryEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorResponse{
				Error:            "user_exists",
				ErrorDescription: "A user with this email already exists",
			})
		case errors.Is(err, service.ErrInvitationEmailFailure):
			// The account exists; the operator can re-send the link.
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "send_failed",
				ErrorDescription: "Account created but the invitation email could not be sent",
			})
		default:
			log.Error("failed to invite member", "error", err)
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "upstream_unavailable",
				ErrorDescription: "The identity provider is unavailable",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, InviteResponse{
		UserID:  userID,
		Message: "Invitation sent",
	})
}

type ResendInviteHandler struct {
	InvitationService *service.InvitationService
}

// ServeHTTP godoc
//
//	@Summary		Re-send Invitation
//	@Description	Sends a fresh enrollment link for an existing account that has not completed setup. Internal-only.
//	@Tags			Users
//	@Produce		json
//	@Param			id	path		string				true	"Account ID"
//	@Success		200	{object}	InviteResponse		"user_id, message"
//	@Failure		404	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		502	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		InternalAuth
//	@Router			/api/users/{id}/invite [post].
func (h *ResendInviteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	if err := h.InvitationService.SendInvitation(ctx, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{
				Error:            "account_not_found",
				ErrorDescription: "No account with that ID",
			})
		case errors.Is(err, service.ErrInvitationNotPossible):
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorResponse{
				Error:            "no_recovery_email",
				ErrorDescription: "The account has no recovery email to send the invitation to",
			})
		default:
			slogx.FromContext(ctx).Error("failed to re-send invitation", "error", err)
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "upstream_unavailable",
				ErrorDescription: "The identity provider is unavailable",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, InviteResponse{
		UserID:  userID,
		Message: "Invitation sent",
	})
}

type ListUsersHandler struct {
	DirectoryService *service.DirectoryService
}

// ServeHTTP godoc
//
//	@Summary		List Accounts
//	@Description	Lists the realm's accounts with passkey status and flow state. Internal-only.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{array}		service.DirectoryEntry
//	@Failure		502	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		InternalAuth
//	@Router			/api/users [get].
func (h *ListUsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.DirectoryService.ListAccounts(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list accounts", "error", err)
		httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
			Error:            "upstream_unavailable",
			ErrorDescription: "The identity provider is unavailable",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, entries)
}

type DeleteUserHandler struct {
	DirectoryService *service.DirectoryService
}

// ServeHTTP godoc
//
//	@Summary		Delete Account
//	@Description	Removes an account from the realm. Internal-only.
//	@Tags			Users
//	@Param			id	path	string	true	"Account ID"
//	@Success		204	"Deleted"
//	@Failure		404	{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		502	{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		InternalAuth
//	@Router			/api/users/{id} [delete].
func (h *DeleteUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	if err := h.DirectoryService.RemoveAccount(ctx, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{
				Error:            "account_not_found",
				ErrorDescription: "No account with that ID",
			})
		default:
			slogx.FromContext(ctx).Error("failed to delete account", "error", err)
			httpx.WriteJSON(w, http.StatusBadGateway, httpx.ErrorResponse{
				Error:            "upstream_unavailable",
				ErrorDescription: "The identity provider is unavailable",
			})
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
