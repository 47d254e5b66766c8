package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/storefront/internal/auth/service"
	"github.com/aussiebroadwan/storefront/pkg/authsdk"
	"github.com/aussiebroadwan/storefront/pkg/httpx"
)

const msgUserNotFound = "unauthorized: user not found"

type MeHandler struct {
	UserService *service.UserService
}

// ServeHTTP returns the signed-in user.
//
//	@Summary		Current user
//	@Description	Returns the user the access token was issued to.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse	"id, username, email, role"
//	@Failure		401	{object}	authsdk.MessageResponse	"missing, invalid or expired token, or unknown user"
//	@Router			/api/auth/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, httpx.MsgTokenInvalid)
		return
	}

	user, err := h.UserService.GetUserByID(r.Context(), userID)
	if errors.Is(err, service.ErrNotFound) {
		httpx.WriteMessage(w, http.StatusUnauthorized, msgUserNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
		Verified: user.IsVerified,
	})
}
