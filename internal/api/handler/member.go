package handler

import (
	"net/http"

	"studyhub/internal/api/middleware"
	"studyhub/internal/api/response"
	"studyhub/internal/service"
)

// MemberHandler handles membership and presence endpoints
type MemberHandler struct {
	membership *service.MembershipService
	presence   *service.PresenceService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(membership *service.MembershipService, presence *service.PresenceService) *MemberHandler {
	return &MemberHandler{membership: membership, presence: presence}
}

// Join adds the caller to the session.
func (h *MemberHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	session, err := h.membership.Join(r.Context(), code, identity.UserID, identity.DisplayName)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, session)
}

// Leave removes the caller from the session. Owners are rejected here;
// they end the session instead.
func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	if err := h.membership.Leave(r.Context(), code, identity.UserID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// List returns the membership roster ordered by join time.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	members, err := h.membership.ListMembers(r.Context(), code)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, members)
}

// Heartbeat refreshes the caller's presence marker.
func (h *MemberHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	code, ok := middleware.GetSessionCode(r.Context())
	if !ok {
		response.BadRequest(w, "missing session code")
		return
	}

	if err := h.presence.Heartbeat(r.Context(), code, identity.UserID); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
