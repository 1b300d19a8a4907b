package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomSvc   *service.RoomService
	memberSvc *service.MemberService
	chatSvc   *service.ChatService
}

func NewHandler(room *service.RoomService, member *service.MemberService, chat *service.ChatService) *Handler {
	return &Handler{
		roomSvc:   room,
		memberSvc: member,
		chatSvc:   chat,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Room
// mutations fail closed, so any error here implies no state change.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
	case errors.Is(err, domain.ErrRoomExists):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "room with this name already exists"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "insufficient privilege"})
	case errors.Is(err, domain.ErrNotGroup),
		errors.Is(err, domain.ErrOwnerImmutable),
		errors.Is(err, domain.ErrNotMember),
		errors.Is(err, domain.ErrNoTargets),
		errors.Is(err, domain.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("handler: internal error", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httpmw.IdentityFromCtx(r.Context())
	if !ok || id.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user id"})
		return "", false
	}
	return id.UserID, true
}

// POST /rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	var (
		room *domain.Room
		err  error
	)
	if req.IsGroup {
		room, err = h.roomSvc.CreateGroup(r.Context(), userID, req.Name, req.Description, req.Members)
	} else {
		if len(req.Members) != 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "direct room needs exactly one other member"})
			return
		}
		room, err = h.roomSvc.CreateDirect(r.Context(), userID, req.Members[0])
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRoomItem(room))
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	rooms, err := h.roomSvc.ListRooms(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for i := range rooms {
		resp.Items = append(resp.Items, toRoomItem(&rooms[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	room, err := h.roomSvc.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// комнату видят только её участники
	if !room.IsMember(userID) {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, toRoomItem(room))
}

// POST /rooms/{id}/members
func (h *Handler) AddMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req AddMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	roomID := chi.URLParam(r, "id")
	if err := h.memberSvc.AddMembers(r.Context(), userID, roomID, req.UserIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DELETE /rooms/{id}/members/{userId}
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	roomID := chi.URLParam(r, "id")
	target := chi.URLParam(r, "userId")
	if err := h.memberSvc.RemoveMember(r.Context(), userID, roomID, target); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// PUT /rooms/{id}/change-admin/{userId}
func (h *Handler) ChangeAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	roomID := chi.URLParam(r, "id")
	target := chi.URLParam(r, "userId")
	isAdmin, err := h.memberSvc.ChangeAdminStatus(r.Context(), userID, roomID, target)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeAdminResponse{UserID: target, IsAdmin: isAdmin})
}

// POST /rooms/{id}/messages
//
// REST variant of send: persists only. Live delivery happens over the
// realtime channel; history readers pick this message up from storage.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	roomID := chi.URLParam(r, "id")
	msg, err := h.chatSvc.Append(r.Context(), roomID, userID, req.Message, req.Type, req.Attachments)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageItem(msg))
}

// GET /rooms/{id}/messages?after=&limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	roomID := chi.URLParam(r, "id")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.chatSvc.History(r.Context(), userID, roomID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		writeDomainError(w, err)
		return
	}

	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for i := range items {
		resp.Items = append(resp.Items, toMessageItem(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toMessageItem(m *domain.ChatMessage) ChatMessageItem {
	atts := m.Attachments
	if atts == nil {
		atts = []domain.Attachment{}
	}
	return ChatMessageItem{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		Message:     m.Body,
		Type:        m.Type,
		Attachments: atts,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}
