package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/application/chat"
	"github.com/matemarket/pulse/internal/application/notification"
	"github.com/matemarket/pulse/internal/domain/notify"
	"github.com/matemarket/pulse/pkg/auth"
	apperrors "github.com/matemarket/pulse/pkg/errors"
)

// ChatService is the chat room use-case surface exposed over HTTP.
type ChatService interface {
	EnterRoom(ctx context.Context, cmd chat.EnterRoomCommand) error
	LeaveRoom(ctx context.Context, cmd chat.LeaveRoomCommand) error
	SendMessage(ctx context.Context, cmd chat.SendMessageCommand) error
}

// NotificationService raises member notifications.
type NotificationService interface {
	Notify(ctx context.Context, cmd notification.NotifyCommand) error
}

// Handler serves the actions that trigger deliveries.
type Handler struct {
	chat          ChatService
	notifications NotificationService
	authn         auth.MemberAuthenticator
	logger        *zap.Logger
	mux           *runtime.ServeMux
	marshaler     runtime.Marshaler
}

// NewHandler creates the HTTP action handler.
func NewHandler(chatSvc ChatService, notifications NotificationService, authn auth.MemberAuthenticator, logger *zap.Logger) *Handler {
	return &Handler{
		chat:          chatSvc,
		notifications: notifications,
		authn:         authn,
		logger:        logger.Named("rest"),
		marshaler:     &runtime.JSONPb{},
	}
}

// Register mounts the routes on the gateway mux.
func (h *Handler) Register(mux *runtime.ServeMux) error {
	h.mux = mux
	routes := []struct {
		path    string
		handler runtime.HandlerFunc
	}{
		{"/api/v1/rooms/{room_id}/enter", h.enterRoom},
		{"/api/v1/rooms/{room_id}/leave", h.leaveRoom},
		{"/api/v1/rooms/{room_id}/messages", h.sendMessage},
		{"/api/v1/notifications", h.notify},
	}
	for _, route := range routes {
		if err := mux.HandlePath(http.MethodPost, route.path, h.authenticated(route.handler)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) authenticated(next runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			h.writeError(w, r, apperrors.Unauthorized("missing access token"))
			return
		}
		memberID, err := h.authn.Authenticate(token)
		if err != nil {
			h.writeError(w, r, apperrors.Wrap(apperrors.ErrorTypeUnauthorized, "invalid access token", err))
			return
		}
		next(w, r.WithContext(auth.WithMember(r.Context(), memberID)), params)
	}
}

func (h *Handler) enterRoom(w http.ResponseWriter, r *http.Request, params map[string]string) {
	memberID, _ := auth.MemberFromContext(r.Context())
	h.respond(w, r, h.chat.EnterRoom(r.Context(), chat.EnterRoomCommand{
		RoomID:   params["room_id"],
		MemberID: memberID,
	}))
}

func (h *Handler) leaveRoom(w http.ResponseWriter, r *http.Request, params map[string]string) {
	memberID, _ := auth.MemberFromContext(r.Context())
	h.respond(w, r, h.chat.LeaveRoom(r.Context(), chat.LeaveRoomCommand{
		RoomID:   params["room_id"],
		MemberID: memberID,
	}))
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid request body", err))
		return
	}
	memberID, _ := auth.MemberFromContext(r.Context())
	h.respond(w, r, h.chat.SendMessage(r.Context(), chat.SendMessageCommand{
		RoomID:   params["room_id"],
		MemberID: memberID,
		Text:     req.Text,
	}))
}

type notifyRequest struct {
	Kind        string `json:"kind"`
	ResourceID  string `json:"resource_id"`
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
	TargetURL   string `json:"target_url"`
}

func (h *Handler) notify(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid request body", err))
		return
	}
	kind, err := notify.ParseKind(req.Kind)
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.ErrorTypeBadRequest, "invalid kind", err))
		return
	}
	memberID, _ := auth.MemberFromContext(r.Context())
	h.respond(w, r, h.notifications.Notify(r.Context(), notification.NotifyCommand{
		Kind:        kind,
		ResourceID:  req.ResourceID,
		ActorID:     memberID,
		RecipientID: req.RecipientID,
		Text:        req.Text,
		TargetURL:   req.TargetURL,
	}))
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	runtime.HTTPError(r.Context(), h.mux, h.marshaler, w, r, apperrors.GRPCStatus(err))
}
