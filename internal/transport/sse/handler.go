package sse

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/stream"
	"github.com/matemarket/pulse/pkg/auth"
	apperrors "github.com/matemarket/pulse/pkg/errors"
	"github.com/matemarket/pulse/pkg/logger"
)

// SubscribePath is the event-stream endpoint.
const SubscribePath = "/api/v1/notifications/subscribe"

// Subscriber opens a member's stream channel from a resume cursor.
type Subscriber interface {
	Subscribe(ctx context.Context, subscriberID, cursor string) (*stream.Channel, error)
}

// Handler serves notification streams as server-sent events.
type Handler struct {
	subscriber Subscriber
	authn      auth.MemberAuthenticator
	logger     *zap.Logger
	mux        *runtime.ServeMux
	marshaler  runtime.Marshaler
}

// NewHandler creates the event-stream handler.
func NewHandler(subscriber Subscriber, authn auth.MemberAuthenticator, logger *zap.Logger) *Handler {
	return &Handler{
		subscriber: subscriber,
		authn:      authn,
		logger:     logger.Named("sse"),
		marshaler:  &runtime.JSONPb{},
	}
}

// Register mounts the handler on the gateway mux.
func (h *Handler) Register(mux *runtime.ServeMux) error {
	h.mux = mux
	return mux.HandlePath(http.MethodGet, SubscribePath, h.Subscribe)
}

// Subscribe authenticates the member, opens (and if asked, resumes) their
// stream and writes frames until either side goes away.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request, _ map[string]string) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, apperrors.New(apperrors.ErrorTypeInternal, "streaming unsupported"))
		return
	}

	cursor := r.Header.Get("Last-Event-ID")
	if cursor == "" {
		cursor = r.URL.Query().Get("lastEventId")
	}

	ch, err := h.subscriber.Subscribe(r.Context(), memberID, cursor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer ch.Complete()

	log := logger.FromContext(r.Context()).With(
		zap.String("subscriber_id", memberID),
		zap.String("channel_id", ch.ID()),
	)
	log.Info("event stream opened", zap.String("last_event_id", cursor))

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case f := <-ch.Frames():
			if err := writeFrame(w, f); err != nil {
				log.Info("event stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
			ch.MarkActive()
		case <-ch.Done():
			h.drain(w, flusher, ch)
			log.Info("event stream closed", zap.Error(ch.Err()))
			return
		case <-r.Context().Done():
			log.Info("event stream client gone")
			return
		}
	}
}

// drain writes frames that were buffered before the channel completed.
func (h *Handler) drain(w io.Writer, flusher http.Flusher, ch *stream.Channel) {
	for {
		select {
		case f := <-ch.Frames():
			if err := writeFrame(w, f); err != nil {
				return
			}
		default:
			flusher.Flush()
			return
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if h.mux == nil {
		http.Error(w, err.Error(), apperrors.HTTPStatus(err))
		return
	}
	runtime.HTTPError(r.Context(), h.mux, h.marshaler, w, r, apperrors.GRPCStatus(err))
}

func writeFrame(w io.Writer, f stream.Frame) error {
	if f.Heartbeat {
		_, err := io.WriteString(w, ": heartbeat\n\n")
		return err
	}
	_, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", f.ID, f.Event, f.Data)
	return err
}
