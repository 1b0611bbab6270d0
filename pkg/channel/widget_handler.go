package channel

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/creatorhub/hub/pkg/httputil"
)

// GreetingSource supplies the assistant's configured greeting.
type GreetingSource interface {
	Greeting(ctx context.Context, creatorID uuid.UUID) (string, error)
}

// WidgetHandler is the first-party surface the embeddable chat widget talks
// to. Unlike the provider webhooks, /query answers synchronously so the
// widget can render the reply immediately.
type WidgetHandler struct {
	adapter   *WidgetAdapter
	responder Responder
	greetings GreetingSource
	logger    *zap.Logger
}

func NewWidgetHandler(adapter *WidgetAdapter, responder Responder, greetings GreetingSource, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{adapter: adapter, responder: responder, greetings: greetings, logger: logger}
}

func (h *WidgetHandler) Register(r *httputil.Router) {
	r.HandleFunc("POST /widget/{creatorID}/query", h.handleQuery)
	r.HandleFunc("GET /widget/{creatorID}/greeting", h.handleGreeting)
	r.HandleFunc("GET /widget/{creatorID}/replies", h.handleReplies)
}

type widgetQueryRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type widgetQueryResponse struct {
	ConversationID string `json:"conversationId"`
	Answer         string `json:"answer"`
}

func (h *WidgetHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.PathValue("creatorID"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "unknown creator")
		return
	}

	var req widgetQueryRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Text == "" {
		httputil.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	answer, err := h.responder.Answer(r.Context(), creatorID.String(), req.ConversationID, req.Text)
	if err != nil {
		h.logger.Error("widget query",
			zap.String("creator_id", creatorID.String()),
			zap.Error(err))
		httputil.Error(w, http.StatusBadGateway, "assistant is unavailable")
		return
	}
	httputil.JSON(w, http.StatusOK, widgetQueryResponse{
		ConversationID: req.ConversationID,
		Answer:         answer,
	})
}

func (h *WidgetHandler) handleGreeting(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.PathValue("creatorID"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "unknown creator")
		return
	}

	greeting, err := h.greetings.Greeting(r.Context(), creatorID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load greeting")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"greeting": greeting})
}

func (h *WidgetHandler) handleReplies(w http.ResponseWriter, r *http.Request) {
	creatorID, err := uuid.Parse(r.PathValue("creatorID"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, "unknown creator")
		return
	}

	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		httputil.Error(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	wait := 25 * time.Second
	if raw := r.URL.Query().Get("waitSeconds"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 && secs <= 60 {
			wait = time.Duration(secs) * time.Second
		}
	}

	replies, err := h.adapter.PollReplies(r.Context(), creatorID, conversationID, wait)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to poll replies")
		return
	}
	if replies == nil {
		replies = []WidgetReply{}
	}
	httputil.JSON(w, http.StatusOK, replies)
}
