package creator

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/creatorhub/hub/pkg/events"
	"github.com/creatorhub/hub/pkg/httputil"
)

// Handler exposes the creator-hub CRUD endpoints. All routes expect the auth
// middleware to have put the creator ID in the request context.
type Handler struct {
	service *Service
	bus     events.Bus
}

func NewHandler(service *Service, bus events.Bus) *Handler {
	return &Handler{service: service, bus: bus}
}

// Register mounts the routes on a router group (e.g. /api/v1).
func (h *Handler) Register(r *httputil.Router) {
	r.HandleFunc("GET /assistant", h.handleGetAssistant)
	r.HandleFunc("PUT /assistant", h.handleUpdateAssistant)
	r.HandleFunc("GET /clients", h.handleListClients)
	r.HandleFunc("DELETE /clients/{id}", h.handleDeleteClient)
	r.HandleFunc("GET /documents", h.handleListDocuments)
	r.HandleFunc("POST /documents", h.handleCreateDocument)
	r.HandleFunc("DELETE /documents/{id}", h.handleDeleteDocument)
}

func (h *Handler) handleGetAssistant(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	assistant, err := h.service.Assistant(r.Context(), creatorID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to load assistant settings")
		return
	}
	httputil.JSON(w, http.StatusOK, assistant)
}

func (h *Handler) handleUpdateAssistant(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	assistant := &Assistant{}
	if err := httputil.BindOrError(r, w, assistant); err != nil {
		return
	}
	assistant.CreatorID = creatorID

	if err := h.service.UpdateAssistant(r.Context(), assistant); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, assistant)
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	clients, err := h.service.Clients(r.Context(), creatorID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []Client{}
	}
	httputil.JSON(w, http.StatusOK, clients)
}

func (h *Handler) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	clientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid client id")
		return
	}

	if err := h.service.RemoveClient(r.Context(), creatorID, clientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.Error(w, http.StatusNotFound, "client not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createDocumentRequest struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createDocumentRequest
	if err := httputil.BindOrError(r, w, &req); err != nil {
		return
	}
	if req.Content == "" {
		httputil.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	doc, err := h.service.AddDocument(r.Context(), creatorID, req.Title, req.Source)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	// Embedding happens in the worker; the document stays pending until then.
	event, err := events.NewEvent(events.TypeDocumentAdded, events.DocumentAdded{
		CreatorID:  creatorID,
		DocumentID: doc.ID,
		Content:    req.Content,
	})
	if err == nil {
		err = h.bus.Publish(r.Context(), event)
	}
	if err != nil {
		if markErr := h.service.MarkDocument(r.Context(), creatorID, doc.ID, DocumentFailed, 0); markErr == nil {
			doc.Status = DocumentFailed
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to queue document for indexing")
		return
	}
	httputil.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	docs, err := h.service.Documents(r.Context(), creatorID)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	httputil.JSON(w, http.StatusOK, docs)
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := httputil.CreatorID(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	docID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.service.RemoveDocument(r.Context(), creatorID, docID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.Error(w, http.StatusNotFound, "document not found")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
