package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/pkg/logger"
)

// IdempotencyHeader carries the client key that dedupes repeated creates.
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes bounds entity request bodies.
const maxBodyBytes = 1 << 20

// EntityHandler serves reads and writes on the four collections.
type EntityHandler struct {
	responder
	deps EntityDependencies
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(deps EntityDependencies, log logger.Logger) *EntityHandler {
	return &EntityHandler{responder: responder{log: log}, deps: deps}
}

// HandleList handles GET /{kind} requests.
func (h *EntityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_entities"
	kind, err := model.ParseKind(r.PathValue("kind"))
	if err != nil {
		h.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.List(r.Context(), kind)
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /{kind}/{id} requests.
func (h *EntityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_entity"
	kind, err := model.ParseKind(r.PathValue("kind"))
	if err != nil {
		h.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	e, err := h.deps.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleCreate handles POST /{kind} requests. A repeated Idempotency-Key
// answers 200 with the entity created by the first request.
func (h *EntityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_entity"
	e, err := decodeEntity(w, r)
	if err != nil {
		h.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	created, replayed, err := h.deps.Create(r.Context(), e, key)
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, created)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /{kind}/{id} requests. The path id wins over
// any id in the body.
func (h *EntityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_entity"
	e, err := decodeEntity(w, r)
	if err != nil {
		h.fail(r, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	e.SetID(r.PathValue("id"))
	updated, err := h.deps.Update(r.Context(), e)
	if err != nil {
		h.fail(r, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func decodeEntity(w http.ResponseWriter, r *http.Request) (model.Entity, error) {
	kind, err := model.ParseKind(r.PathValue("kind"))
	if err != nil {
		return nil, err
	}
	e, err := model.New(kind)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(e); err != nil {
		return nil, err
	}
	return e, nil
}
