package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/models"
	"github.com/fintrack/backend/internal/repository"
)

// Store is the owner-scoped persistence a Resource serves.
type Store[T any] interface {
	Get(ctx context.Context, owner models.Owner, id uuid.UUID) (*T, error)
	Create(ctx context.Context, owner models.Owner, item *T) (*T, error)
	Update(ctx context.Context, owner models.Owner, id uuid.UUID, item *T) (*T, error)
	Delete(ctx context.Context, owner models.Owner, id uuid.UUID) error
	List(ctx context.Context, owner models.Owner, q repository.ListQuery) (*repository.Page[T], error)
}

// Resource serves list/create/get/update/delete for one record type.
// The owner always comes from the request context, never from the body.
type Resource[T any] struct {
	Store Store[T]
	// Noun is used in success messages, e.g. "Transaction".
	Noun string
	// Filters are the query parameters forwarded to the store.
	Filters []string
	// New returns a record carrying create-time defaults. Defaults to new(T).
	New func() *T
	// Validate normalizes and checks a decoded record.
	Validate func(*T) error
	// Protect resets server-owned fields after decoding. existing is nil on create.
	Protect func(item, existing *T)
	// Clone deep-copies a stored record before a body is merged onto it.
	// Required when T has pointer fields; defaults to a shallow copy.
	Clone  func(*T) *T
	Logger *slog.Logger
}

// --- GET /api/v1/{resource} ---

func (h *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	q := ParseListQuery(r.URL.Query(), h.Filters)
	page, err := h.Store.List(r.Context(), middleware.OwnerFromCtx(r.Context()), q)
	if err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	httpx.List(w, page.Items, httpx.NewPagination(page.Page, page.Limit, page.Total))
}

// --- POST /api/v1/{resource} ---

func (h *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	item := new(T)
	if h.New != nil {
		item = h.New()
	}
	if err := httpx.DecodeJSON(r, item); err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	if h.Protect != nil {
		h.Protect(item, nil)
	}
	if err := h.validate(item); err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	created, err := h.Store.Create(r.Context(), middleware.OwnerFromCtx(r.Context()), item)
	if err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	httpx.Item(w, http.StatusCreated, h.Noun+" created successfully", created)
}

// --- GET /api/v1/{resource}/{id} ---

func (h *Resource[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r)
	if !ok {
		return
	}
	item, err := h.Store.Get(r.Context(), middleware.OwnerFromCtx(r.Context()), id)
	if err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	httpx.Item(w, http.StatusOK, "", item)
}

// --- PUT /api/v1/{resource}/{id} ---

// Update merges the body onto the stored record, so omitted fields keep
// their current values.
func (h *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r)
	if !ok {
		return
	}
	owner := middleware.OwnerFromCtx(r.Context())
	existing, err := h.Store.Get(r.Context(), owner, id)
	if err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	item := h.clone(existing)
	if err := httpx.DecodeJSON(r, item); err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	if h.Protect != nil {
		h.Protect(item, existing)
	}
	if err := h.validate(item); err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	updated, err := h.Store.Update(r.Context(), owner, id, item)
	if err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	httpx.Item(w, http.StatusOK, h.Noun+" updated successfully", updated)
}

// --- DELETE /api/v1/{resource}/{id} ---

func (h *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.Delete(r.Context(), middleware.OwnerFromCtx(r.Context()), id); err != nil {
		httpx.Error(w, h.Logger, err)
		return
	}
	httpx.Message(w, http.StatusOK, h.Noun+" deleted successfully")
}

func (h *Resource[T]) clone(item *T) *T {
	if h.Clone != nil {
		return h.Clone(item)
	}
	c := *item
	return &c
}

func (h *Resource[T]) validate(item *T) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate(item)
}

// ParseListQuery reads page, limit, sortBy, sortOrder and the named filters.
// Malformed page or limit values fall back to the defaults.
func ParseListQuery(v url.Values, filters []string) repository.ListQuery {
	q := repository.ListQuery{
		SortBy:   v.Get("sortBy"),
		SortDesc: !strings.EqualFold(v.Get("sortOrder"), "asc"),
		Filters:  make(map[string]string, len(filters)),
	}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Limit, _ = strconv.Atoi(v.Get("limit"))
	for _, f := range filters {
		if val := strings.TrimSpace(v.Get(f)); val != "" {
			q.Filters[f] = val
		}
	}
	return q
}

// PathID reads the {id} path value, answering 400 when it is not a UUID.
func PathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.Error(w, nil, common.NewValidationError("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
