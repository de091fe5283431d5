package imports

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/handlers"
	"github.com/fintrack/backend/internal/httpx"
	"github.com/fintrack/backend/internal/middleware"
	"github.com/fintrack/backend/internal/statement"
	"github.com/fintrack/backend/internal/storage"
)

// multipart framing allowance on top of the PDF itself
const uploadOverhead = 1 << 20

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// POST /api/v1/imports/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	_, pdf, err := readUpload(w, r)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	res, err := h.svc.Analyze(r.Context(), middleware.AccountFromCtx(r.Context()), pdf)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.OK(w, res)
}

// POST /api/v1/imports
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	name, pdf, err := readUpload(w, r)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	imp, err := h.svc.Create(r.Context(), middleware.OwnerFromCtx(r.Context()), name, pdf)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Item(w, http.StatusAccepted, "Statement import queued", imp)
}

// GET /api/v1/imports
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := handlers.ParseListQuery(r.URL.Query(), []string{"status"})
	page, err := h.svc.List(r.Context(), middleware.OwnerFromCtx(r.Context()), q)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.List(w, page.Items, httpx.NewPagination(page.Page, page.Limit, page.Total))
}

// GET /api/v1/imports/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r)
	if !ok {
		return
	}
	imp, err := h.svc.Get(r.Context(), middleware.OwnerFromCtx(r.Context()), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.Item(w, http.StatusOK, "", imp)
}

// GET /api/v1/imports/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r)
	if !ok {
		return
	}
	url, err := h.svc.DownloadURL(r.Context(), middleware.OwnerFromCtx(r.Context()), id)
	if err != nil {
		httpx.Error(w, h.log, err)
		return
	}
	httpx.OK(w, map[string]any{
		"url":       url,
		"expiresIn": int(storage.DownloadTTL.Seconds()),
	})
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, statement.MaxPDFBytes+uploadOverhead)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", nil, common.NewValidationError(fmt.Sprintf("file exceeds %d bytes", statement.MaxPDFBytes))
		}
		return "", nil, common.NewValidationError(`multipart field "file" is required`)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, statement.MaxPDFBytes+1))
	if err != nil {
		return "", nil, common.NewValidationError("could not read uploaded file")
	}
	return hdr.Filename, data, nil
}
