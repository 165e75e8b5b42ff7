package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/koda/internal/model"
	"github.com/erazemk/koda/internal/service"
)

// CodesHandler handles code CRUD and rendering endpoints.
type CodesHandler struct {
	Service *service.Service
}

type createStaticRequest struct {
	Content     string       `json:"content"`
	Tier        string       `json:"ec_tier"`
	Style       *model.Style `json:"style"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
}

type createDynamicRequest struct {
	Destination string       `json:"destination"`
	Tier        string       `json:"ec_tier"`
	Style       *model.Style `json:"style"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
}

// updateCodeRequest uses pointers so absent fields are left alone and
// present-but-frozen fields can be rejected rather than ignored.
type updateCodeRequest struct {
	Destination *string `json:"destination"`
	Title       *string `json:"title"`
	Description *string `json:"description"`

	Kind       *string `json:"kind"`
	Payload    *string `json:"payload"`
	Tier       *string `json:"ec_tier"`
	Foreground *string `json:"fg_color"`
	Background *string `json:"bg_color"`
	Scale      *int    `json:"scale"`
	Border     *int    `json:"border"`
	Shape      *string `json:"shape"`
}

// CreateStatic handles POST /api/codes/static.
func (h *CodesHandler) CreateStatic(w http.ResponseWriter, r *http.Request) {
	var req createStaticRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.Service.CreateStatic(r.Context(), service.CreateStaticParams{
		Content:     req.Content,
		Tier:        req.Tier,
		Style:       req.Style,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, code)
}

// CreateDynamic handles POST /api/codes/dynamic.
func (h *CodesHandler) CreateDynamic(w http.ResponseWriter, r *http.Request) {
	var req createDynamicRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.Service.CreateDynamic(r.Context(), service.CreateDynamicParams{
		Destination: req.Destination,
		Tier:        req.Tier,
		Style:       req.Style,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, code)
}

// List handles GET /api/codes.
func (h *CodesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.CodeFilter{
		Kind:      q.Get("kind"),
		Search:    q.Get("q"),
		SortBy:    q.Get("sort"),
		Ascending: q.Get("order") == "asc",
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	codes, total, err := h.Service.List(r.Context(), filter)
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"codes": codes,
		"total": total,
	})
}

// Get handles GET /api/codes/{id}.
func (h *CodesHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, code)
}

// Update handles PUT /api/codes/{id}.
func (h *CodesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.Service.Update(r.Context(), r.PathValue("id"), service.UpdateParams{
		Destination: req.Destination,
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Payload:     req.Payload,
		Tier:        req.Tier,
		Foreground:  req.Foreground,
		Background:  req.Background,
		Scale:       req.Scale,
		Border:      req.Border,
		Shape:       req.Shape,
	})
	if err != nil {
		serviceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, code)
}

// Delete handles DELETE /api/codes/{id}.
func (h *CodesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), r.PathValue("id")); err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "code deleted"})
}

// Image handles GET /api/codes/{id}/image.
func (h *CodesHandler) Image(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.RenderParams{Format: q.Get("format")}
	for _, opt := range []struct {
		name   string
		target *int
	}{
		{"scale", &params.Scale},
		{"border", &params.Border},
		{"quality", &params.Quality},
	} {
		v := q.Get(opt.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid "+opt.name)
			return
		}
		*opt.target = n
	}

	data, contentType, err := h.Service.RenderCode(r.Context(), r.PathValue("id"), params)
	if err != nil {
		serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// Scans handles GET /api/codes/{id}/scans.
func (h *CodesHandler) Scans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since time.Time
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = t
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := h.Service.ScanEvents(r.Context(), r.PathValue("id"), since, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, events)
}
