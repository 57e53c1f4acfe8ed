package posts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/pkg/httputil"
	"github.com/bissquit/post-scheduler/internal/pkg/i18n"
	"github.com/bissquit/post-scheduler/internal/timeframe"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrPostNotFound, Status: http.StatusNotFound, Message: "post not found"},
	{Error: ErrInvalidPost, Status: http.StatusBadRequest},
	{Error: ErrScheduleMismatch, Status: http.StatusBadRequest},
	{Error: ErrScheduleInPast, Status: http.StatusBadRequest},
	{Error: ErrInvalidFilter, Status: http.StatusBadRequest},
	{Error: ErrInvalidPagination, Status: http.StatusBadRequest},
	{Error: timeframe.ErrInvalidTimeFrame, Status: http.StatusBadRequest},
	{Error: timeframe.ErrInvalidTimeFrameParams, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for posts.
type Handler struct {
	service    *Service
	translator *i18n.Translator
	validator  *validator.Validate
}

// NewHandler creates a new posts handler.
func NewHandler(service *Service, translator *i18n.Translator) *Handler {
	return &Handler{
		service:    service,
		translator: translator,
		validator:  httputil.NewValidator(),
	}
}

// RegisterRoutes registers post routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.CreatePost)
		r.Post("/filter", h.FilterPosts)
		r.Post("/calendar/{timeFrame}", h.CalendarPosts)
		r.Get("/{id}", h.GetPost)
		r.Put("/{id}", h.UpdatePost)
		r.Delete("/{id}", h.DeletePost)
	})
}

// ImageRequest is the media of a post request.
type ImageRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// PostRequest represents the request body for creating or replacing a post.
type PostRequest struct {
	DataType         string       `json:"data_type" validate:"required,oneof=match player official"`
	TargetID         string       `json:"target_id" validate:"required"`
	Action           string       `json:"action" validate:"required,oneof=match_summary match_result toss_result match_scheduled player_birthday player_anniversary player_retirement official_birthday official_promotion official_achievement"`
	Networks         []string     `json:"networks" validate:"required,min=1,dive,oneof=social-media email"`
	Channels         []string     `json:"channels" validate:"required,min=1,dive,oneof=facebook instagram twitter"`
	Content          string       `json:"content" validate:"required"`
	Image            ImageRequest `json:"image"`
	ScheduleDate     string       `json:"schedule_date" validate:"omitempty,datetime=2006-01-02"`
	ScheduleTime     string       `json:"schedule_time" validate:"omitempty,datetime=15:04:05"`
	ScheduleDateTime string       `json:"schedule_date_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// ToInput converts the request to service input.
func (r *PostRequest) ToInput() (PostInput, error) {
	at, err := time.Parse(time.RFC3339, r.ScheduleDateTime)
	if err != nil {
		return PostInput{}, fmt.Errorf("%w: schedule_date_time %q", ErrInvalidPost, r.ScheduleDateTime)
	}

	networks := make([]domain.Network, len(r.Networks))
	for i, n := range r.Networks {
		networks[i] = domain.Network(n)
	}
	chs := make([]domain.Channel, len(r.Channels))
	for i, ch := range r.Channels {
		chs[i] = domain.Channel(ch)
	}

	return PostInput{
		DataType:         domain.DataType(r.DataType),
		TargetID:         r.TargetID,
		Action:           domain.Action(r.Action),
		Networks:         networks,
		Channels:         chs,
		Content:          r.Content,
		ImageURL:         r.Image.URL,
		ScheduleDate:     r.ScheduleDate,
		ScheduleTime:     r.ScheduleTime,
		ScheduleDateTime: at,
	}, nil
}

// FilterRequest represents the request body of a flat post search.
type FilterRequest struct {
	Filters Filter `json:"filters"`
}

// CalendarRequest represents the request body of a calendar window query.
type CalendarRequest struct {
	timeframe.Params
	Filters CalendarFilter `json:"filters"`
}

// CreatePost handles POST /posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodePost(w, r)
	if !ok {
		return
	}

	post, err := h.service.Create(r.Context(), input)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Message(w, http.StatusCreated, h.translator.FromRequest(r, i18n.PostCreated), post, nil)
}

// GetPost handles GET /posts/{id}.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Message(w, http.StatusOK, h.translator.FromRequest(r, i18n.PostFetched), post, nil)
}

// UpdatePost handles PUT /posts/{id}.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	input, ok := h.decodePost(w, r)
	if !ok {
		return
	}

	post, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Message(w, http.StatusOK, h.translator.FromRequest(r, i18n.PostUpdated), post, nil)
}

// DeletePost handles DELETE /posts/{id}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	post, err := h.service.Delete(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Message(w, http.StatusOK, h.translator.FromRequest(r, i18n.PostDeleted), post, nil)
}

// FilterPosts handles POST /posts/filter?page=&limit=.
func (h *Handler) FilterPosts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	var req FilterRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	posts, meta, err := h.service.QueryFiltered(r.Context(), req.Filters, page)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	key := i18n.PostsFetched
	if len(posts) == 0 {
		key = i18n.PostsNotFoundForFilter
	}
	httputil.Message(w, http.StatusOK, h.translator.FromRequest(r, key), posts, meta)
}

// CalendarPosts handles POST /posts/calendar/{timeFrame}?page=&limit=.
func (h *Handler) CalendarPosts(w http.ResponseWriter, r *http.Request) {
	frame, err := timeframe.ParseFrame(chi.URLParam(r, "timeFrame"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	var req CalendarRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	calendar, meta, err := h.service.QueryByWindow(r.Context(), frame, req.Params, req.Filters, page)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Message(w, http.StatusOK, h.translator.FromRequest(r, i18n.CalendarFiltersApplied), calendar, meta)
}

func (h *Handler) decodePost(w http.ResponseWriter, r *http.Request) (PostInput, bool) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return PostInput{}, false
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return PostInput{}, false
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return PostInput{}, false
	}
	return input, true
}

// decodeStrict decodes a search body, rejecting unknown keys. An empty body
// is treated as an empty search.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, fmt.Sprintf("invalid filter: %v", err))
		return false
	}
	return true
}

func postID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.Error(w, http.StatusNotFound, "post not found")
		return "", false
	}
	return id, true
}

func parsePage(r *http.Request) (Page, error) {
	page := Page{Number: DefaultPage, Size: DefaultPageSize}

	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return Page{}, fmt.Errorf("%w: page must be a positive integer", ErrInvalidPagination)
		}
		page.Number = parsed
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			return Page{}, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidPagination)
		}
		page.Size = parsed
	}

	return page, nil
}
