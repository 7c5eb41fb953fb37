package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lifedash-api/internal/model"
	"lifedash-api/internal/repository"
	"lifedash-api/internal/service"
	"lifedash-api/pkg/apierror"
	"lifedash-api/pkg/response"
	"lifedash-api/pkg/validate"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// TrackerHandler handles event, exam and note HTTP requests.
type TrackerHandler struct {
	tracker *service.TrackerService
	logger  *zap.Logger
}

// NewTrackerHandler creates a new tracker handler.
func NewTrackerHandler(tracker *service.TrackerService, logger *zap.Logger) *TrackerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackerHandler{tracker: tracker, logger: logger.Named("handler")}
}

type createEventRequest struct {
	Type            string     `json:"type" validate:"required,oneof=sport work meal sleep study leisure social weight hydration other"`
	Name            string     `json:"name" validate:"required,max=255"`
	OccurredAt      *time.Time `json:"occurred_at"`
	DurationMinutes int        `json:"duration_minutes" validate:"min=0,max=1440"`
	Notes           string     `json:"notes" validate:"max=2000"`
}

type createExamRequest struct {
	Name               string    `json:"name" validate:"required,max=255"`
	Subject            string    `json:"subject" validate:"max=255"`
	ExamDate           time.Time `json:"exam_date" validate:"required"`
	Location           string    `json:"location" validate:"max=255"`
	Notes              string    `json:"notes" validate:"max=2000"`
	ReminderDaysBefore *int      `json:"reminder_days_before" validate:"omitempty,min=0,max=365"`
}

type createNoteRequest struct {
	Title    string   `json:"title" validate:"required,max=255"`
	Content  string   `json:"content" validate:"max=20000"`
	Category string   `json:"category" validate:"max=128"`
	Tags     []string `json:"tags" validate:"max=20,dive,required,max=64,excludes=0x2C"`
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierror.BadRequest("invalid JSON body: " + err.Error())
	}
	return validate.Struct(dst)
}

func pageFromQuery(r *http.Request) (model.Page, error) {
	var page model.Page
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, apierror.BadRequest("page must be a positive integer")
		}
		page.Number = n
	}
	if v := q.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return page, apierror.BadRequest("per_page must be a positive integer")
		}
		page.PerPage = n
	}
	return page.Normalize(), nil
}

func timeFromQuery(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, apierror.BadRequest(name + " must be RFC3339 or YYYY-MM-DD")
}

func idFromURL(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apierror.BadRequest("id must be a positive integer")
	}
	return id, nil
}

// fail writes err, mapping store sentinels to API errors.
func (h *TrackerHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(w, apierror.NotFound(""))
		return
	}
	if _, ok := apierror.As(err); !ok {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	response.Error(w, err)
}

// CreateEvent handles POST /api/v1/events
func (h *TrackerHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	created, err := h.tracker.CreateEvent(r.Context(), model.Event{
		Type:            model.EventType(req.Type),
		Name:            strings.TrimSpace(req.Name),
		OccurredAt:      occurredAt,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, created)
}

// ListEvents handles GET /api/v1/events?type=&from=&to=&page=&per_page=
func (h *TrackerHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	from, err := timeFromQuery(r, "from")
	if err != nil {
		response.Error(w, err)
		return
	}
	to, err := timeFromQuery(r, "to")
	if err != nil {
		response.Error(w, err)
		return
	}

	eventType := model.EventType(r.URL.Query().Get("type"))
	if eventType != "" && !eventType.Valid() {
		response.Error(w, apierror.BadRequest("unknown event type"))
		return
	}

	list, err := h.tracker.ListEvents(r.Context(), model.EventFilter{Type: eventType, From: from, To: to, Page: page})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.List(w, list)
}

// DeleteEvent handles DELETE /api/v1/events/{id}
func (h *TrackerHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.tracker.DeleteEvent(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// CreateExam handles POST /api/v1/exams
func (h *TrackerHandler) CreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	reminder := 1
	if req.ReminderDaysBefore != nil {
		reminder = *req.ReminderDaysBefore
	}

	created, err := h.tracker.CreateExam(r.Context(), model.Exam{
		Name:               strings.TrimSpace(req.Name),
		Subject:            req.Subject,
		ExamDate:           req.ExamDate,
		Location:           req.Location,
		Notes:              req.Notes,
		ReminderDaysBefore: reminder,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, created)
}

// ListExams handles GET /api/v1/exams?upcoming=true
func (h *TrackerHandler) ListExams(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	upcoming := false
	if v := r.URL.Query().Get("upcoming"); v != "" {
		upcoming, err = strconv.ParseBool(v)
		if err != nil {
			response.Error(w, apierror.BadRequest("upcoming must be a boolean"))
			return
		}
	}

	list, err := h.tracker.ListExams(r.Context(), upcoming, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.List(w, list)
}

// DeleteExam handles DELETE /api/v1/exams/{id}
func (h *TrackerHandler) DeleteExam(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.tracker.DeleteExam(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// CreateNote handles POST /api/v1/notes
func (h *TrackerHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	created, err := h.tracker.CreateNote(r.Context(), model.Note{
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, created)
}

// ListNotes handles GET /api/v1/notes?category=&q=
func (h *TrackerHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	list, err := h.tracker.ListNotes(r.Context(), model.NoteFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
		Page:     page,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.List(w, list)
}

// DeleteNote handles DELETE /api/v1/notes/{id}
func (h *TrackerHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.tracker.DeleteNote(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w)
}
