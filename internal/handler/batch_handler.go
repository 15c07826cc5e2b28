package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"github.com/kursadbilgin/batch-lifecycle/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type BatchService interface {
	Create(ctx context.Context, b *domain.Batch) (*domain.Batch, error)
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Batch, int64, error)
	History(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error)
	ApplyManualTransition(ctx context.Context, id string, target domain.Status) (*domain.Batch, *domain.StatusHistoryEntry, error)
	SetAutoUpdate(ctx context.Context, id string, enabled bool) (*domain.Batch, error)
	Rollback(ctx context.Context, id string) (*domain.Batch, *domain.StatusHistoryEntry, error)
	GetStatus(ctx context.Context, id string) (*service.StatusView, error)
	GetNextAction(ctx context.Context, id string) (*service.NextActionView, error)
	GetRollbackEligibility(ctx context.Context, id string) (*service.RollbackEligibilityView, error)
	AssignTeacher(ctx context.Context, id, teacherID string) error
	RemoveTeacher(ctx context.Context, id, teacherID string) error
	ListTeachers(ctx context.Context, id string) ([]string, error)
}

type BatchHandler struct {
	service BatchService
}

func NewBatchHandler(service BatchService) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService) error {
	h, err := NewBatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/batches", h.CreateBatch)
	v1.Get("/batches", h.ListBatches)
	v1.Get("/batches/:id", h.GetBatch)
	v1.Get("/batches/:id/status", h.GetStatus)
	v1.Get("/batches/:id/next-action", h.GetNextAction)
	v1.Get("/batches/:id/rollback-eligibility", h.GetRollbackEligibility)
	v1.Get("/batches/:id/history", h.GetHistory)
	v1.Post("/batches/:id/transition", h.ApplyTransition)
	v1.Post("/batches/:id/auto-update", h.SetAutoUpdate)
	v1.Post("/batches/:id/rollback", h.Rollback)
	v1.Get("/batches/:id/teachers", h.ListTeachers)
	v1.Put("/batches/:id/teachers/:teacherId", h.AssignTeacher)
	v1.Delete("/batches/:id/teachers/:teacherId", h.RemoveTeacher)

	return nil
}

type createBatchRequest struct {
	CourseID            string    `json:"courseId"`
	Name                string    `json:"name"`
	EnrollmentStartDate time.Time `json:"enrollmentStartDate"`
	EnrollmentEndDate   time.Time `json:"enrollmentEndDate"`
	BatchStartDate      time.Time `json:"batchStartDate"`
	BatchEndDate        time.Time `json:"batchEndDate"`
	MaxStudents         int       `json:"maxStudents"`
	EnrollmentCount     int       `json:"enrollmentCount"`
}

type transitionRequest struct {
	TargetStatus string `json:"targetStatus"`
}

type autoUpdateRequest struct {
	Enabled *bool `json:"enabled"`
}

type batchResponse struct {
	ID                  string    `json:"id"`
	CourseID            string    `json:"courseId"`
	Name                string    `json:"name"`
	Status              string    `json:"status"`
	EnrollmentStartDate time.Time `json:"enrollmentStartDate"`
	EnrollmentEndDate   time.Time `json:"enrollmentEndDate"`
	BatchStartDate      time.Time `json:"batchStartDate"`
	BatchEndDate        time.Time `json:"batchEndDate"`
	MaxStudents         int       `json:"maxStudents"`
	EnrollmentCount     int       `json:"enrollmentCount"`
	IsAutoUpdated       bool      `json:"isAutoUpdated"`
	CreatedAt           time.Time `json:"createdAt,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt,omitempty"`
}

type historyEntryResponse struct {
	Seq         int64     `json:"seq,omitempty"`
	Status      string    `json:"status"`
	IsAutomatic bool      `json:"isAutomatic"`
	IsRollback  bool      `json:"isRollback,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

type transitionResponse struct {
	ID            string                `json:"id"`
	Status        string                `json:"status"`
	IsAutoUpdated bool                  `json:"isAutoUpdated"`
	LastHistory   *historyEntryResponse `json:"lastHistory,omitempty"`
}

type statusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	IsAutoUpdated bool   `json:"isAutoUpdated"`
	Progress      int    `json:"progress"`
}

type nextActionResponse struct {
	ID          string  `json:"id"`
	Target      *string `json:"target,omitempty"`
	Eligibility string  `json:"eligibility"`
	Reason      string  `json:"reason,omitempty"`
}

type rollbackEligibilityResponse struct {
	ID         string  `json:"id"`
	Eligible   bool    `json:"eligible"`
	RestoresTo *string `json:"restoresTo,omitempty"`
}

type listBatchesResponse struct {
	Data []batchResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *BatchHandler) CreateBatch(c *fiber.Ctx) error {
	var req createBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	batch := domain.Batch{
		CourseID:            strings.TrimSpace(req.CourseID),
		Name:                strings.TrimSpace(req.Name),
		EnrollmentStartDate: req.EnrollmentStartDate,
		EnrollmentEndDate:   req.EnrollmentEndDate,
		BatchStartDate:      req.BatchStartDate,
		BatchEndDate:        req.BatchEndDate,
		MaxStudents:         req.MaxStudents,
		EnrollmentCount:     req.EnrollmentCount,
	}

	created, err := h.service.Create(c.Context(), &batch)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toBatchResponse(created))
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	batch, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func (h *BatchHandler) ListBatches(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	batches, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]batchResponse, 0, len(batches))
	for i := range batches {
		data = append(data, toBatchResponse(&batches[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listBatchesResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *BatchHandler) GetStatus(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	view, err := h.service.GetStatus(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(statusResponse{
		ID:            view.BatchID,
		Status:        view.Status.String(),
		IsAutoUpdated: view.IsAutoUpdated,
		Progress:      view.Progress,
	})
}

func (h *BatchHandler) GetNextAction(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	view, err := h.service.GetNextAction(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	resp := nextActionResponse{
		ID:          view.BatchID,
		Eligibility: string(view.Eligibility),
		Reason:      view.Reason,
	}
	if view.Target != nil {
		target := view.Target.String()
		resp.Target = &target
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *BatchHandler) GetRollbackEligibility(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	view, err := h.service.GetRollbackEligibility(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	resp := rollbackEligibilityResponse{
		ID:       view.BatchID,
		Eligible: view.Eligible,
	}
	if view.RestoresTo != nil {
		restoresTo := view.RestoresTo.String()
		resp.RestoresTo = &restoresTo
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *BatchHandler) GetHistory(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	entries, err := h.service.History(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]historyEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, toHistoryEntryResponse(&entries[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId": id,
		"history": data,
	})
}

func (h *BatchHandler) ApplyTransition(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	target, err := domain.ParseStatusFromString(req.TargetStatus)
	if err != nil {
		return toHTTPError(err)
	}

	batch, entry, err := h.service.ApplyManualTransition(c.Context(), id, target)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTransitionResponse(batch, entry))
}

func (h *BatchHandler) SetAutoUpdate(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req autoUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Enabled == nil {
		return toHTTPError(fmt.Errorf("%w: enabled is required", domain.ErrValidation))
	}

	batch, err := h.service.SetAutoUpdate(c.Context(), id, *req.Enabled)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTransitionResponse(batch, nil))
}

func (h *BatchHandler) Rollback(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	batch, entry, err := h.service.Rollback(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTransitionResponse(batch, entry))
}

func (h *BatchHandler) ListTeachers(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	teachers, err := h.service.ListTeachers(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"batchId":  id,
		"teachers": teachers,
	})
}

func (h *BatchHandler) AssignTeacher(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	teacherID := strings.TrimSpace(c.Params("teacherId"))

	if err := h.service.AssignTeacher(c.Context(), id, teacherID); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

func (h *BatchHandler) RemoveTeacher(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	teacherID := strings.TrimSpace(c.Params("teacherId"))

	if err := h.service.RemoveTeacher(c.Context(), id, teacherID); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if courseID := strings.TrimSpace(c.Query("courseId")); courseID != "" {
		params.CourseID = &courseID
	}

	return params, nil
}

func toBatchResponse(b *domain.Batch) batchResponse {
	if b == nil {
		return batchResponse{}
	}

	return batchResponse{
		ID:                  b.ID,
		CourseID:            b.CourseID,
		Name:                b.Name,
		Status:              b.Status.String(),
		EnrollmentStartDate: b.EnrollmentStartDate,
		EnrollmentEndDate:   b.EnrollmentEndDate,
		BatchStartDate:      b.BatchStartDate,
		BatchEndDate:        b.BatchEndDate,
		MaxStudents:         b.MaxStudents,
		EnrollmentCount:     b.EnrollmentCount,
		IsAutoUpdated:       b.IsAutoUpdated,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func toHistoryEntryResponse(e *domain.StatusHistoryEntry) historyEntryResponse {
	if e == nil {
		return historyEntryResponse{}
	}

	return historyEntryResponse{
		Seq:         e.Seq,
		Status:      e.Status.String(),
		IsAutomatic: e.IsAutomatic,
		IsRollback:  e.IsRollback,
		RecordedAt:  e.RecordedAt,
	}
}

func toTransitionResponse(b *domain.Batch, entry *domain.StatusHistoryEntry) transitionResponse {
	resp := transitionResponse{}
	if b != nil {
		resp.ID = b.ID
		resp.Status = b.Status.String()
		resp.IsAutoUpdated = b.IsAutoUpdated
	}
	if entry != nil {
		last := toHistoryEntryResponse(entry)
		resp.LastHistory = &last
	}
	return resp
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNoRollbackAvailable):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
