package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
	"github.com/kursadbilgin/batch-lifecycle/internal/lifecycle"
	"github.com/kursadbilgin/batch-lifecycle/internal/repository"
	"github.com/kursadbilgin/batch-lifecycle/internal/service"
	"github.com/kursadbilgin/batch-lifecycle/internal/transport"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestBatchIntegration_CreateBatch(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		createFn: func(ctx context.Context, b *domain.Batch) (*domain.Batch, error) {
			b.ID = "b-created"
			b.Status = domain.StatusUpcoming
			b.IsAutoUpdated = true
			b.Version = 1
			if err := b.Validate(); err != nil {
				return nil, err
			}
			return b, nil
		},
	}

	app := newBatchTestApp(t, svc)

	validBody := `{
		"courseId": "c-1",
		"name": "Go Backend Cohort",
		"enrollmentStartDate": "2024-01-01T00:00:00Z",
		"enrollmentEndDate": "2024-01-15T00:00:00Z",
		"batchStartDate": "2024-02-01T00:00:00Z",
		"batchEndDate": "2024-05-01T00:00:00Z",
		"maxStudents": 30
	}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/batches", validBody)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != "b-created" {
		t.Fatalf("id = %v, want b-created", created["id"])
	}
	if created["status"] != domain.StatusUpcoming.String() {
		t.Fatalf("status = %v, want %s", created["status"], domain.StatusUpcoming.String())
	}
	if created["isAutoUpdated"] != true {
		t.Fatalf("isAutoUpdated = %v, want true", created["isAutoUpdated"])
	}

	missingDatesBody := `{"courseId":"c-1","name":"No dates","maxStudents":30}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/batches", missingDatesBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing dates", resp.StatusCode)
	}
}

func TestBatchIntegration_GetBatch(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		getByIDFn: func(ctx context.Context, id string) (*domain.Batch, error) {
			if id == "b-found" {
				return stubStoredBatch("b-found", domain.StatusEnrolling), nil
			}
			return nil, domain.ErrNotFound
		},
	}

	app := newBatchTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/batches/b-found", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/batches/not-exists", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBatchIntegration_ApplyTransition(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		applyManualTransitionFn: func(ctx context.Context, id string, target domain.Status) (*domain.Batch, *domain.StatusHistoryEntry, error) {
			if target == domain.StatusCompleted {
				return nil, nil, fmt.Errorf("%w: UPCOMING may only move to ENROLLING", domain.ErrInvalidTransition)
			}
			b := stubStoredBatch(id, target)
			b.IsAutoUpdated = false
			entry := &domain.StatusHistoryEntry{
				Seq:         1,
				BatchID:     id,
				Status:      target,
				IsAutomatic: false,
				RecordedAt:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			}
			return b, entry, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/batches/b-1/transition", `{"targetStatus":"enrolling"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.StatusEnrolling.String() {
		t.Fatalf("status = %v, want %s", parsed["status"], domain.StatusEnrolling.String())
	}
	if parsed["isAutoUpdated"] != false {
		t.Fatalf("isAutoUpdated = %v, want false after manual override", parsed["isAutoUpdated"])
	}
	lastHistory, ok := parsed["lastHistory"].(map[string]any)
	if !ok {
		t.Fatalf("lastHistory missing in response: %s", string(body))
	}
	if lastHistory["isAutomatic"] != false {
		t.Fatalf("lastHistory.isAutomatic = %v, want false", lastHistory["isAutomatic"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/batches/b-1/transition", `{"targetStatus":"completed"}`)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for skipped state", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/batches/b-1/transition", `{"targetStatus":"archived"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status", resp.StatusCode)
	}
}

func TestBatchIntegration_SetAutoUpdate(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		setAutoUpdateFn: func(ctx context.Context, id string, enabled bool) (*domain.Batch, error) {
			b := stubStoredBatch(id, domain.StatusEnrolling)
			b.IsAutoUpdated = enabled
			return b, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/batches/b-1/auto-update", `{"enabled":true}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["isAutoUpdated"] != true {
		t.Fatalf("isAutoUpdated = %v, want true", parsed["isAutoUpdated"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/batches/b-1/auto-update", `{}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 when enabled is missing", resp.StatusCode)
	}
}

func TestBatchIntegration_Rollback(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		rollbackFn: func(ctx context.Context, id string) (*domain.Batch, *domain.StatusHistoryEntry, error) {
			if id != "b-rollbackable" {
				return nil, nil, fmt.Errorf("%w: last transition was automatic", domain.ErrNoRollbackAvailable)
			}
			b := stubStoredBatch(id, domain.StatusEnrolling)
			entry := &domain.StatusHistoryEntry{
				Seq:        3,
				BatchID:    id,
				Status:     domain.StatusEnrolling,
				IsRollback: true,
				RecordedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
			}
			return b, entry, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/batches/b-rollbackable/rollback", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	lastHistory, ok := parsed["lastHistory"].(map[string]any)
	if !ok {
		t.Fatalf("lastHistory missing in response: %s", string(body))
	}
	if lastHistory["isRollback"] != true {
		t.Fatalf("lastHistory.isRollback = %v, want true", lastHistory["isRollback"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/batches/b-auto/rollback", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 when no rollback is available", resp.StatusCode)
	}
}

func TestBatchIntegration_GetStatus(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		getStatusFn: func(ctx context.Context, id string) (*service.StatusView, error) {
			return &service.StatusView{
				BatchID:       id,
				Status:        domain.StatusOngoing,
				IsAutoUpdated: true,
				Progress:      50,
			}, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/batches/b-1/status", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.StatusOngoing.String() {
		t.Fatalf("status = %v, want %s", parsed["status"], domain.StatusOngoing.String())
	}
	if parsed["progress"] != float64(50) {
		t.Fatalf("progress = %v, want 50", parsed["progress"])
	}
}

func TestBatchIntegration_GetNextAction(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		getNextActionFn: func(ctx context.Context, id string) (*service.NextActionView, error) {
			target := domain.StatusOngoing
			return &service.NextActionView{
				BatchID:     id,
				Target:      &target,
				Eligibility: lifecycle.EligibilityBlocked,
				Reason:      "no teachers assigned",
			}, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/batches/b-1/next-action", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["eligibility"] != string(lifecycle.EligibilityBlocked) {
		t.Fatalf("eligibility = %v, want BLOCKED", parsed["eligibility"])
	}
	if parsed["target"] != domain.StatusOngoing.String() {
		t.Fatalf("target = %v, want ONGOING", parsed["target"])
	}
	if parsed["reason"] != "no teachers assigned" {
		t.Fatalf("reason = %v, want no teachers assigned", parsed["reason"])
	}
}

func TestBatchIntegration_GetRollbackEligibility(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		getRollbackEligibilityFn: func(ctx context.Context, id string) (*service.RollbackEligibilityView, error) {
			restoresTo := domain.StatusEnrolling
			return &service.RollbackEligibilityView{
				BatchID:    id,
				Eligible:   true,
				RestoresTo: &restoresTo,
			}, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/batches/b-1/rollback-eligibility", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["eligible"] != true {
		t.Fatalf("eligible = %v, want true", parsed["eligible"])
	}
	if parsed["restoresTo"] != domain.StatusEnrolling.String() {
		t.Fatalf("restoresTo = %v, want ENROLLING", parsed["restoresTo"])
	}
}

func TestBatchIntegration_GetHistory(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		historyFn: func(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error) {
			return []domain.StatusHistoryEntry{
				{Seq: 1, BatchID: id, Status: domain.StatusEnrolling, IsAutomatic: true, RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Seq: 2, BatchID: id, Status: domain.StatusOngoing, IsAutomatic: false, RecordedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/batches/b-1/history", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		BatchID string           `json:"batchId"`
		History []map[string]any `json:"history"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.History) != 2 {
		t.Fatalf("history len = %d, want 2", len(parsed.History))
	}
	if parsed.History[0]["status"] != domain.StatusEnrolling.String() {
		t.Fatalf("first entry status = %v, want ENROLLING", parsed.History[0]["status"])
	}
}

func TestBatchIntegration_ListBatchesPaginationAndFilters(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.Batch, int64, error) {
			if params.Page != 2 {
				t.Fatalf("page = %d, want 2", params.Page)
			}
			if params.PageSize != 10 {
				t.Fatalf("pageSize = %d, want 10", params.PageSize)
			}
			if params.Status == nil || *params.Status != domain.StatusEnrolling {
				t.Fatalf("status filter = %v, want ENROLLING", params.Status)
			}
			if params.CourseID == nil || *params.CourseID != "c-42" {
				t.Fatalf("courseId filter = %v, want c-42", params.CourseID)
			}
			return []domain.Batch{*stubStoredBatch("b-list-1", domain.StatusEnrolling)}, 1, nil
		},
	}

	app := newBatchTestApp(t, svc)

	path := "/v1/batches?page=2&pageSize=10&status=enrolling&courseId=c-42"
	resp, body := performRequest(t, app, http.MethodGet, path, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Page     int   `json:"page"`
			PageSize int   `json:"pageSize"`
			Total    int64 `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Meta.Page != 2 || parsed.Meta.PageSize != 10 || parsed.Meta.Total != 1 {
		t.Fatalf("meta = %+v, want page=2,pageSize=10,total=1", parsed.Meta)
	}
	if len(parsed.Data) != 1 {
		t.Fatalf("data len = %d, want 1", len(parsed.Data))
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/batches?page=0", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for page < 1", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/batches?status=archived", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status filter", resp.StatusCode)
	}
}

func TestBatchIntegration_TeacherRoster(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		assignTeacherFn: func(ctx context.Context, id, teacherID string) error {
			if id == "not-exists" {
				return domain.ErrNotFound
			}
			return nil
		},
		removeTeacherFn: func(ctx context.Context, id, teacherID string) error {
			if teacherID == "t-unassigned" {
				return fmt.Errorf("%w: teacher not assigned to batch", domain.ErrNotFound)
			}
			return nil
		},
		listTeachersFn: func(ctx context.Context, id string) ([]string, error) {
			return []string{"t-1", "t-2"}, nil
		},
	}

	app := newBatchTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodPut, "/v1/batches/b-1/teachers/t-1", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPut, "/v1/batches/not-exists/teachers/t-1", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for missing batch", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodDelete, "/v1/batches/b-1/teachers/t-unassigned", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unassigned teacher", resp.StatusCode)
	}

	resp, body := performRequest(t, app, http.MethodGet, "/v1/batches/b-1/teachers", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Teachers []string `json:"teachers"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed.Teachers) != 2 {
		t.Fatalf("teachers len = %d, want 2", len(parsed.Teachers))
	}
}

func TestBatchIntegration_StoreUnavailable(t *testing.T) {
	t.Parallel()

	svc := &stubBatchService{
		getByIDFn: func(ctx context.Context, id string) (*domain.Batch, error) {
			return nil, fmt.Errorf("%w: get batch: context deadline exceeded", domain.ErrStoreUnavailable)
		},
	}

	app := newBatchTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/batches/b-1", "")
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when the store is unreachable", resp.StatusCode)
	}
}

func TestHealthIntegration_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sql.OpenDB(stubConnector{}), newStubRedisClient(nil))

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when dependencies down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
	})
}

func stubStoredBatch(id string, status domain.Status) *domain.Batch {
	return &domain.Batch{
		ID:                  id,
		CourseID:            "c-1",
		Name:                "Go Backend Cohort",
		Status:              status,
		EnrollmentStartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EnrollmentEndDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		BatchStartDate:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		BatchEndDate:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		MaxStudents:         30,
		IsAutoUpdated:       true,
		Version:             1,
	}
}

type stubBatchService struct {
	createFn                 func(ctx context.Context, b *domain.Batch) (*domain.Batch, error)
	getByIDFn                func(ctx context.Context, id string) (*domain.Batch, error)
	listFn                   func(ctx context.Context, params repository.ListParams) ([]domain.Batch, int64, error)
	historyFn                func(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error)
	applyManualTransitionFn  func(ctx context.Context, id string, target domain.Status) (*domain.Batch, *domain.StatusHistoryEntry, error)
	setAutoUpdateFn          func(ctx context.Context, id string, enabled bool) (*domain.Batch, error)
	rollbackFn               func(ctx context.Context, id string) (*domain.Batch, *domain.StatusHistoryEntry, error)
	getStatusFn              func(ctx context.Context, id string) (*service.StatusView, error)
	getNextActionFn          func(ctx context.Context, id string) (*service.NextActionView, error)
	getRollbackEligibilityFn func(ctx context.Context, id string) (*service.RollbackEligibilityView, error)
	assignTeacherFn          func(ctx context.Context, id, teacherID string) error
	removeTeacherFn          func(ctx context.Context, id, teacherID string) error
	listTeachersFn           func(ctx context.Context, id string) ([]string, error)
}

func (s *stubBatchService) Create(ctx context.Context, b *domain.Batch) (*domain.Batch, error) {
	if s.createFn != nil {
		return s.createFn(ctx, b)
	}
	return nil, errors.New("not implemented")
}

func (s *stubBatchService) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubBatchService) List(ctx context.Context, params repository.ListParams) ([]domain.Batch, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubBatchService) History(ctx context.Context, id string) ([]domain.StatusHistoryEntry, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, id)
	}
	return nil, nil
}

func (s *stubBatchService) ApplyManualTransition(
	ctx context.Context,
	id string,
	target domain.Status,
) (*domain.Batch, *domain.StatusHistoryEntry, error) {
	if s.applyManualTransitionFn != nil {
		return s.applyManualTransitionFn(ctx, id, target)
	}
	return nil, nil, errors.New("not implemented")
}

func (s *stubBatchService) SetAutoUpdate(ctx context.Context, id string, enabled bool) (*domain.Batch, error) {
	if s.setAutoUpdateFn != nil {
		return s.setAutoUpdateFn(ctx, id, enabled)
	}
	return nil, errors.New("not implemented")
}

func (s *stubBatchService) Rollback(ctx context.Context, id string) (*domain.Batch, *domain.StatusHistoryEntry, error) {
	if s.rollbackFn != nil {
		return s.rollbackFn(ctx, id)
	}
	return nil, nil, errors.New("not implemented")
}

func (s *stubBatchService) GetStatus(ctx context.Context, id string) (*service.StatusView, error) {
	if s.getStatusFn != nil {
		return s.getStatusFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubBatchService) GetNextAction(ctx context.Context, id string) (*service.NextActionView, error) {
	if s.getNextActionFn != nil {
		return s.getNextActionFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubBatchService) GetRollbackEligibility(ctx context.Context, id string) (*service.RollbackEligibilityView, error) {
	if s.getRollbackEligibilityFn != nil {
		return s.getRollbackEligibilityFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubBatchService) AssignTeacher(ctx context.Context, id, teacherID string) error {
	if s.assignTeacherFn != nil {
		return s.assignTeacherFn(ctx, id, teacherID)
	}
	return nil
}

func (s *stubBatchService) RemoveTeacher(ctx context.Context, id, teacherID string) error {
	if s.removeTeacherFn != nil {
		return s.removeTeacherFn(ctx, id, teacherID)
	}
	return nil
}

func (s *stubBatchService) ListTeachers(ctx context.Context, id string) ([]string, error) {
	if s.listTeachersFn != nil {
		return s.listTeachersFn(ctx, id)
	}
	return nil, nil
}

func newBatchTestApp(t *testing.T, svc BatchService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterBatchRoutes(app, svc); err != nil {
		t.Fatalf("RegisterBatchRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") {
			if h.pingErr != nil {
				cmd.SetErr(h.pingErr)
				return h.pingErr
			}
			cmd.SetErr(nil)
			return nil
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
