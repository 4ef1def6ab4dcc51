package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/service"
	"github.com/phrazzld/tasknotify/internal/service/auth"
	"github.com/stretchr/testify/require"
)

var testUserID = uuid.MustParse("8a1d3c2e-0c6f-4a5b-9f33-1c2d3e4f5a6b")

const testUsername = "alice"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withTestIdentity stands in for the auth middleware.
func withTestIdentity(next http.Handler) http.Handler {
	return withTestRole(auth.RoleUser)(next)
}

// withTestRole is withTestIdentity for a caller holding role.
func withTestRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.WithIdentity(r.Context(), testUserID, testUsername)
			ctx = shared.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func newAuthedRouter() chi.Router {
	return newRouterAs(auth.RoleUser)
}

func newRouterAs(role string) chi.Router {
	r := chi.NewRouter()
	r.Use(withTestRole(role))
	return r
}

// fakeTaskService implements service.TaskService with function fields.
type fakeTaskService struct {
	CreateFn         func(ctx context.Context, actor service.Actor, input service.CreateTaskInput) (*domain.Task, error)
	UpdateStatusFn   func(ctx context.Context, actor service.Actor, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error)
	UpdatePriorityFn func(ctx context.Context, actor service.Actor, taskID uuid.UUID, priority domain.TaskPriority) (*domain.Task, error)
	UpdateDueDateFn  func(ctx context.Context, actor service.Actor, taskID uuid.UUID, due *time.Time) (*domain.Task, error)
}

var _ service.TaskService = (*fakeTaskService)(nil)

func (f *fakeTaskService) Create(ctx context.Context, actor service.Actor, input service.CreateTaskInput) (*domain.Task, error) {
	return f.CreateFn(ctx, actor, input)
}

func (f *fakeTaskService) UpdateStatus(ctx context.Context, actor service.Actor, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	return f.UpdateStatusFn(ctx, actor, taskID, status)
}

func (f *fakeTaskService) UpdatePriority(ctx context.Context, actor service.Actor, taskID uuid.UUID, priority domain.TaskPriority) (*domain.Task, error) {
	return f.UpdatePriorityFn(ctx, actor, taskID, priority)
}

func (f *fakeTaskService) UpdateDueDate(ctx context.Context, actor service.Actor, taskID uuid.UUID, due *time.Time) (*domain.Task, error) {
	return f.UpdateDueDateFn(ctx, actor, taskID, due)
}

// fakeAchievementService implements service.AchievementService with function fields.
type fakeAchievementService struct {
	DefineFn       func(ctx context.Context, input service.DefineAchievementInput) (*domain.Achievement, int64, error)
	ListProgressFn func(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error)
}

var _ service.AchievementService = (*fakeAchievementService)(nil)

func (f *fakeAchievementService) Define(ctx context.Context, input service.DefineAchievementInput) (*domain.Achievement, int64, error) {
	return f.DefineFn(ctx, input)
}

func (f *fakeAchievementService) ListProgress(ctx context.Context, userID uuid.UUID) ([]*domain.UserAchievementProgress, error) {
	return f.ListProgressFn(ctx, userID)
}

// fakeAccessService implements service.AccessService with function fields.
type fakeAccessService struct {
	InviteFn      func(ctx context.Context, actor service.Actor, taskID, recipientID uuid.UUID, level domain.AccessLevel) (*domain.Invitation, error)
	RespondFn     func(ctx context.Context, actor service.Actor, invitationID uuid.UUID, accept bool) (*domain.Invitation, error)
	ListGrantsFn  func(ctx context.Context, actor service.Actor, taskID uuid.UUID) ([]domain.AccessGrant, error)
	ChangeLevelFn func(ctx context.Context, actor service.Actor, taskID, userID uuid.UUID, level domain.AccessLevel) (*domain.AccessGrant, error)
	RemoveFn      func(ctx context.Context, actor service.Actor, taskID, userID uuid.UUID) error
}

var _ service.AccessService = (*fakeAccessService)(nil)

func (f *fakeAccessService) Invite(ctx context.Context, actor service.Actor, taskID, recipientID uuid.UUID, level domain.AccessLevel) (*domain.Invitation, error) {
	return f.InviteFn(ctx, actor, taskID, recipientID, level)
}

func (f *fakeAccessService) Respond(ctx context.Context, actor service.Actor, invitationID uuid.UUID, accept bool) (*domain.Invitation, error) {
	return f.RespondFn(ctx, actor, invitationID, accept)
}

func (f *fakeAccessService) ListGrants(ctx context.Context, actor service.Actor, taskID uuid.UUID) ([]domain.AccessGrant, error) {
	return f.ListGrantsFn(ctx, actor, taskID)
}

func (f *fakeAccessService) ChangeLevel(ctx context.Context, actor service.Actor, taskID, userID uuid.UUID, level domain.AccessLevel) (*domain.AccessGrant, error) {
	return f.ChangeLevelFn(ctx, actor, taskID, userID, level)
}

func (f *fakeAccessService) Remove(ctx context.Context, actor service.Actor, taskID, userID uuid.UUID) error {
	return f.RemoveFn(ctx, actor, taskID, userID)
}
