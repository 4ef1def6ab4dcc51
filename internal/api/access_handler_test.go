package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/domain"
	"github.com/phrazzld/tasknotify/internal/service"
	"github.com/phrazzld/tasknotify/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessRouter(h *AccessHandler) chi.Router {
	r := newAuthedRouter()
	r.Post("/api/tasks/{id}/invitations", h.Invite)
	r.Post("/api/invitations/{id}/accept", h.Accept)
	r.Post("/api/invitations/{id}/decline", h.Decline)
	r.Get("/api/tasks/{id}/access", h.ListGrants)
	r.Patch("/api/tasks/{id}/access/{userID}", h.ChangeLevel)
	r.Delete("/api/tasks/{id}/access/{userID}", h.Remove)
	return r
}

func TestNewAccessHandlerPanicsOnNilDeps(t *testing.T) {
	assert.Panics(t, func() { NewAccessHandler(nil, discardLogger()) })
	assert.Panics(t, func() { NewAccessHandler(&fakeAccessService{}, nil) })
}

func TestAccessHandlerInvite(t *testing.T) {
	taskID, bob := uuid.New(), uuid.New()

	var gotActor service.Actor
	var gotLevel domain.AccessLevel
	svc := &fakeAccessService{
		InviteFn: func(_ context.Context, actor service.Actor, tid, recipient uuid.UUID, level domain.AccessLevel) (*domain.Invitation, error) {
			gotActor, gotLevel = actor, level
			assert.Equal(t, taskID, tid)
			assert.Equal(t, bob, recipient)
			return domain.NewInvitation(tid, actor.UserID, actor.Username, recipient, "bob", level)
		},
	}
	router := accessRouter(NewAccessHandler(svc, discardLogger()))

	rec := doRequest(t, router, http.MethodPost, "/api/tasks/"+taskID.String()+"/invitations",
		map[string]any{"user_id": bob, "level": "edit"})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, testUserID, gotActor.UserID)
	assert.Equal(t, domain.AccessLevelEdit, gotLevel)

	var inv domain.Invitation
	decodeBody(t, rec, &inv)
	assert.Equal(t, domain.InvitationPending, inv.Status)
	assert.Equal(t, "bob", inv.RecipientUsername)
}

func TestAccessHandlerInviteRejectsBadInput(t *testing.T) {
	called := false
	svc := &fakeAccessService{
		InviteFn: func(context.Context, service.Actor, uuid.UUID, uuid.UUID, domain.AccessLevel) (*domain.Invitation, error) {
			called = true
			return nil, nil
		},
	}
	router := accessRouter(NewAccessHandler(svc, discardLogger()))
	path := "/api/tasks/" + uuid.NewString() + "/invitations"

	tests := []struct {
		name string
		path string
		body any
	}{
		{"owner level", path, map[string]any{"user_id": uuid.New(), "level": "owner"}},
		{"missing user", path, map[string]any{"level": "view"}},
		{"malformed json", path, "{"},
		{"bad task id", "/api/tasks/nope/invitations", map[string]any{"user_id": uuid.New(), "level": "view"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.False(t, called)
}

func TestAccessHandlerRespond(t *testing.T) {
	invitationID := uuid.New()

	var answers []bool
	svc := &fakeAccessService{
		RespondFn: func(_ context.Context, actor service.Actor, id uuid.UUID, accept bool) (*domain.Invitation, error) {
			assert.Equal(t, invitationID, id)
			answers = append(answers, accept)
			status := domain.InvitationDeclined
			if accept {
				status = domain.InvitationAccepted
			}
			return &domain.Invitation{ID: id, Status: status}, nil
		},
	}
	router := accessRouter(NewAccessHandler(svc, discardLogger()))

	rec := doRequest(t, router, http.MethodPost, "/api/invitations/"+invitationID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inv domain.Invitation
	decodeBody(t, rec, &inv)
	assert.Equal(t, domain.InvitationAccepted, inv.Status)

	rec = doRequest(t, router, http.MethodPost, "/api/invitations/"+invitationID.String()+"/decline", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []bool{true, false}, answers)
}

func TestAccessHandlerRespondErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		msg  string
	}{
		{"not recipient", service.NewServiceError("respond_invitation", "invitation not found", store.ErrInvitationNotFound), http.StatusNotFound, "Invitation not found"},
		{"answered", service.NewServiceError("respond_invitation", "invitation cannot be answered", domain.ErrInvitationNotPending), http.StatusConflict, "Invitation was already answered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAccessService{
				RespondFn: func(context.Context, service.Actor, uuid.UUID, bool) (*domain.Invitation, error) {
					return nil, tt.err
				},
			}
			router := accessRouter(NewAccessHandler(svc, discardLogger()))

			rec := doRequest(t, router, http.MethodPost, "/api/invitations/"+uuid.NewString()+"/accept", nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.msg)
		})
	}
}

func TestAccessHandlerListGrants(t *testing.T) {
	taskID := uuid.New()
	svc := &fakeAccessService{
		ListGrantsFn: func(context.Context, service.Actor, uuid.UUID) ([]domain.AccessGrant, error) {
			return nil, nil
		},
	}
	router := accessRouter(NewAccessHandler(svc, discardLogger()))

	rec := doRequest(t, router, http.MethodGet, "/api/tasks/"+taskID.String()+"/access", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAccessHandlerChangeLevel(t *testing.T) {
	taskID, bob := uuid.New(), uuid.New()

	svc := &fakeAccessService{
		ChangeLevelFn: func(_ context.Context, _ service.Actor, tid, uid uuid.UUID, level domain.AccessLevel) (*domain.AccessGrant, error) {
			return &domain.AccessGrant{TaskID: tid, UserID: uid, Username: "bob", Level: level}, nil
		},
	}
	router := accessRouter(NewAccessHandler(svc, discardLogger()))

	rec := doRequest(t, router, http.MethodPatch, "/api/tasks/"+taskID.String()+"/access/"+bob.String(),
		map[string]any{"level": "view"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grant domain.AccessGrant
	decodeBody(t, rec, &grant)
	assert.Equal(t, domain.AccessGrant{TaskID: taskID, UserID: bob, Username: "bob", Level: domain.AccessLevelView}, grant)

	rec = doRequest(t, router, http.MethodPatch, "/api/tasks/"+taskID.String()+"/access/bob",
		map[string]any{"level": "view"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccessHandlerRemove(t *testing.T) {
	taskID, bob := uuid.New(), uuid.New()

	t.Run("removed", func(t *testing.T) {
		svc := &fakeAccessService{
			RemoveFn: func(_ context.Context, _ service.Actor, tid, uid uuid.UUID) error {
				assert.Equal(t, taskID, tid)
				assert.Equal(t, bob, uid)
				return nil
			},
		}
		router := accessRouter(NewAccessHandler(svc, discardLogger()))

		rec := doRequest(t, router, http.MethodDelete, "/api/tasks/"+taskID.String()+"/access/"+bob.String(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("owner access", func(t *testing.T) {
		svc := &fakeAccessService{
			RemoveFn: func(context.Context, service.Actor, uuid.UUID, uuid.UUID) error {
				return service.NewServiceError("remove_access", "owner access is fixed", domain.ErrOwnerAccessImmutable)
			},
		}
		router := accessRouter(NewAccessHandler(svc, discardLogger()))

		rec := doRequest(t, router, http.MethodDelete, "/api/tasks/"+taskID.String()+"/access/"+bob.String(), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("viewer", func(t *testing.T) {
		svc := &fakeAccessService{
			RemoveFn: func(context.Context, service.Actor, uuid.UUID, uuid.UUID) error {
				return service.NewServiceError("remove_access", "task not accessible", service.ErrAccessDenied)
			},
		}
		router := accessRouter(NewAccessHandler(svc, discardLogger()))

		rec := doRequest(t, router, http.MethodDelete, "/api/tasks/"+taskID.String()+"/access/"+bob.String(), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
