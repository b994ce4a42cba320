package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urovital/clinic-api/internal/email"
	"github.com/urovital/clinic-api/internal/middleware"
	"github.com/urovital/clinic-api/internal/model"
	"github.com/urovital/clinic-api/internal/repository"
	"github.com/urovital/clinic-api/internal/repository/memory"
	"github.com/urovital/clinic-api/internal/service/notification"
	"github.com/urovital/clinic-api/internal/service/rbac"
	"github.com/urovital/clinic-api/pkg/httputil"
	"github.com/urovital/clinic-api/pkg/logger"
	"github.com/urovital/clinic-api/pkg/messaging"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

var (
	secretary = &model.Actor{ID: "sec-1", Email: "sec@urovital.test", Role: model.RoleSecretary, Status: model.ActorStatusActive}
	alice     = &model.Actor{ID: "alice", Email: "alice@urovital.test", Role: model.RolePatient, Status: model.ActorStatusActive}
	bob       = &model.Actor{ID: "bob", Email: "bob@urovital.test", Role: model.RolePatient, Status: model.ActorStatusActive}
)

type fixture struct {
	router *gin.Engine
	repo   repository.NotificationRepository
	broker *messaging.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	actors := memory.NewActorRepository()
	for _, a := range []*model.Actor{secretary, alice, bob} {
		require.NoError(t, actors.Create(context.Background(), a, nil))
	}

	f := &fixture{
		repo:   memory.NewNotificationRepository(),
		broker: messaging.NewRecorder(),
	}
	evaluator := rbac.NewEvaluator(nil)
	svc := notification.NewService(f.repo, actors, evaluator, f.broker, email.NewNopService(), nil, logger.Nop())
	// capability checks only read the actor set below; no token is verified
	h := NewHandler(svc, middleware.NewAuthMiddleware(nil, evaluator))

	// X-Actor stands in for Authenticate.
	byID := map[string]*model.Actor{secretary.ID: secretary, alice.ID: alice, bob.ID: bob}
	f.router = gin.New()
	api := f.router.Group("/api/v1", func(c *gin.Context) {
		if a, ok := byID[c.GetHeader("X-Actor")]; ok {
			c.Set(middleware.ContextActor, a)
		}
	})
	h.RegisterRoutes(api)
	h.RegisterAdminRoutes(api.Group("/admin"))
	return f
}

func (f *fixture) seed(t *testing.T, owner *model.Actor, count int) []string {
	t.Helper()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		n := &model.Notification{
			ID:           fmt.Sprintf("%s-n%02d", owner.ID, i),
			OwnerActorID: owner.ID,
			Type:         model.NotificationTypeAppointmentReminder,
			Channel:      model.NotificationChannelInApp,
			Status:       model.NotificationStatusSent,
			Title:        "Reminder",
			Priority:     model.NotificationPriorityMedium,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.repo.Create(context.Background(), n))
		ids = append(ids, n.ID)
	}
	return ids
}

func (f *fixture) do(t *testing.T, actor *model.Actor, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("X-Actor", actor.ID)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]interface{})
	return w, data
}

func TestListPaging(t *testing.T) {
	f := newFixture(t)
	f.seed(t, alice, 5)
	f.seed(t, bob, 2)

	w, data := f.do(t, alice, http.MethodGet, "/notifications?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data["items"], 2)
	assert.Equal(t, 5.0, data["total_count"])
	assert.Equal(t, 5.0, data["unread_count"])
	assert.Equal(t, true, data["has_more"])
	assert.Equal(t, "2", data["next_cursor"])

	first := data["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "alice-n04", first["id"])

	w, data = f.do(t, alice, http.MethodGet, "/notifications?limit=2&cursor=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data["items"], 1)
	assert.Equal(t, false, data["has_more"])
	assert.Nil(t, data["next_cursor"])
}

func TestListRejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"limit=101", "limit=-1", "offset=-1", "cursor=abc", "limit=abc", "type=party", "channel=sms"} {
		t.Run(q, func(t *testing.T) {
			w, _ := f.do(t, alice, http.MethodGet, "/notifications?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRoutesRequireActor(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, nil, http.MethodGet, "/notifications", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ids := f.seed(t, alice, 1)
	path := "/notifications/" + ids[0]

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, path},
		{http.MethodPatch, path + "/read"},
		{http.MethodDelete, path},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w, _ := f.do(t, bob, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}

	n, err := f.repo.Get(context.Background(), ids[0], alice.ID)
	require.NoError(t, err)
	assert.False(t, n.IsRead)
}

func TestMarkReadAndDelete(t *testing.T) {
	f := newFixture(t)
	ids := f.seed(t, alice, 3)

	w, data := f.do(t, alice, http.MethodPatch, "/notifications/"+ids[0]+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, data["is_read"])
	assert.Equal(t, "read", data["status"])
	assert.NotNil(t, data["read_at"])

	_, data = f.do(t, alice, http.MethodGet, "/notifications/unread-count", nil)
	assert.Equal(t, 2.0, data["unread_count"])

	w, data = f.do(t, alice, http.MethodPatch, "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, data["updated_count"])

	w, data = f.do(t, alice, http.MethodPatch, "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, data["updated_count"])

	w, data = f.do(t, alice, http.MethodDelete, "/notifications/"+ids[1], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ids[1], data["deleted_id"])

	w, _ = f.do(t, alice, http.MethodDelete, "/notifications/"+ids[1], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCreate(t *testing.T) {
	f := newFixture(t)
	req := map[string]interface{}{
		"owner_actor_id": alice.ID,
		"type":           "lab_result",
		"title":          "Your results are ready",
	}

	w, _ := f.do(t, bob, http.MethodPost, "/admin/notifications", req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// the capability gate runs before the body is validated
	w, _ = f.do(t, bob, http.MethodPost, "/admin/notifications", map[string]interface{}{"type": "party"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = f.do(t, nil, http.MethodPost, "/admin/notifications", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.broker.Messages())

	w, data := f.do(t, secretary, http.MethodPost, "/admin/notifications", req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, alice.ID, data["owner_actor_id"])
	assert.Equal(t, "sent", data["status"])
	assert.Equal(t, "medium", data["priority"])

	published := f.broker.Messages()
	require.Len(t, published, 1)
	assert.Equal(t, notification.Channel(alice.ID), published[0].Channel)
	assert.Equal(t, notification.EventCreated, published[0].Message.Type)

	w, _ = f.do(t, secretary, http.MethodPost, "/admin/notifications", map[string]interface{}{
		"owner_actor_id": alice.ID,
		"type":           "party",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
