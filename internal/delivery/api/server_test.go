package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agency/config"
	"agency/internal/delivery/api/middleware"
	"agency/internal/delivery/api/router"
	"agency/internal/delivery/api/router/handler"
	"agency/internal/delivery/live"
	"agency/internal/domain/entity"
	"agency/internal/infra/auth"
	blobinfra "agency/internal/infra/blob"
	"agency/internal/infra/persistence/docstore"
	"agency/internal/infra/persistence/memory"
	"agency/internal/infra/qrcode"
	"agency/internal/livequery"
	mockService "agency/internal/mocks/service"
	"agency/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"gocloud.dev/blob/memblob"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		RequestID string `json:"request_id"`
		Count     *int   `json:"count"`
	} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

type testAPI struct {
	t    *testing.T
	echo *echo.Echo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.HTTP.MaxRequestBodySize = "64K"
	cfg.HTTP.MaxUploadBodySize = "1M"
	cfg.Live = &config.LiveConfig{SendQueueSize: 16, WriteTimeout: time.Second, PingInterval: time.Minute}

	store := memory.NewStore()
	profiles := docstore.NewProfileRepository(store, logger)
	records := docstore.NewRecordRepository(store, logger)
	comments := docstore.NewCommentRepository(store, logger)
	notifications := docstore.NewNotificationRepository(store, logger)

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("secret-pw")
	require.NoError(t, err)
	tokens, err := auth.NewJWTService("test-signing-secret", time.Hour)
	require.NoError(t, err)
	identity := auth.NewLocalProvider([]config.LocalAccount{
		{UID: "a1", Email: "staff@agency.test", Name: "Staff", PasswordHash: hash},
		{UID: "c1", Email: "client@acme.test", Name: "Acme", PasswordHash: hash},
	}, hasher, tokens)

	// a1 is staff before ever signing in.
	now := time.Now()
	require.NoError(t, profiles.Create(context.Background(), &entity.Profile{
		ID: "a1", Role: entity.RoleAdmin, Active: true, Name: "Staff", CreatedAt: now, UpdatedAt: now,
	}))

	publisher := mockService.NewMockEventPublisher(t)
	publisher.EXPECT().PublishNotificationEvent(mock.Anything, mock.Anything).Return(nil).Maybe()

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })
	blobs := blobinfra.NewBucketStore(bucket, "https://files.agency.test", time.Hour, 0, logger)

	sessionUC := impl.NewSessionService(identity, profiles, logger)
	notificationUC := impl.NewNotificationService(notifications, publisher, logger)
	recordUC := impl.NewRecordService(records, profiles, notificationUC, logger)
	commentUC := impl.NewCommentService(comments, records, profiles, notificationUC, logger)
	profileUC := impl.NewProfileService(profiles, qrcode.NewQRCodeService("https://portal.agency.test", 128, "M"), logger)
	fileUC := impl.NewFileService(blobs, records, profiles, logger)

	registry := prometheus.NewRegistry()
	manager := livequery.NewManager(store, logger, livequery.NewMetrics(registry))

	srv, err := NewServer(ServerParams{
		Lc:     fxtest.NewLifecycle(t),
		Cfg:    cfg,
		Logger: logger,
		RouterParams: router.RouterParams{
			SessionHandler:      handler.NewSessionHandler(handler.SessionHandlerParams{SessionUC: sessionUC, Logger: logger}),
			ProfileHandler:      handler.NewProfileHandler(handler.ProfileHandlerParams{ProfileUC: profileUC, Logger: logger}),
			RecordHandler:       handler.NewRecordHandler(handler.RecordHandlerParams{RecordUC: recordUC, CommentUC: commentUC, Logger: logger}),
			NotificationHandler: handler.NewNotificationHandler(handler.NotificationHandlerParams{NotificationUC: notificationUC, Logger: logger}),
			FileHandler:         handler.NewFileHandler(handler.FileHandlerParams{FileUC: fileUC, Logger: logger}),
			LiveHandler: live.NewHandler(live.HandlerParams{
				Config: cfg, Logger: logger, SessionUC: sessionUC, Profiles: profiles, Records: records, Manager: manager,
			}),
			AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{SessionUC: sessionUC, Logger: logger}),
			Gatherer:       registry,
			Config:         cfg,
		},
	})
	require.NoError(t, err)

	return &testAPI{t: t, echo: srv.(*apiServer).server}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	return a.serve(req, token)
}

func (a *testAPI) serve(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}

	return rec, env
}

func (a *testAPI) login(email string) string {
	a.t.Helper()

	rec, env := a.do(http.MethodPost, "/auth/local/login", "", map[string]string{"email": email, "password": "secret-pw"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(a.t, out.Token)

	return out.Token
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec, _ = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_PasswordLogin(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(http.MethodPost, "/auth/local/login", "", map[string]string{"email": "client@acme.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	rec, env = api.do(http.MethodPost, "/auth/local/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	token := api.login("client@acme.test")
	rec, env = api.do(http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var session handler.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "admit", session.Decision)
	assert.Equal(t, entity.RoleClient, session.Profile.Role)
	assert.Equal(t, "c1", session.Identity.UID)
}

func TestAPI_SessionWithoutToken(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(http.MethodGet, "/api/v1/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	rec, env = api.do(http.MethodGet, "/api/v1/records/leads", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", env.Error.Code)
}

func TestAPI_RecordCommentNotificationFlow(t *testing.T) {
	api := newTestAPI(t)
	client := api.login("client@acme.test")
	admin := api.login("staff@agency.test")

	rec, env := api.do(http.MethodGet, "/api/v1/admin/profiles", client, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, env = api.do(http.MethodGet, "/api/v1/admin/profiles?role=client", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *env.Meta.Count)

	rec, env = api.do(http.MethodPost, "/api/v1/records/campaigns", admin, map[string]any{
		"ownerId": "c1", "title": "Spring launch", "fields": map[string]any{"budget": 1200},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var campaign entity.Record
	require.NoError(t, json.Unmarshal(env.Data, &campaign))
	assert.Equal(t, entity.StatusCampaignDraft, campaign.Status)

	rec, env = api.do(http.MethodGet, "/api/v1/records/campaigns", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *env.Meta.Count)

	rec, env = api.do(http.MethodGet, "/api/v1/notifications", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *env.Meta.Count)

	rec, _ = api.do(http.MethodPost, "/api/v1/records/campaigns/"+campaign.ID+"/comments", client, map[string]string{"text": "Looks great"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = api.do(http.MethodGet, "/api/v1/records/campaigns/"+campaign.ID+"/comments", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *env.Meta.Count)

	rec, env = api.do(http.MethodPost, "/api/v1/notifications/read-all", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, string(env.Data))

	rec, env = api.do(http.MethodPatch, "/api/v1/records/campaigns/"+campaign.ID, client, map[string]string{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, env = api.do(http.MethodPost, "/api/v1/records/ideas", client, map[string]string{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"title": "required"}, env.Error.Details)

	rec, env = api.do(http.MethodGet, "/api/v1/records/invoices", client, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_COLLECTION", env.Error.Code)
}

func TestAPI_DeactivatedClientIsTurnedAway(t *testing.T) {
	api := newTestAPI(t)
	client := api.login("client@acme.test")
	admin := api.login("staff@agency.test")

	rec, _ := api.do(http.MethodPatch, "/api/v1/admin/profiles/c1", admin, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := api.do(http.MethodGet, "/api/v1/records/leads", client, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCOUNT_INACTIVE", env.Error.Code)

	rec, env = api.do(http.MethodGet, "/api/v1/session", client, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var session handler.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "deny", session.Decision)
}

func TestAPI_PortalQRAndPushTokens(t *testing.T) {
	api := newTestAPI(t)
	client := api.login("client@acme.test")
	admin := api.login("staff@agency.test")

	rec, _ := api.do(http.MethodGet, "/api/v1/admin/profiles/c1/portal-qr", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	rec, _ = api.do(http.MethodPost, "/api/v1/me/push-tokens", client, map[string]string{"token": "device-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, env := api.do(http.MethodGet, "/api/v1/admin/profiles/c1", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile entity.Profile
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, []string{"device-1"}, profile.PushTokens)

	rec, _ = api.do(http.MethodDelete, "/api/v1/me/push-tokens", client, map[string]string{"token": "device-1"})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_FileUpload(t *testing.T) {
	api := newTestAPI(t)
	client := api.login("client@acme.test")

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "brief.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("campaign brief"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec, env := api.serve(req, client)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var record entity.Record
	require.NoError(t, json.Unmarshal(env.Data, &record))
	assert.Equal(t, entity.CollectionFiles, record.Collection)
	assert.Equal(t, "c1", record.OwnerID)
	assert.Equal(t, "brief.txt", record.Title)
	assert.True(t, strings.HasPrefix(record.Fields["url"].(string), "https://files.agency.test/c1/"))
}
