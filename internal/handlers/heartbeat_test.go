package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statuspulse/statuspulse/internal/auth"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/types"
	"github.com/stretchr/testify/require"
)

// memHeartbeatSink keeps the latest record per service, honoring the
// heartbeat store's overwrite contract.
type memHeartbeatSink struct {
	records map[string]types.HeartbeatRecord
	failFor string
}

func newMemHeartbeatSink() *memHeartbeatSink {
	return &memHeartbeatSink{records: make(map[string]types.HeartbeatRecord)}
}

func (m *memHeartbeatSink) Put(_ context.Context, rec types.HeartbeatRecord) error {
	if rec.ServiceID == m.failFor {
		return errors.New("connection refused")
	}
	m.records[rec.ServiceID] = rec
	return nil
}

type heartbeatFixture struct {
	handler *Handler
	sink    *memHeartbeatSink
	router  *gin.Engine
}

func newHeartbeatFixture(t *testing.T, at time.Time) *heartbeatFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Settings: config.Settings{
			CooldownMinutes:      config.DefaultCooldownMinutes,
			MaxAlerts:            config.DefaultMaxAlerts,
			MaxAgeDays:           config.DefaultMaxAgeDays,
			RetentionDays:        config.DefaultRetentionDays,
			EvaluateEverySeconds: config.DefaultEvaluateEverySeconds,
			DegradedGraceFactor:  config.DefaultDegradedGraceFactor,
		},
		Services: []config.Service{
			{ID: "api", ThresholdSeconds: 60},
			{ID: "worker", ThresholdSeconds: 60},
		},
	}
	require.NoError(t, config.Finish(cfg))

	secrets := &config.StaticSecrets{Heartbeat: map[string]string{
		"api":    "key-api",
		"worker": "key-worker",
	}}

	f := &heartbeatFixture{sink: newMemHeartbeatSink()}
	f.handler = New(cfg, secrets, auth.NewResolver(cfg, secrets), f.sink, nil, nil, nil, nil)
	f.handler.now = func() time.Time { return at }

	f.router = gin.New()
	f.router.POST("/api/heartbeat", f.handler.Heartbeat)
	return f
}

func (f *heartbeatFixture) post(t *testing.T, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/heartbeat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type batchResponse struct {
	Success bool              `json:"success"`
	Results []HeartbeatResult `json:"results"`
}

func TestHeartbeat_SingleUpsertsLatest(t *testing.T) {
	first := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	f := newHeartbeatFixture(t, first)

	rec := f.post(t, `{"serviceId": "api", "status": "degraded", "metadata": {"region": "eu"}}`, "key-api")
	require.Equal(t, http.StatusOK, rec.Code)

	// A later heartbeat replaces the record instead of adding a second one.
	second := first.Add(time.Minute)
	f.handler.now = func() time.Time { return second }
	rec = f.post(t, `{"serviceId": "api"}`, "key-api")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.sink.records, 1)
	require.Equal(t, second, f.sink.records["api"].LastSeen)
}

func TestHeartbeat_SingleRejected(t *testing.T) {
	f := newHeartbeatFixture(t, time.Now())

	rec := f.post(t, `{"serviceId": "api"}`, "wrong-key")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, f.sink.records)
}

func TestHeartbeat_BatchPartial(t *testing.T) {
	f := newHeartbeatFixture(t, time.Now())

	rec := f.post(t, `{"services": [
		"api",
		{"serviceId": "worker", "token": "wrong"},
		"ghost"
	]}`, "key-api")

	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, []HeartbeatResult{
		{ServiceID: "api", Success: true},
		{ServiceID: "worker", Error: "invalid credential"},
		{ServiceID: "ghost", Error: "unknown service"},
	}, resp.Results)

	require.Len(t, f.sink.records, 1)
	require.Contains(t, f.sink.records, "api")
}

func TestHeartbeat_BatchAllRecorded(t *testing.T) {
	f := newHeartbeatFixture(t, time.Now())

	rec := f.post(t, `{"services": [
		"api",
		{"serviceId": "worker", "token": "key-worker"}
	]}`, "key-api")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, f.sink.records, 2)
}

func TestHeartbeat_BatchAllFailed(t *testing.T) {
	f := newHeartbeatFixture(t, time.Now())

	rec := f.post(t, `{"services": ["api", "worker"]}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, f.sink.records)
}

func TestHeartbeat_BatchStoreFailureReported(t *testing.T) {
	f := newHeartbeatFixture(t, time.Now())
	f.sink.failFor = "api"

	rec := f.post(t, `{"services": [
		"api",
		{"serviceId": "worker", "token": "key-worker"}
	]}`, "key-api")

	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []HeartbeatResult{
		{ServiceID: "api", Error: "store unavailable"},
		{ServiceID: "worker", Success: true},
	}, resp.Results)
}

func TestHeartbeat_MissingBody(t *testing.T) {
	f := newHeartbeatFixture(t, time.Now())

	rec := f.post(t, `{}`, "key-api")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func rawServices(t *testing.T, payload string) []json.RawMessage {
	t.Helper()
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestParseBatchEntries_MixedShapes(t *testing.T) {
	raw := rawServices(t, `[
		"api",
		{"serviceId": "worker", "token": "key-worker"},
		{"serviceId": "cron"}
	]`)

	entries, ok := parseBatchEntries(raw)
	require.True(t, ok)
	require.Equal(t, []auth.Entry{
		{ServiceID: "api"},
		{ServiceID: "worker", Token: "key-worker"},
		{ServiceID: "cron"},
	}, entries)
}

func TestParseBatchEntries_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty string entry": `["api", ""]`,
		"object without id":  `[{"token": "key"}]`,
		"number entry":       `[42]`,
		"nested array entry": `[["api"]]`,
		"empty id in object": `[{"serviceId": ""}]`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			entries, ok := parseBatchEntries(rawServices(t, payload))
			require.False(t, ok)
			require.Nil(t, entries)
		})
	}
}

func TestParseBatchEntries_Empty(t *testing.T) {
	entries, ok := parseBatchEntries(nil)
	require.True(t, ok)
	require.Empty(t, entries)
}
