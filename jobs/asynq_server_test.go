package jobs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rr
}

func TestJobsHealth(t *testing.T) {
	rr := serveHealth(t, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rr.Body.String())

	rr = serveHealth(t, stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Active: 1}})
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"queue":"default","pending":4,"active":1,"retry":0}`, rr.Body.String())

	rr = serveHealth(t, stubInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	require.Error(t, err)
}
