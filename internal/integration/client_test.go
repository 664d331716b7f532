package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

type recorderStub struct {
	mu      sync.Mutex
	results map[string][]string
}

func (r *recorderStub) RecordFeedRequest(feed, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string][]string{}
	}
	r.results[feed] = append(r.results[feed], result)
}

func testConfig(url string) ClientConfig {
	return ClientConfig{BaseURL: url, APIKey: "secret", Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond}
}

func TestCurriculumClientFetchCatalogShapes(t *testing.T) {
	payloads := map[string]string{
		"8606-202010": `[{"codigo":"DCCB-00106","asignatura":"Calculo I"}]`,
		"8606-201910": `{"malla":[{"codigo":"DCCB-00106"},{"codigo":"DCCB-00107"}]}`,
		"8606-201810": `{"data":[{"codigo":"DCCB-00106"},"ignored"]}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mallas", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-HAWAII-AUTH"))
		_, _ = w.Write([]byte(payloads[r.URL.RawQuery]))
	}))
	defer srv.Close()

	recorder := &recorderStub{}
	client := NewCurriculumClient(testConfig(srv.URL), nil, recorder)

	records, err := client.FetchCatalog(context.Background(), "8606", "202010")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Calculo I", records[0]["asignatura"])

	records, err = client.FetchCatalog(context.Background(), "8606", "201910")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = client.FetchCatalog(context.Background(), "8606", "201810")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.Equal(t, []string{"ok", "ok", "ok"}, recorder.results["curriculum"])
}

func TestCurriculumClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := NewCurriculumClient(testConfig(srv.URL), nil, nil).FetchCatalog(context.Background(), "8606", "202010")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCurriculumClientGivesUpAsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	recorder := &recorderStub{}
	_, err := NewCurriculumClient(testConfig(srv.URL), nil, recorder).FetchCatalog(context.Background(), "8606", "202010")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, appErrors.FromError(err).Status)
	assert.Equal(t, []string{"error"}, recorder.results["curriculum"])
}

func TestCurriculumClientRejectsUnknownPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	_, err := NewCurriculumClient(testConfig(srv.URL), nil, nil).FetchCatalog(context.Background(), "8606", "202010")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}

func TestTranscriptClientFetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/avance.php", r.URL.Path)
		if r.URL.Query().Get("rut") != "12345678" {
			_, _ = w.Write([]byte(`{"error":"Estudiante no encontrado"}`))
			return
		}
		assert.Equal(t, "8606", r.URL.Query().Get("codcarrera"))
		_, _ = w.Write([]byte(`[
			{"nrc":"21943","period":"201910","student":"12345678","course":"DCCB-00106","excluded":false,"inscriptionType":"REGULAR","status":"APROBADO"},
			{"nrc":"21944","period":"201910","student":"12345678","course":"DCCB-00107","excluded":false,"inscriptionType":"REGULAR","status":"REPROBADO"},
			{"nrc":"21945","period":"202010","student":"12345678","course":"DCCB-00107","excluded":false,"inscriptionType":"REGULAR","status":"INSCRITO"},
			{"nrc":"21946","period":"202010","student":"12345678","course":"","status":"APROBADO"}
		]`))
	}))
	defer srv.Close()

	client := NewTranscriptClient(testConfig(srv.URL), nil, nil)
	records, err := client.FetchHistory(context.Background(), "12345678", "8606")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.HistoryApproved, records[0].Status)
	assert.Equal(t, models.HistoryFailed, records[1].Status)
	assert.Equal(t, models.HistoryInProgress, records[2].Status)
	assert.Equal(t, "21943", records[0].NRC)

	_, err = client.FetchHistory(context.Background(), "999", "8606")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
	assert.Equal(t, "Estudiante no encontrado", appErrors.FromError(err).Message)
}

func TestMapHistoryStatus(t *testing.T) {
	assert.Equal(t, models.HistoryApproved, MapHistoryStatus(" aprobado "))
	assert.Equal(t, models.HistoryOther, MapHistoryStatus("CONVALIDADO"))
}

func TestIdentityClientLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login.php", r.URL.Path)
		if r.URL.Query().Get("password") != "pw" {
			_, _ = w.Write([]byte(`{"error":"credenciales incorrectas"}`))
			return
		}
		_, _ = w.Write([]byte(`{"rut":"12345678","carreras":[{"codigo":"8606","catalogo":"202010"}]}`))
	}))
	defer srv.Close()

	client := NewIdentityClient(testConfig(srv.URL), nil, nil)
	profile, err := client.Login(context.Background(), "ana@alumnos.ucn.cl", "pw")
	require.NoError(t, err)
	assert.Equal(t, "12345678", profile["rut"])

	_, err = client.Login(context.Background(), "ana@alumnos.ucn.cl", "bad")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestFeedClientHonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryDelay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewIdentityClient(cfg, nil, nil).Login(ctx, "a", "b")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}
