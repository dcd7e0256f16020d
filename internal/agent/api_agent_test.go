package agent

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/bus"
	"github.com/ccastromar/oda-ops-diagnostics-agent/internal/ui"
)

func newTestAPI(t *testing.T) (*httptest.Server, *bus.Bus) {
	t.Helper()
	messageBus := bus.New()
	apiAgent := NewAPIAgent(messageBus, ui.NewUIStore())

	mux := http.NewServeMux()
	apiAgent.RegisterHTTP(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, messageBus
}

func TestAPIAgent_AskAcceptedAndTaskResult(t *testing.T) {
	ts, messageBus := newTestAPI(t)

	inspectorChan := make(chan bus.Message, 1)
	messageBus.Subscribe("inspector", inspectorChan)

	body, _ := json.Marshal(map[string]string{"message": "cpu de vm-web-01"})
	resp, err := http.Post(ts.URL+"/ask", "application/json", bytes.NewBuffer(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.Equal(t, "accepted", accepted["status"])
	id, ok := accepted["id"].(string)
	require.True(t, ok, "response must carry the task id")

	// La tarea llegó al inspector
	select {
	case msg := <-inspectorChan:
		require.Equal(t, "new_task", msg.Type)
		require.Equal(t, id, msg.Payload["id"])
	case <-time.After(time.Second):
		t.Fatal("timeout waiting new_task on inspector")
	}

	// Aún sin resultado: pending
	r1, err := http.Get(ts.URL + "/task?id=" + id)
	require.NoError(t, err)
	defer r1.Body.Close()
	var pending map[string]any
	require.NoError(t, json.NewDecoder(r1.Body).Decode(&pending))
	require.Equal(t, "pending", pending["status"])

	// Simulamos el backend terminando la tarea
	storeResult(id, Result{
		Status: "ok",
		Data:   map[string]any{"summary": "todo en orden"},
	})

	r2, err := http.Get(ts.URL + "/task?id=" + id)
	require.NoError(t, err)
	defer r2.Body.Close()
	var done map[string]any
	require.NoError(t, json.NewDecoder(r2.Body).Decode(&done))
	require.Equal(t, "ok", done["status"])
	data := done["data"].(map[string]any)
	require.Equal(t, "todo en orden", data["summary"])

	// El resultado se consume al leerlo
	r3, err := http.Get(ts.URL + "/task?id=" + id)
	require.NoError(t, err)
	defer r3.Body.Close()
	var again map[string]any
	require.NoError(t, json.NewDecoder(r3.Body).Decode(&again))
	require.Equal(t, "pending", again["status"])
}

func TestAPIAgent_AskValidation(t *testing.T) {
	ts, _ := newTestAPI(t)

	// Mensaje vacío
	resp, err := http.Post(ts.URL+"/ask", "application/json", bytes.NewBufferString(`{"message":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Content-Type incorrecto
	resp, err = http.Post(ts.URL+"/ask", "text/plain", bytes.NewBufferString(`{"message":"hola"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	// GET no permitido
	resp, err = http.Get(ts.URL + "/ask")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPIAgent_AuthRejectsWrongKey(t *testing.T) {
	t.Setenv("API_KEY", "secreto-123")
	ts, _ := newTestAPI(t)

	body := bytes.NewBufferString(`{"message":"hola"}`)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/ask", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "otra-clave")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	// Sin clave tampoco entra
	resp, err = http.Post(ts.URL+"/ask", "application/json", bytes.NewBufferString(`{"message":"hola"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// /task también está protegido
	resp, err = http.Get(ts.URL + "/task?id=abc")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// La clave correcta sí pasa, vía Bearer
	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/task?id=abc", nil)
	req.Header.Set("Authorization", "Bearer secreto-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIAgent_RateLimitExceeded(t *testing.T) {
	messageBus := bus.New()
	apiAgent := NewAPIAgent(messageBus, ui.NewUIStore())
	apiAgent.rl.Limit = 2

	mux := http.NewServeMux()
	apiAgent.RegisterHTTP(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	post := func() int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/ask", bytes.NewBufferString(`{"message":"hola"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", "cliente-1")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusAccepted, post())
	require.Equal(t, http.StatusAccepted, post())
	require.Equal(t, http.StatusTooManyRequests, post())

	// Otro cliente tiene su propia ventana
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/ask", bytes.NewBufferString(`{"message":"hola"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "cliente-2")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestAPIAgent_TaskIDValidation(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/task")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/task?id=../../etc/passwd")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
