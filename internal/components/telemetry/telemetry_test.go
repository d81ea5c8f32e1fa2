package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	tel := NewScopedAPI("outer", NewScopedAPI("inner", rec))

	tel.ReportBroken("thing.do", errors.New("boom"))
	tel.ReportWarning("thing.check", 1, 2)
	tel.ReportCount("thing.items", 3)
	tel.ReportCount("thing.items", 5)

	require.Equal(t, []Report{{ID: "inner: outer: thing.do", Params: []any{errors.New("boom")}}}, rec.Broken())
	require.Equal(t, []Report{{ID: "inner: outer: thing.check", Params: []any{1, 2}}}, rec.Warnings())
	require.Equal(t, int64(5), rec.Count("inner: outer: thing.items"))
	require.Zero(t, rec.Count("thing.items"))
}

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = contents
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-test", "yes")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	rec := NewRecorder()
	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentResty(client, rec, output)

	res, err := client.R().SetFormData(map[string]string{"a": "b"}).Post(server.URL + "/pot")
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, res.StatusCode())

	require.Len(t, output.messages, 1)
	message := output.messages["1"]
	require.Contains(t, message, "---- REQUEST ----")
	require.Contains(t, message, "POST "+server.URL+"/pot")
	require.Contains(t, message, "X-Test: yes")
	require.Contains(t, message, "short and stout")
	require.Empty(t, rec.Warnings())
}

func TestInstrumentRestyError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	rec := NewRecorder()
	client := resty.New()
	InstrumentResty(client, rec, nil)

	_, err := client.R().Get(url)
	require.Error(t, err)

	warnings := rec.Warnings()
	require.Len(t, warnings, 1)
	require.Equal(t, report_resty_response, warnings[0].ID)
}

func TestFilesystemOutput(t *testing.T) {
	dir := t.TempDir() + "/http"
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	output.Write("7", "hello")
	require.FileExists(t, dir+"/7.txt")
}
