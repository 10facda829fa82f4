package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

func testNotice() boletin.Notice {
	return boletin.Notice{
		ReferenceID: "resolucion/2024/40202/468053",
		Title:       "Resolución 40202/2024",
		Organismo:   "Ministerio de Salud",
		Excerpt:     "el expediente por el cual se propicia la contratación",
		RawText:     "VISTO el expediente... POR ELLO se resuelve aprobar la contratación.",
	}
}

type capturedCall struct {
	System string
	User   string
}

// chatServer fakes the provider endpoint, recording each request.
func chatServer(t *testing.T, reply func(call int) (int, string)) (*httptest.Server, *[]capturedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []capturedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []chatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)

		mu.Lock()
		calls = append(calls, capturedCall{System: req.Messages[0].Content, User: req.Messages[1].Content})
		n := len(calls)
		mu.Unlock()

		status, content := reply(n)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSummarizeSuccess(t *testing.T) {
	srv, calls := chatServer(t, func(call int) (int, string) {
		if call == 1 {
			return http.StatusOK, "**Contratación del servicio de limpieza hospitalaria**"
		}
		return http.StatusOK, "La norma aprueba la contratación del servicio de limpieza. La emite el Ministerio de Salud."
	})

	client, err := New(Config{Endpoint: srv.URL, Model: "test", Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	sum, err := client.Summarize(context.Background(), testNotice())
	require.NoError(t, err)

	assert.Equal(t, "Contratación del servicio de limpieza hospitalaria", sum.Short)
	assert.Contains(t, sum.Long, "Ministerio de Salud")

	require.Len(t, *calls, 2)
	assert.Contains(t, (*calls)[0].System, "título descriptivo")
	assert.Contains(t, (*calls)[1].System, "3-4 oraciones")
	assert.Contains(t, (*calls)[0].User, "Resolución 40202/2024")
}

func TestSummarizeTruncatesInput(t *testing.T) {
	srv, calls := chatServer(t, func(int) (int, string) {
		return http.StatusOK, "resumen corto pero suficiente"
	})

	client, err := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second, MaxInputChars: 50}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), testNotice())
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune((*calls)[0].User)), 50)
}

func TestSummarizeProviderError(t *testing.T) {
	srv, _ := chatServer(t, func(int) (int, string) {
		return http.StatusTooManyRequests, ""
	})

	client, err := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), testNotice())
	require.Error(t, err)

	var sumErr *boletin.SummarizeError
	require.True(t, errors.As(err, &sumErr))
	assert.Equal(t, http.StatusTooManyRequests, sumErr.StatusCode)
	assert.Equal(t, "resolucion/2024/40202/468053", sumErr.ReferenceID)
}

func TestSummarizeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	client, err := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), testNotice())
	var sumErr *boletin.SummarizeError
	require.True(t, errors.As(err, &sumErr))
}

func TestSummarizeEmptyAfterCleanup(t *testing.T) {
	srv, _ := chatServer(t, func(int) (int, string) {
		return http.StatusOK, "Error: BadRequest upstream"
	})

	client, err := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Summarize(context.Background(), testNotice())
	assert.Error(t, err)
}

func TestThrottleSpacesCalls(t *testing.T) {
	srv, calls := chatServer(t, func(int) (int, string) {
		return http.StatusOK, "respuesta"
	})

	client, err := New(Config{
		Endpoint:  srv.URL,
		Timeout:   5 * time.Second,
		CallDelay: 40 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Summarize(context.Background(), testNotice())
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	// second call waits out the inter-call delay
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestCleanResponse(t *testing.T) {
	t.Parallel()

	t.Run("StripsMarkdown", func(t *testing.T) {
		assert.Equal(t, "título en negrita y cursiva",
			CleanResponse("**título en negrita** *y cursiva*"))
	})

	t.Run("DropsMarkerPrefix", func(t *testing.T) {
		assert.Equal(t, "la respuesta real",
			CleanResponse("razonamiento interno **💬 Response:** la respuesta real"))
	})

	t.Run("ErrorsComeBackEmpty", func(t *testing.T) {
		assert.Empty(t, CleanResponse("Error: upstream exploded"))
		assert.Empty(t, CleanResponse(""))
	})

	t.Run("CapsLength", func(t *testing.T) {
		long := strings.Repeat("palabra ", 200)
		assert.LessOrEqual(t, len([]rune(CleanResponse(long))), responseCap)
	})
}

func TestStubDeterministic(t *testing.T) {
	t.Parallel()

	stub := &Stub{Fail: map[string]bool{"bad": true}}

	sum, err := stub.Summarize(context.Background(), testNotice())
	require.NoError(t, err)
	assert.Contains(t, sum.Short, "Resolución 40202/2024")

	_, err = stub.Summarize(context.Background(), boletin.Notice{ReferenceID: "bad"})
	assert.Error(t, err)
	assert.Equal(t, []string{"resolucion/2024/40202/468053", "bad"}, stub.Calls)
}
