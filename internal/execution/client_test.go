package execution_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-collaboration-studio/internal/execution"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func newJudge(t *testing.T, handler http.HandlerFunc) *execution.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return execution.NewClient(execution.Config{BaseURL: srv.URL, APIKey: "key"}, nil)
}

func TestRun_SuccessWithoutOutputUsesPlaceholder(t *testing.T) {
	client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("base64_encoded"))
		assert.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 54, body["language_id"])
		assert.Equal(t, b64("int main(){}"), body["source_code"])
		assert.Equal(t, "", body["stdin"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"stdout": nil,
			"time":   "0.002",
			"memory": 880,
			"status": map[string]interface{}{"id": 3, "description": "Accepted"},
		})
	})

	out := client.Run(context.Background(), "int main(){}", "")
	success, ok := out.(execution.Success)
	require.True(t, ok, "expected success, got %T", out)
	assert.Equal(t, execution.NoOutputPlaceholder, success.Output)
	assert.Equal(t, "Accepted", success.Status)
	assert.Equal(t, "0.002", success.Time)
	require.NotNil(t, success.Memory)
	assert.Equal(t, 880.0, *success.Memory)
}

func TestRun_SuccessDecodesOutput(t *testing.T) {
	client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, b64("5"), body["stdin"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"stdout": b64("25\n"),
			"status": map[string]interface{}{"id": 3, "description": "Accepted"},
		})
	})

	out := client.Run(context.Background(), "code", "5")
	assert.Equal(t, execution.Success{Output: "25\n", Status: "Accepted"}, out)
}

func TestRun_CompileErrorFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		result map[string]interface{}
		want   string
	}{
		{"compile output", map[string]interface{}{"compile_output": b64("error: x"), "stderr": b64("ignored")}, "error: x"},
		{"stderr", map[string]interface{}{"stderr": b64("segfault")}, "segfault"},
		{"status", map[string]interface{}{}, "Compilation Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.result["status"] = map[string]interface{}{"id": 6, "description": "Compilation Error"}
			client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(tc.result)
			})
			out := client.Run(context.Background(), "code", "")
			assert.Equal(t, execution.Failure{CompileError: tc.want, Status: "Compilation Error"}, out)
		})
	}
}

func TestRun_ErrorShapes(t *testing.T) {
	client := newJudge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	assert.Equal(t, execution.Error{Message: "Compilation service error: 429"}, client.Run(context.Background(), "code", ""))
	assert.Equal(t, execution.Error{Message: "No code provided"}, client.Run(context.Background(), "", ""))

	noKey := execution.NewClient(execution.Config{BaseURL: "http://127.0.0.1:1"}, nil)
	assert.Equal(t, execution.Error{Message: "Judge0 API key not configured"}, noKey.Run(context.Background(), "code", ""))
}

func TestMarshalOutcome_TagsKind(t *testing.T) {
	raw, err := execution.MarshalOutcome(execution.Failure{CompileError: "boom", Status: "Runtime Error"})
	require.NoError(t, err)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, map[string]string{"kind": "failure", "compile_error": "boom", "status": "Runtime Error"}, fields)
}
