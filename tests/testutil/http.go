package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase drives a single gin handler without a router. Params fills
// path parameters such as :id; Setup runs after the context is built and
// before the handler.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Params         gin.Params
	Body           any
	ExpectedStatus int
	ExpectedBody   map[string]any
	Setup          func(t *testing.T, tc *TestContext)
	Validate       func(t *testing.T, tc *TestContext)
}

// TestContext is the gin context a handler ran in and its recorder
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

// RunHTTPTestCases runs each case as a subtest
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase calls handler with a request built from tc and checks the
// status and the top-level fields of ExpectedBody
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	method, path := tc.Method, tc.Path
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newJSONRequest(t, method, path, tc.Body)
	c.Params = tc.Params

	ctx := &TestContext{Context: c, Recorder: w}
	if tc.Setup != nil {
		tc.Setup(t, ctx)
	}

	handler(c)

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, w.Code, "status for %s %s: %s", method, path, w.Body.String())
	}
	if tc.ExpectedBody != nil {
		got := DecodeJSON[map[string]any](t, w)
		for key, want := range tc.ExpectedBody {
			assert.Equal(t, want, got[key], "response field %q", key)
		}
	}
	if tc.Validate != nil {
		tc.Validate(t, ctx)
	}
}

// PerformRequest sends a JSON request through engine and returns the recorder
func PerformRequest(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, newJSONRequest(t, method, path, body))
	return w
}

// DecodeJSON parses a recorder body into T
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), "invalid JSON response: %s", w.Body.String())
	return result
}

// JSONResponse parses the handler response as a JSON object
func JSONResponse(t *testing.T, tc *TestContext) map[string]any {
	t.Helper()
	return DecodeJSON[map[string]any](t, tc.Recorder)
}

// AssertSuccessResponse checks the success envelope
func AssertSuccessResponse(t *testing.T, tc *TestContext) {
	t.Helper()
	resp := JSONResponse(t, tc)
	assert.Equal(t, true, resp["success"])
	assert.Nil(t, resp["error"])
}

// AssertErrorResponse checks the error envelope carries code
func AssertErrorResponse(t *testing.T, tc *TestContext, code string) {
	t.Helper()
	resp := JSONResponse(t, tc)
	assert.Equal(t, false, resp["success"])
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected an error object in %v", resp)
	assert.Equal(t, code, errObj["code"])
}

// ToJSONReader marshals v for use as a request body
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, ToJSONReader(t, body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
