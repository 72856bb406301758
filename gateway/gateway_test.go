// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bureau-foundation/glyph/backend/tool"
	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/diagram/diagramtest"
	"github.com/bureau-foundation/glyph/lib/commander"
	"github.com/bureau-foundation/glyph/lib/safemode"
	"github.com/bureau-foundation/glyph/lib/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter registers spy under "spy" and returns a router over it.
func newTestRouter(t *testing.T, spy diagram.Service, config HandlerConfig) *gin.Engine {
	t.Helper()
	if config.Registry == nil {
		config.Registry = diagram.NewRegistry()
		config.Registry.MustRegister(spy, "spy", "spy-alias")
	}
	config.Logger = discardLogger()
	handler, err := NewHandler(config)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return NewRouter(handler, nil, discardLogger())
}

func serve(router http.Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	return serve(router, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var response errorResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("error body is not JSON: %v\n%s", err, recorder.Body.String())
	}
	return response
}

// --- dispatch states ---

func TestUnknownTypeIsBadRequest(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})

	recorder := post(router, "/nosuch/svg", "x")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	response := decodeError(t, recorder)
	if response.Kind != diagram.KindBadRequest {
		t.Errorf("kind = %q, want bad_request", response.Kind)
	}
	if !strings.Contains(response.Error, "spy, spy-alias") {
		t.Errorf("error %q does not list the known types", response.Error)
	}
}

func TestLookupIsCaseSensitive(t *testing.T) {
	router := newTestRouter(t, diagramtest.NewSpy(diagram.FormatSVG), HandlerConfig{})
	if recorder := post(router, "/SPY/svg", "x"); recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a differently cased type", recorder.Code)
	}
}

func TestUnsupportedFormatNeverInvokesBackend(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})

	recorder := post(router, "/spy/pdf", "x")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	if response := decodeError(t, recorder); !strings.Contains(response.Error, "must be one of svg") {
		t.Errorf("error %q does not list the supported formats", response.Error)
	}
	if spy.CallCount() != 0 {
		t.Errorf("backend invoked %d times for an unsupported format", spy.CallCount())
	}
}

func TestEmptySourceIsBadRequest(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})
	if recorder := post(router, "/spy/svg", ""); recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
	if spy.CallCount() != 0 {
		t.Error("backend invoked for an empty source")
	}
}

func TestSuccess(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG, diagram.FormatPNG)
	router := newTestRouter(t, spy, HandlerConfig{})

	recorder := post(router, "/spy-alias/PNG", "digraph{}")
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}
	if recorder.Body.String() != "digraph{}" {
		t.Errorf("body = %q", recorder.Body.String())
	}
	call := spy.Calls()[0]
	if call.Type != "spy-alias" || call.Format != diagram.FormatPNG {
		t.Errorf("request = %s/%s, want spy-alias/png", call.Type, call.Format)
	}
}

func TestConditionalRequestByContentETag(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})

	first := post(router, "/spy/svg", "digraph{}")
	etag := first.Header().Get("ETag")
	want, err := contentETag([]byte("digraph{}"))
	if err != nil {
		t.Fatalf("contentETag: %v", err)
	}
	if etag != want {
		t.Fatalf("ETag = %q, want %q", etag, want)
	}
	if !strings.HasPrefix(etag, `"b`) {
		t.Errorf("ETag %q is not a quoted base32 CIDv1", etag)
	}

	request := httptest.NewRequest(http.MethodPost, "/spy/svg", strings.NewReader("digraph{}"))
	request.Header.Set("If-None-Match", `"other", W/`+etag)
	recorder := serve(router, request)
	if recorder.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", recorder.Code)
	}
	if recorder.Body.Len() != 0 {
		t.Errorf("304 response carries a body: %q", recorder.Body.String())
	}

	request = httptest.NewRequest(http.MethodPost, "/spy/svg", strings.NewReader("digraph{ a }"))
	request.Header.Set("If-None-Match", etag)
	if recorder := serve(router, request); recorder.Code != http.StatusOK {
		t.Errorf("status = %d for changed output, want 200", recorder.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{BodyLimit: 16})

	recorder := post(router, "/spy/svg", strings.Repeat("x", 17))
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", recorder.Code)
	}
	if response := decodeError(t, recorder); response.Kind != diagram.KindPayloadTooLarge {
		t.Errorf("kind = %q", response.Kind)
	}
	if spy.CallCount() != 0 {
		t.Error("backend invoked for an oversized body")
	}
}

// --- routes ---

func TestAcceptNegotiation(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG, diagram.FormatPNG)
	router := newTestRouter(t, spy, HandlerConfig{})

	request := httptest.NewRequest(http.MethodPost, "/spy", strings.NewReader("x"))
	request.Header.Set("Accept", "application/pdf, image/png;q=0.9")
	if recorder := serve(router, request); recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if got := spy.Calls()[0].Format; got != diagram.FormatPNG {
		t.Errorf("negotiated %q, want png", got)
	}

	if recorder := post(router, "/spy", "x"); recorder.Code != http.StatusOK {
		t.Fatalf("no Accept: status = %d", recorder.Code)
	}
	if got := spy.Calls()[1].Format; got != diagram.FormatSVG {
		t.Errorf("no Accept negotiated %q, want the first declared format", got)
	}

	request = httptest.NewRequest(http.MethodPost, "/spy", strings.NewReader("x"))
	request.Header.Set("Accept", "application/pdf")
	if recorder := serve(router, request); recorder.Code != http.StatusBadRequest {
		t.Errorf("unsupported Accept: status = %d, want 400", recorder.Code)
	}
}

func TestEncodedGet(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})

	source := "digraph G {\n  Hello -> World\n}\n"
	encoded, err := EncodeSource([]byte(source))
	if err != nil {
		t.Fatalf("EncodeSource: %v", err)
	}
	recorder := serve(router, httptest.NewRequest(http.MethodGet, "/spy/svg/"+encoded, nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	if recorder.Body.String() != source {
		t.Errorf("decoded source = %q, want %q", recorder.Body.String(), source)
	}

	// Padded base64url is accepted too.
	if recorder := serve(router, httptest.NewRequest(http.MethodGet, "/spy/svg/"+encoded+"==", nil)); recorder.Code != http.StatusOK {
		t.Errorf("padded payload: status = %d", recorder.Code)
	}
}

func TestEncodedGetRejectsGarbage(t *testing.T) {
	router := newTestRouter(t, diagramtest.NewSpy(diagram.FormatSVG), HandlerConfig{})
	for _, encoded := range []string{"!!!", "aGVsbG8"} {
		recorder := serve(router, httptest.NewRequest(http.MethodGet, "/spy/svg/"+encoded, nil))
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("GET %s: status = %d, want 400", encoded, recorder.Code)
		}
	}
}

func TestEncodedGetCapsInflatedSize(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{BodyLimit: 1024})

	encoded, err := EncodeSource([]byte(strings.Repeat("a", 1<<20)))
	if err != nil {
		t.Fatalf("EncodeSource: %v", err)
	}
	recorder := serve(router, httptest.NewRequest(http.MethodGet, "/spy/svg/"+encoded, nil))
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", recorder.Code)
	}
	if spy.CallCount() != 0 {
		t.Error("backend invoked for an oversized payload")
	}
}

func TestJSONRequest(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})

	body := `{"diagram_source":"a -> b","diagram_type":"spy","output_format":"svg","diagram_options":{"Theme":"dark"}}`
	recorder := post(router, "/", body)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	call := spy.Calls()[0]
	if string(call.Source) != "a -> b" || call.Option("theme") != "dark" {
		t.Errorf("request = %+v", call)
	}

	for _, bad := range []string{`not json`, `{"diagram_source":"x","output_format":"svg"}`, `{"diagram_source":"x","diagram_type":"spy"}`} {
		if recorder := post(router, "/", bad); recorder.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", bad, recorder.Code)
		}
	}
}

func TestOptionsFromQueryAndHeaders(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{})

	request := httptest.NewRequest(http.MethodPost, "/spy/svg?Layout=neato&scale=3&safe-mode=secure", strings.NewReader("x"))
	request.Header.Set("Glyph-Diagram-Options-Scale", "2")
	request.Header.Set("Glyph-Diagram-Options-Theme", "dark")
	if recorder := serve(router, request); recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	options := spy.Calls()[0].Options
	want := map[string]string{"layout": "neato", "scale": "3", "theme": "dark"}
	if len(options) != len(want) {
		t.Errorf("options = %v, want %v", options, want)
	}
	for name, value := range want {
		if options[name] != value {
			t.Errorf("option %s = %q, want %q", name, options[name], value)
		}
	}
}

// --- safe mode ---

func TestRequestCanOnlyTightenSafeMode(t *testing.T) {
	tests := []struct {
		server    safemode.SafeMode
		requested string
		want      safemode.SafeMode
	}{
		{safemode.Unsafe, "secure", safemode.Secure},
		{safemode.Unsafe, "SAFE", safemode.Safe},
		{safemode.Unsafe, "", safemode.Unsafe},
		{safemode.Secure, "unsafe", safemode.Secure},
		{safemode.Safe, "unsafe", safemode.Safe},
		{safemode.Safe, "bogus", safemode.Safe},
	}
	for _, test := range tests {
		spy := diagramtest.NewSpy(diagram.FormatSVG)
		router := newTestRouter(t, spy, HandlerConfig{SafeMode: test.server})

		request := httptest.NewRequest(http.MethodPost, "/spy/svg", strings.NewReader("x"))
		if test.requested != "" {
			request.Header.Set(safemode.Header, test.requested)
		}
		if recorder := serve(router, request); recorder.Code != http.StatusOK {
			t.Fatalf("status = %d", recorder.Code)
		}
		if got := spy.Calls()[0].SafeMode; got != test.want {
			t.Errorf("server %s, requested %q: effective %s, want %s", test.server, test.requested, got, test.want)
		}
	}
}

func TestSafeModeQueryParameter(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	router := newTestRouter(t, spy, HandlerConfig{SafeMode: safemode.Unsafe})
	if recorder := post(router, "/spy/svg?safe-mode=safe", "x"); recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	call := spy.Calls()[0]
	if call.SafeMode != safemode.Safe {
		t.Errorf("effective mode = %s, want safe", call.SafeMode)
	}
	if _, ok := call.Options["safe-mode"]; ok {
		t.Error("safe-mode leaked into diagram options")
	}
}

func TestPolicyViolationMessageDependsOnSafeMode(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	spy.Respond = func(context.Context, diagram.Request) (*diagram.Result, error) {
		return nil, diagram.PolicyViolation("textart", "local include /etc/passwd is not permitted")
	}

	secure := post(newTestRouter(t, spy, HandlerConfig{SafeMode: safemode.Secure}), "/spy/svg", "x")
	if secure.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", secure.Code)
	}
	response := decodeError(t, secure)
	if response.Error != securePolicyMessage || response.Kind != diagram.KindPolicyViolation {
		t.Errorf("secure response = %+v", response)
	}
	if strings.Contains(secure.Body.String(), "/etc/passwd") {
		t.Error("secure response names the forbidden resource")
	}

	safe := post(newTestRouter(t, spy, HandlerConfig{SafeMode: safemode.Safe}), "/spy/svg", "x")
	if !strings.Contains(decodeError(t, safe).Error, "/etc/passwd") {
		t.Error("safe response hides the explanatory message")
	}
}

// --- backend failures through the real commander ---

func newGraphvizRouter(t *testing.T, script string, timeout time.Duration, mode safemode.SafeMode) *gin.Engine {
	t.Helper()
	dot := testutil.WriteExecutable(t, t.TempDir(), "dot", script)
	runner := commander.New(commander.Config{TempRoot: t.TempDir(), Timeout: timeout, Logger: discardLogger()})
	registry := diagram.NewRegistry()
	registry.MustRegister(tool.NewGraphviz(runner, dot), "graphviz", "dot")
	return newTestRouter(t, nil, HandlerConfig{Registry: registry, SafeMode: mode})
}

func TestNonZeroExitIsBackendFailureWithDetail(t *testing.T) {
	router := newGraphvizRouter(t,
		`cat >/dev/null; echo "Error: $PWD/input.dot: syntax error in line 1 near '->'" >&2; exit 1`,
		5*time.Second, safemode.Unsafe)

	recorder := post(router, "/graphviz/svg", "digraph { -> }")
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", recorder.Code, recorder.Body.String())
	}
	response := decodeError(t, recorder)
	if response.Kind != diagram.KindBackendFailure {
		t.Errorf("kind = %q, want backend_failure", response.Kind)
	}
	if !strings.Contains(response.Error, "syntax error in line 1 near '->'") {
		t.Errorf("error %q does not relay the renderer diagnostic", response.Error)
	}
	if !strings.Contains(response.Error, "glyph-exec-") {
		t.Errorf("unsafe response %q should keep paths", response.Error)
	}
}

func TestSecureMasksPathsInDetail(t *testing.T) {
	router := newGraphvizRouter(t,
		`cat >/dev/null; echo "Error: $PWD/input.dot: syntax error in line 1" >&2; exit 1`,
		5*time.Second, safemode.Secure)

	response := decodeError(t, post(router, "/graphviz/svg", "digraph { -> }"))
	if strings.Contains(response.Error, "glyph-exec-") || !strings.Contains(response.Error, "Error: <path>: syntax error in line 1") {
		t.Errorf("secure error = %q, want paths masked", response.Error)
	}
}

func TestTimeoutIsExecutionFaultWithoutDetail(t *testing.T) {
	router := newGraphvizRouter(t, `echo "secret diagnostics" >&2; exec sleep 30`, 200*time.Millisecond, safemode.Unsafe)

	start := time.Now()
	recorder := post(router, "/graphviz/svg", "digraph {}")
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("timed-out conversion took %v", elapsed)
	}
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	response := decodeError(t, recorder)
	if response.Kind != diagram.KindExecutionFault || response.Error != "diagram conversion failed" {
		t.Errorf("response = %+v", response)
	}
	if strings.Contains(recorder.Body.String(), "secret") {
		t.Error("execution fault leaked renderer output")
	}
}

func TestPanickingBackendIsContained(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	spy.Respond = func(_ context.Context, request diagram.Request) (*diagram.Result, error) {
		if string(request.Source) == "boom" {
			panic("renderer bug")
		}
		return diagram.NewResult(diagram.FormatSVG, request.Source), nil
	}
	router := newTestRouter(t, spy, HandlerConfig{})

	if recorder := post(router, "/spy/svg", "boom"); recorder.Code != http.StatusInternalServerError {
		t.Errorf("panic: status = %d, want 500", recorder.Code)
	}
	if recorder := post(router, "/spy/svg", "fine"); recorder.Code != http.StatusOK {
		t.Errorf("request after panic: status = %d, want 200", recorder.Code)
	}
}

func TestForeignErrorIsExecutionFault(t *testing.T) {
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	spy.Respond = func(context.Context, diagram.Request) (*diagram.Result, error) {
		return nil, io.ErrUnexpectedEOF
	}
	recorder := post(newTestRouter(t, spy, HandlerConfig{}), "/spy/svg", "x")
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", recorder.Code)
	}
	if strings.Contains(recorder.Body.String(), "EOF") {
		t.Error("response leaked the underlying error")
	}
}

// --- pool ---

func TestPoolSaturationQueuesThenRejects(t *testing.T) {
	unblock := make(chan struct{})
	started := make(chan struct{}, 4)
	spy := diagramtest.NewSpy(diagram.FormatSVG)
	spy.Respond = func(_ context.Context, request diagram.Request) (*diagram.Result, error) {
		started <- struct{}{}
		<-unblock
		return diagram.NewResult(diagram.FormatSVG, request.Source), nil
	}
	pool := NewPool(PoolConfig{Workers: 1, MaxQueued: 1, QueueTimeout: 10 * time.Second})
	router := newTestRouter(t, spy, HandlerConfig{Pool: pool})

	results := make(chan int, 2)
	go func() { results <- post(router, "/spy/svg", "first").Code }()
	testutil.RequireReceive(t, started, 5*time.Second, "first conversion did not start")

	go func() { results <- post(router, "/spy/svg", "second").Code }()
	deadline := time.Now().Add(5 * time.Second)
	for pool.Waiting() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("second request never queued")
		}
		time.Sleep(time.Millisecond)
	}

	rejected := post(router, "/spy/svg", "third")
	if rejected.Code != http.StatusServiceUnavailable {
		t.Fatalf("third request: status = %d, want 503", rejected.Code)
	}
	if rejected.Header().Get("Retry-After") != "10" {
		t.Errorf("Retry-After = %q, want 10", rejected.Header().Get("Retry-After"))
	}
	if decodeError(t, rejected).Kind != diagram.KindOverloaded {
		t.Error("rejection kind is not overloaded")
	}

	close(unblock)
	for range 2 {
		if code := testutil.RequireReceive(t, results, 5*time.Second, "queued request did not finish"); code != http.StatusOK {
			t.Errorf("queued request status = %d, want 200", code)
		}
	}
	if spy.CallCount() != 2 {
		t.Errorf("backend called %d times, want 2", spy.CallCount())
	}
}

func TestPoolQueueTimeout(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, MaxQueued: 4, QueueTimeout: 20 * time.Millisecond})
	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = pool.Acquire(context.Background())
	if !diagram.IsKind(err, diagram.KindOverloaded) {
		t.Errorf("error = %v, want overloaded", err)
	}
	if pool.Waiting() != 0 {
		t.Errorf("Waiting = %d after timeout, want 0", pool.Waiting())
	}
}

func TestPoolWaiterHonorsCancellation(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, QueueTimeout: time.Minute})
	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	if !diagram.IsKind(err, diagram.KindExecutionFault) {
		t.Errorf("error = %v, want execution_fault", err)
	}
}

func TestPoolReleaseIsIdempotent(t *testing.T) {
	pool := NewPool(PoolConfig{Workers: 1, MaxQueued: -1})
	release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); !diagram.IsKind(err, diagram.KindOverloaded) {
		t.Errorf("Acquire with queuing disabled: error = %v, want overloaded", err)
	}
	release()
	release()
	if pool.Running() != 0 {
		t.Errorf("Running = %d, want 0", pool.Running())
	}
	second, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	second()
}

// --- auxiliary routes ---

func TestHealthAndHello(t *testing.T) {
	router := newTestRouter(t, diagramtest.NewSpy(diagram.FormatSVG), HandlerConfig{SafeMode: safemode.Safe})

	for _, path := range []string{"/health", "/healthz", "/v1/health"} {
		recorder := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if recorder.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d", path, recorder.Code)
			continue
		}
		var health healthResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &health); err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if health.Status != "pass" || len(health.Backends) != 2 {
			t.Errorf("GET %s = %+v", path, health)
		}
	}

	recorder := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	var hello helloResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	if hello.Name != "glyph" || hello.SafeMode != "safe" || len(hello.DiagramTypes) != 2 {
		t.Errorf("hello = %+v", hello)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	router := newTestRouter(t, diagramtest.NewSpy(diagram.FormatSVG), HandlerConfig{})
	recorder := serve(router, httptest.NewRequest(http.MethodGet, "/a/b/c/d", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
	if response := decodeError(t, recorder); response.Kind != "not_found" || response.RequestID == "" {
		t.Errorf("response = %+v", response)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := newTestRouter(t, diagramtest.NewSpy(diagram.FormatSVG), HandlerConfig{})

	request := httptest.NewRequest(http.MethodPost, "/nosuch/svg", strings.NewReader("x"))
	request.Header.Set("X-Request-Id", "trace-42")
	recorder := serve(router, request)
	if got := recorder.Header().Get("X-Request-Id"); got != "trace-42" {
		t.Errorf("X-Request-Id = %q, want trace-42", got)
	}
	if decodeError(t, recorder).RequestID != "trace-42" {
		t.Error("error body does not carry the request ID")
	}

	request = httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("X-Request-Id", "has spaces")
	if got := serve(router, request).Header().Get("X-Request-Id"); got == "has spaces" || got == "" {
		t.Errorf("malformed incoming ID handled as %q, want a fresh ID", got)
	}
}

func TestNewHandlerSealsRegistry(t *testing.T) {
	registry := diagram.NewRegistry()
	if _, err := NewHandler(HandlerConfig{Registry: registry, Logger: discardLogger()}); err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	if !registry.Sealed() {
		t.Error("registry is not sealed")
	}
	if _, err := NewHandler(HandlerConfig{}); err == nil {
		t.Error("NewHandler without a registry succeeded")
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	registry := diagram.NewRegistry()
	registry.MustRegister(diagramtest.NewSpy(diagram.FormatSVG), "spy")
	server, err := NewServer(ServerConfig{
		ListenAddress: "127.0.0.1:0",
		Handler:       HandlerConfig{Registry: registry},
		Logger:        discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	response, err := http.Post("http://"+server.Addr().String()+"/spy/svg", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if response.StatusCode != http.StatusOK || string(body) != "hello" {
		t.Errorf("response = %d %q", response.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
