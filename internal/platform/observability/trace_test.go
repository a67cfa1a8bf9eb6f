package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspark/api/internal/platform/requestctx"
)

func TestTraceMiddlewareStoresTraceForEveryRequest(t *testing.T) {
	var (
		info requestctx.TraceInfo
		ok   bool
	)
	handler := TraceMiddleware("demo-project")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok = requestctx.Trace(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if !ok {
		t.Fatal("trace metadata missing for request without trace header")
	}
	if info.TraceID == "" || info.SpanID == "" {
		t.Errorf("trace identifiers not populated: %+v", info)
	}
	if info.ProjectID != "demo-project" {
		t.Errorf("project id = %q, want demo-project", info.ProjectID)
	}
}

func TestTraceMiddlewarePropagatesRemoteTrace(t *testing.T) {
	const (
		traceID = "105445aa7843bc8bf206b12000100000"
		spanID  = "0000000000000001"
	)

	var info requestctx.TraceInfo
	handler := TraceMiddleware("demo-project")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ = requestctx.Trace(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("X-Cloud-Trace-Context", traceID+"/"+spanID+";o=1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if info.TraceID != traceID {
		t.Errorf("trace id = %q, want %q", info.TraceID, traceID)
	}
	if !info.Sampled {
		t.Error("sampled flag not propagated")
	}
	if got := rec.Header().Get("X-Cloud-Trace-Context"); !strings.HasPrefix(got, traceID+"/") || !strings.HasSuffix(got, ";o=1") {
		t.Errorf("response trace header = %q", got)
	}
}

func TestParseCloudTraceContext(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		ok      bool
		sampled bool
	}{
		{name: "hex span id", header: "105445aa7843bc8bf206b12000100000/0000000000000001;o=1", ok: true, sampled: true},
		{name: "decimal span id", header: "105445aa7843bc8bf206b12000100000/1;o=0", ok: true},
		{name: "missing span part", header: "105445aa7843bc8bf206b12000100000", ok: false},
		{name: "short trace id", header: "abc123/1;o=1", ok: false},
		{name: "empty", header: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, spanCtx, ok := parseCloudTraceContext(tc.header)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if !spanCtx.IsValid() {
				t.Error("span context not valid")
			}
			if info.Sampled != tc.sampled {
				t.Errorf("sampled = %v, want %v", info.Sampled, tc.sampled)
			}
		})
	}
}
