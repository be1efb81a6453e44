package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/nalgeon/be"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/nuqta/cache"
	"github.com/chazu/nuqta/driver"
)

func newTestServer(t *testing.T, opts driver.Options) *httptest.Server {
	t.Helper()
	s := New(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return ts
}

func compileClient(ts *httptest.Server) *connect.Client[wrapperspb.StringValue, structpb.Struct] {
	return connect.NewClient[wrapperspb.StringValue, structpb.Struct](http.DefaultClient, ts.URL+CompileProcedure)
}

func TestCompileService_Compile(t *testing.T) {
	ts := newTestServer(t, driver.DefaultOptions())
	client := compileClient(ts)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("int x = 1 + 2 .")))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	fields := resp.Msg.GetFields()
	be.True(t, fields["ok"].GetBoolValue())
	be.Equal(t, len(fields["diagnostics"].GetListValue().GetValues()), 0)

	tac := fields["tac"].GetStringValue()
	if !strings.Contains(tac, "_t0 = 1 + 2") || !strings.Contains(tac, "x = _t0") {
		t.Errorf("tac = %q, want add and copy", tac)
	}
	backend := fields["backend"].GetStringValue()
	if !strings.Contains(backend, "export function l $main()") {
		t.Errorf("backend = %q, want main function", backend)
	}
}

func TestCompileService_Diagnostics(t *testing.T) {
	ts := newTestServer(t, driver.DefaultOptions())
	client := compileClient(ts)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("int x = y .")))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	fields := resp.Msg.GetFields()
	be.True(t, !fields["ok"].GetBoolValue())
	be.Equal(t, fields["tac"].GetStringValue(), "")

	diags := fields["diagnostics"].GetListValue().GetValues()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want 1", diags)
	}
	if got := diags[0].GetStringValue(); !strings.Contains(got, "undeclared variable y") {
		t.Errorf("diagnostic = %q, want undeclared variable y", got)
	}
}

func TestCompileService_EmptySource(t *testing.T) {
	ts := newTestServer(t, driver.DefaultOptions())
	client := compileClient(ts)

	_, err := client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("  \n")))
	if err == nil {
		t.Fatal("expected error for empty source")
	}
	be.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestCompileService_Cached(t *testing.T) {
	c, err := cache.Open(":memory:")
	be.Err(t, err, nil)
	defer c.Close()

	ts := newTestServer(t, driver.Options{StopOnSyntaxErrors: true, Cache: c})
	client := compileClient(ts)

	src := "int a = 4 . a = a * 2 ."
	first, err := client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String(src)))
	be.Err(t, err, nil)
	be.True(t, !first.Msg.GetFields()["cached"].GetBoolValue())

	// Same tree, different layout.
	second, err := client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("int a = 4 .\n\n a = a*2 .")))
	be.Err(t, err, nil)
	be.True(t, second.Msg.GetFields()["cached"].GetBoolValue())
	be.Equal(t, second.Msg.GetFields()["tac"].GetStringValue(), first.Msg.GetFields()["tac"].GetStringValue())
	be.Equal(t, second.Msg.GetFields()["hash"].GetStringValue(), first.Msg.GetFields()["hash"].GetStringValue())
}

func TestCompileService_Dump(t *testing.T) {
	ts := newTestServer(t, driver.DefaultOptions())
	client := connect.NewClient[wrapperspb.StringValue, wrapperspb.StringValue](http.DefaultClient, ts.URL+DumpProcedure)

	resp, err := client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("int x = 1 + 2 .")))
	be.Err(t, err, nil)
	be.Equal(t, resp.Msg.GetValue(), "(var int x (+ 1 2))\n")

	_, err = client.CallUnary(context.Background(), connect.NewRequest(wrapperspb.String("int = .")))
	be.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestWorkerError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{context.Canceled, connect.CodeCanceled},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{ErrWorkerStopped, connect.CodeUnavailable},
		{errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		if got := connect.CodeOf(workerError(tt.err)); got != tt.want {
			t.Errorf("workerError(%v) code = %v, want %v", tt.err, got, tt.want)
		}
	}
}
