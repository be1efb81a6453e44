package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/nuqta/compiler"
)

// Procedures served by CompileService.
const (
	CompileProcedure = "/nuqta.v1.CompileService/Compile"
	DumpProcedure    = "/nuqta.v1.CompileService/Dump"
)

// CompileService exposes the pipeline over Connect. Requests carry the
// source text as a StringValue; no generated stubs are needed.
type CompileService struct {
	worker *CompileWorker
}

// NewCompileService creates a CompileService backed by the given worker.
func NewCompileService(worker *CompileWorker) *CompileService {
	return &CompileService{worker: worker}
}

// Handlers returns the Connect handlers keyed by procedure path.
func (s *CompileService) Handlers(opts ...connect.HandlerOption) map[string]http.Handler {
	return map[string]http.Handler{
		CompileProcedure: connect.NewUnaryHandler(CompileProcedure, s.Compile, opts...),
		DumpProcedure:    connect.NewUnaryHandler(DumpProcedure, s.Dump, opts...),
	}
}

// Compile runs the full pipeline and returns TAC, backend text and
// diagnostics. A program with errors is not an RPC failure: ok is false and
// diagnostics explain why.
func (s *CompileService) Compile(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	src := req.Msg.GetValue()
	if strings.TrimSpace(src) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("source is required"))
	}

	res, err := s.worker.Compile(ctx, src)
	if err != nil {
		return nil, workerError(err)
	}

	diags := make([]any, 0, len(res.Diagnostics))
	for _, d := range res.DiagnosticStrings() {
		diags = append(diags, d)
	}
	out, err := structpb.NewStruct(map[string]any{
		"tac":         res.TAC,
		"backend":     res.Backend,
		"diagnostics": diags,
		"ok":          !res.HasErrors(),
		"hash":        res.Hash,
		"cached":      res.Cached,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// Dump parses the source and returns its s-expression AST. Syntax errors
// are returned as InvalidArgument.
func (s *CompileService) Dump(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	prog, diags := compiler.ParseSource(req.Msg.GetValue())
	if compiler.HasErrors(diags) {
		msgs := make([]string, 0, len(diags))
		for _, d := range diags {
			msgs = append(msgs, d.String())
		}
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New(strings.Join(msgs, "; ")))
	}
	return connect.NewResponse(wrapperspb.String(compiler.Dump(prog))), nil
}

func workerError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, ErrWorkerStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
