// Package rpc serves typed procedures over HTTP using the tRPC wire
// convention: queries over GET, mutations over POST, optional batching and
// superjson-style {"json": ...} envelopes.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/triggerstix/GANNTRADINGAPP/internal/metrics"
)

const (
	maxBodyBytes        = 1 << 20
	defaultMaxParallel  = 8
	unknownProcedureTag = "unknown"
)

type Router struct {
	procs       map[string]Procedure
	validate    *validator.Validate
	log         zerolog.Logger
	maxParallel int
}

func NewRouter(log zerolog.Logger) *Router {
	return &Router{
		procs:       make(map[string]Procedure),
		validate:    NewValidator(),
		log:         log,
		maxParallel: defaultMaxParallel,
	}
}

// Register adds procedures to the routing table. Registering a path twice
// panics.
func (rt *Router) Register(procs ...Procedure) {
	for _, p := range procs {
		if _, dup := rt.procs[p.Path]; dup {
			panic(fmt.Sprintf("rpc: duplicate procedure %q", p.Path))
		}
		rt.procs[p.Path] = p
	}
}

// RegisterValidation makes a custom validate tag available to input structs.
func (rt *Router) RegisterValidation(tag string, fn validator.Func) error {
	return rt.validate.RegisterValidation(tag, fn)
}

// Paths lists registered procedure paths in sorted order.
func (rt *Router) Paths() []string {
	out := make([]string, 0, len(rt.procs))
	for p := range rt.procs {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// --- wire envelopes ---

type response struct {
	Result *result        `json:"result,omitempty"`
	Error  *errorEnvelope `json:"error,omitempty"`
	status int
}

type result struct {
	Data jsonWrap `json:"data"`
}

type jsonWrap struct {
	JSON json.RawMessage `json:"json"`
}

type errorEnvelope struct {
	JSON errorShape `json:"json"`
}

type errorShape struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Data    errorData `json:"data"`
}

type errorData struct {
	Code       Code   `json:"code"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path,omitempty"`
}

func errorResponse(e *Error, path string) response {
	return response{
		Error: &errorEnvelope{JSON: errorShape{
			Message: e.Message,
			Code:    e.Code.JSONRPC(),
			Data:    errorData{Code: e.Code, HTTPStatus: e.Code.HTTPStatus(), Path: path},
		}},
		status: e.Code.HTTPStatus(),
	}
}

// --- handler ---

// ServeHTTP expects the mount prefix to be stripped, leaving "/{path}".
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	batch := isBatch(r.URL.Query().Get("batch"))

	paths := []string{path}
	if batch {
		paths = strings.Split(path, ",")
	}

	var want Kind
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		want = KindQuery
	case http.MethodPost:
		want = KindMutation
	default:
		rt.writeAll(w, batch, paths, Errorf(MethodNotSupported, "Unsupported %s-request", r.Method))
		return
	}

	inputs, perr := readInputs(r, batch, len(paths))
	if perr != nil {
		rt.writeAll(w, batch, paths, perr)
		return
	}

	responses := make([]response, len(paths))
	if len(paths) == 1 {
		responses[0] = rt.call(r.Context(), paths[0], want, inputs[0])
	} else {
		var g errgroup.Group
		g.SetLimit(rt.maxParallel)
		for i := range paths {
			g.Go(func() error {
				responses[i] = rt.call(r.Context(), paths[i], want, inputs[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	if !batch {
		writeJSON(w, responses[0].status, responses[0])
		return
	}
	writeJSON(w, batchStatus(responses), responses)
}

func (rt *Router) writeAll(w http.ResponseWriter, batch bool, paths []string, e *Error) {
	responses := make([]response, len(paths))
	for i, p := range paths {
		responses[i] = errorResponse(e, p)
		metrics.RPCRequests.WithLabelValues(rt.metricPath(p), string(e.Code)).Inc()
	}
	if !batch {
		writeJSON(w, responses[0].status, responses[0])
		return
	}
	writeJSON(w, batchStatus(responses), responses)
}

func (rt *Router) call(ctx context.Context, path string, want Kind, raw json.RawMessage) (resp response) {
	start := time.Now()
	label := rt.metricPath(path)
	code := "OK"
	defer func() {
		metrics.RPCRequests.WithLabelValues(label, code).Inc()
		metrics.RPCDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	fail := func(e *Error) response {
		code = string(e.Code)
		ev := rt.log.Debug()
		if e.Code == InternalServerError {
			ev = rt.log.Error()
		}
		ev.Err(e.Cause).Str("procedure", path).Str("code", code).Msg(e.Message)
		return errorResponse(e, path)
	}

	proc, ok := rt.procs[path]
	if !ok {
		return fail(Errorf(NotFound, "No %q-procedure on path %q", want.String(), path))
	}
	if proc.Kind != want {
		return fail(Errorf(MethodNotSupported, "Unsupported %s on %s procedure at path %q", methodFor(want), proc.Kind, path))
	}

	out, err := rt.invoke(ctx, proc, raw)
	if err != nil {
		return fail(asError(err))
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fail(Wrap(InternalServerError, err, "output validation failed"))
	}
	return response{Result: &result{Data: jsonWrap{JSON: data}}, status: http.StatusOK}
}

func (rt *Router) invoke(ctx context.Context, proc Procedure, raw json.RawMessage) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Wrap(InternalServerError, fmt.Errorf("panic: %v", p), "Internal server error")
		}
	}()
	return proc.call(ctx, raw, rt.validate)
}

func (rt *Router) metricPath(path string) string {
	if _, ok := rt.procs[path]; ok {
		return path
	}
	return unknownProcedureTag
}

func methodFor(k Kind) string {
	if k == KindMutation {
		return "POST"
	}
	return "GET"
}

func isBatch(v string) bool {
	return v == "1" || v == "true"
}

// batchStatus is the shared status when all calls agree, otherwise 207.
func batchStatus(rs []response) int {
	status := rs[0].status
	for _, r := range rs[1:] {
		if r.status != status {
			return http.StatusMultiStatus
		}
	}
	return status
}

// readInputs returns one raw input per call. Missing inputs are nil.
func readInputs(r *http.Request, batch bool, n int) ([]json.RawMessage, *Error) {
	var src []byte
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, Wrap(ParseError, err, "failed to read request body")
		}
		src = body
	} else {
		src = []byte(r.URL.Query().Get("input"))
	}

	inputs := make([]json.RawMessage, n)
	src = bytes.TrimSpace(src)
	if len(src) == 0 {
		return inputs, nil
	}
	if !json.Valid(src) {
		return nil, Errorf(ParseError, "input is not valid JSON")
	}

	if !batch {
		inputs[0] = unwrap(src)
		return inputs, nil
	}

	var byIndex map[string]json.RawMessage
	if err := json.Unmarshal(src, &byIndex); err != nil {
		return nil, Wrap(ParseError, err, `batch input must be an object keyed by call index`)
	}
	for i := range inputs {
		if raw, ok := byIndex[strconv.Itoa(i)]; ok {
			inputs[i] = unwrap(raw)
		}
	}
	return inputs, nil
}

// unwrap strips a {"json": ..., "meta"?: ...} envelope. JSON null is
// treated as no input.
func unwrap(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '{' {
		return raw
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	inner, ok := env["json"]
	if !ok {
		return raw
	}
	for k := range env {
		if k != "json" && k != "meta" {
			return raw
		}
	}
	inner = bytes.TrimSpace(inner)
	if bytes.Equal(inner, []byte("null")) {
		return nil
	}
	return inner
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
