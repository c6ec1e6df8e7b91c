package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type echoInput struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=1,lte=5"`
}

func (in *echoInput) SetDefaults() {
	if in.Count == 0 {
		in.Count = 1
	}
}

type gridInput struct {
	Size int `json:"size" validate:"min=7,max=21,odd"`
}

func testRouter() *Router {
	rt := NewRouter(zerolog.Nop())
	rt.Register(
		Query("test.echo", func(_ context.Context, in echoInput) (string, error) {
			return strings.Repeat(in.Name, in.Count), nil
		}),
		Query("test.grid", func(_ context.Context, in gridInput) (int, error) {
			return in.Size * in.Size, nil
		}),
		Query("test.nan", func(context.Context, NoInput) (float64, error) {
			return math.NaN(), nil
		}),
		Query("test.fail", func(context.Context, NoInput) (any, error) {
			return nil, Wrap(InternalServerError, errors.New("socket closed"), "Failed to fetch market data for AAPL")
		}),
		Query("test.panic", func(context.Context, NoInput) (any, error) {
			panic("boom")
		}),
		Query("test.null", func(context.Context, NoInput) (*echoInput, error) {
			return nil, nil
		}),
		Mutation("test.logout", func(context.Context, NoInput) (map[string]bool, error) {
			return map[string]bool{"success": true}, nil
		}),
	)
	return rt
}

func get(t *testing.T, rt *Router, path, input string, batch bool) *httptest.ResponseRecorder {
	t.Helper()
	q := url.Values{}
	if input != "" {
		q.Set("input", input)
	}
	if batch {
		q.Set("batch", "1")
	}
	target := "/" + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, req)
	return rr
}

type testResponse struct {
	Result *struct {
		Data struct {
			JSON json.RawMessage `json:"json"`
		} `json:"data"`
	} `json:"result"`
	Error *struct {
		JSON struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
			Data    struct {
				Code       string `json:"code"`
				HTTPStatus int    `json:"httpStatus"`
				Path       string `json:"path"`
			} `json:"data"`
		} `json:"json"`
	} `json:"error"`
}

func decodeOne(t *testing.T, rr *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var out testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestQuery_Success(t *testing.T) {
	rr := get(t, testRouter(), "test.echo", `{"name":"ab","count":2}`, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	resp := decodeOne(t, rr)
	if string(resp.Result.Data.JSON) != `"abab"` {
		t.Errorf("result = %s", resp.Result.Data.JSON)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestQuery_SuperjsonEnvelope(t *testing.T) {
	rr := get(t, testRouter(), "test.echo", `{"json":{"name":"x"},"meta":{"values":{}}}`, false)
	resp := decodeOne(t, rr)
	if resp.Result == nil || string(resp.Result.Data.JSON) != `"x"` {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		input      string
		wantStatus int
		wantCode   string
		wantRPC    int
		wantMsg    string
	}{
		{"unknown procedure", "test.missing", "", 404, "NOT_FOUND", -32004, `No "query"-procedure on path "test.missing"`},
		{"malformed json", "test.echo", `{"name":`, 400, "PARSE_ERROR", -32700, "input is not valid JSON"},
		{"missing field", "test.echo", `{}`, 400, "BAD_REQUEST", -32600, "name: required"},
		{"wrong type", "test.echo", `{"name":5}`, 400, "BAD_REQUEST", -32600, "name: expected string, received number"},
		{"range", "test.echo", `{"name":"a","count":9}`, 400, "BAD_REQUEST", -32600, "count: must be less than or equal to 5"},
		{"even grid", "test.grid", `{"size":8}`, 400, "BAD_REQUEST", -32600, "size: must be an odd number"},
		{"small grid", "test.grid", `{"size":5}`, 400, "BAD_REQUEST", -32600, "size: must be greater than or equal to 7"},
		{"nan output", "test.nan", "", 500, "INTERNAL_SERVER_ERROR", -32603, "output validation failed"},
		{"handler error", "test.fail", "", 500, "INTERNAL_SERVER_ERROR", -32603, "Failed to fetch market data for AAPL"},
		{"panic", "test.panic", "", 500, "INTERNAL_SERVER_ERROR", -32603, "Internal server error"},
		{"mutation over GET", "test.logout", "", 405, "METHOD_NOT_SUPPORTED", -32005, ""},
	}

	rt := testRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, rt, tt.path, tt.input, false)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body)
			}
			resp := decodeOne(t, rr)
			if resp.Error == nil {
				t.Fatalf("expected error envelope, got %s", rr.Body)
			}
			e := resp.Error.JSON
			if e.Data.Code != tt.wantCode || e.Code != tt.wantRPC || e.Data.HTTPStatus != tt.wantStatus {
				t.Errorf("error = %+v", e)
			}
			if e.Data.Path != tt.path {
				t.Errorf("path = %q, want %q", e.Data.Path, tt.path)
			}
			if tt.wantMsg != "" && e.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestQuery_NullResult(t *testing.T) {
	resp := decodeOne(t, get(t, testRouter(), "test.null", "", false))
	if resp.Result == nil || string(resp.Result.Data.JSON) != "null" {
		t.Errorf("result = %+v", resp.Result)
	}
}

func TestMutation(t *testing.T) {
	rt := testRouter()

	req := httptest.NewRequest(http.MethodPost, "/test.logout", nil)
	rr := httptest.NewRecorder()
	rt.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if got := string(decodeOne(t, rr).Result.Data.JSON); got != `{"success":true}` {
		t.Errorf("result = %s", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/test.echo", strings.NewReader(`{"json":{"name":"a"}}`))
	rr = httptest.NewRecorder()
	rt.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("query over POST status = %d, want 405", rr.Code)
	}
}

func TestUnsupportedMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/test.echo", nil)
	rr := httptest.NewRecorder()
	testRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestBatch(t *testing.T) {
	rr := get(t, testRouter(), "test.echo,test.grid,test.missing",
		`{"0":{"json":{"name":"z","count":3}},"1":{"size":9}}`, true)

	if rr.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rr.Code)
	}
	var out []testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	if string(out[0].Result.Data.JSON) != `"zzz"` {
		t.Errorf("call 0 = %s", out[0].Result.Data.JSON)
	}
	if string(out[1].Result.Data.JSON) != "81" {
		t.Errorf("call 1 = %s", out[1].Result.Data.JSON)
	}
	if out[2].Error == nil || out[2].Error.JSON.Data.Code != "NOT_FOUND" {
		t.Errorf("call 2 = %+v", out[2])
	}
}

func TestBatch_AllOK(t *testing.T) {
	rr := get(t, testRouter(), "test.grid,test.grid", `{"0":{"size":7},"1":{"size":21}}`, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestBatch_BadInputShape(t *testing.T) {
	rr := get(t, testRouter(), "test.grid,test.grid", `[1,2]`, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var out []testResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Error.JSON.Data.Code != "PARSE_ERROR" {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate path")
		}
	}()
	rt := NewRouter(zerolog.Nop())
	p := Query("a.b", func(context.Context, NoInput) (int, error) { return 1, nil })
	rt.Register(p, p)
}

func TestPaths(t *testing.T) {
	rt := NewRouter(zerolog.Nop())
	rt.Register(
		Query("market.b", func(context.Context, NoInput) (int, error) { return 1, nil }),
		Mutation("auth.a", func(context.Context, NoInput) (bool, error) { return true, nil }),
	)
	if got := rt.Paths(); len(got) != 2 || got[0] != "auth.a" || got[1] != "market.b" {
		t.Errorf("paths = %v", got)
	}
}

func TestUnwrap(t *testing.T) {
	tests := map[string]string{
		`{"json":{"a":1}}`:           `{"a":1}`,
		`{"json":{"a":1},"meta":{}}`: `{"a":1}`,
		`{"json":1,"other":2}`:       `{"json":1,"other":2}`,
		`{"a":1}`:                    `{"a":1}`,
		`[1]`:                        `[1]`,
	}
	for in, want := range tests {
		if got := string(unwrap(json.RawMessage(in))); got != want {
			t.Errorf("unwrap(%s) = %s, want %s", in, got, want)
		}
	}
	if unwrap(json.RawMessage(`null`)) != nil || unwrap(json.RawMessage(`{"json":null}`)) != nil {
		t.Error("null inputs should unwrap to nil")
	}
}
