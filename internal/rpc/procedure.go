package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind int

const (
	KindQuery Kind = iota
	KindMutation
)

func (k Kind) String() string {
	if k == KindMutation {
		return "mutation"
	}
	return "query"
}

// Defaulter is implemented by input types that fill optional fields after
// decoding and before validation.
type Defaulter interface {
	SetDefaults()
}

type handlerFunc func(ctx context.Context, raw json.RawMessage, v *validator.Validate) (any, error)

// Procedure is one callable entry of the routing table.
type Procedure struct {
	Path string
	Kind Kind
	call handlerFunc
}

// Query declares a read-only procedure reachable with GET.
func Query[In, Out any](path string, fn func(context.Context, In) (Out, error)) Procedure {
	return Procedure{Path: path, Kind: KindQuery, call: typed(fn)}
}

// Mutation declares a procedure reachable with POST.
func Mutation[In, Out any](path string, fn func(context.Context, In) (Out, error)) Procedure {
	return Procedure{Path: path, Kind: KindMutation, call: typed(fn)}
}

// NoInput is the input type of procedures that take no arguments.
type NoInput struct{}

func typed[In, Out any](fn func(context.Context, In) (Out, error)) handlerFunc {
	return func(ctx context.Context, raw json.RawMessage, v *validator.Validate) (any, error) {
		in, err := decodeInput[In](raw, v)
		if err != nil {
			return nil, err
		}
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func decodeInput[In any](raw json.RawMessage, v *validator.Validate) (In, error) {
	var in In
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return in, Wrap(BadRequest, err, inputDecodeMessage(err))
		}
	}
	if d, ok := any(&in).(Defaulter); ok {
		d.SetDefaults()
	}
	if reflect.TypeOf(in).Kind() != reflect.Struct {
		return in, nil
	}
	if err := v.Struct(in); err != nil {
		return in, validationError(err)
	}
	return in, nil
}

func inputDecodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return fmt.Sprintf("input: expected object, received %s", typeErr.Value)
		}
		return fmt.Sprintf("%s: expected %s, received %s", typeErr.Field, jsonKind(typeErr.Type), typeErr.Value)
	}
	return "invalid input"
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return "number"
	}
}

// NewValidator returns a validator that reports JSON field names and knows
// the "odd" tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return fl.Field().Int()%2 != 0
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return f == float64(int64(f)) && int64(f)%2 != 0
		}
		return false
	})
	return v
}

func validationError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Wrap(BadRequest, err, "invalid input")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &Error{Code: BadRequest, Message: strings.Join(msgs, "; "), Cause: err}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": required"
	case "min", "gte":
		return fmt.Sprintf("%s: must be greater than or equal to %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s: must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "odd":
		return field + ": must be an odd number"
	case "isodate":
		return field + ": must be a date (YYYY-MM-DD or ISO 8601)"
	default:
		return fmt.Sprintf("%s: failed %q check", field, fe.Tag())
	}
}
