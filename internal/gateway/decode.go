package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodeObject decodes one record and checks it against its validate tags.
func decodeObject[T any](op string, body []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(body)) == 0 {
		return out, &Error{Kind: KindMalformedResponse, Op: op, Message: "empty response body"}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, decodeError(op, err)
	}
	if err := validate.Struct(out); err != nil {
		return out, validationError(op, describeValidation(err), err)
	}
	return out, nil
}

// decodeList requires a JSON array and validates every element before returning
// any of them, so a single bad record fails the whole call.
func decodeList[T any](op string, body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &Error{Kind: KindMalformedResponse, Op: op, Message: "empty response body"}
	}
	if !json.Valid(trimmed) {
		return nil, &Error{Kind: KindMalformedResponse, Op: op, Message: "invalid JSON"}
	}
	if trimmed[0] != '[' {
		return nil, validationError(op, fmt.Sprintf("expected array, got %s", jsonKind(trimmed[0])), nil)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, decodeError(op, err)
	}

	out := make([]T, 0, len(raw))
	for i, item := range raw {
		v, err := decodeObject[T](op, item)
		if err != nil {
			var gwErr *Error
			if errors.As(err, &gwErr) {
				gwErr.Message = fmt.Sprintf("item %d: %s", i, gwErr.Message)
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeError(op string, err error) *Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return validationError(op, fmt.Sprintf("field %q has wrong type %s", typeErr.Field, typeErr.Value), err)
	}
	return &Error{Kind: KindMalformedResponse, Op: op, Message: "invalid JSON", Err: err}
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required field %s", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("field %s has unknown value %v", fe.Namespace(), fe.Value())
	default:
		return fmt.Sprintf("field %s failed %s check", fe.Namespace(), fe.Tag())
	}
}

func jsonKind(first byte) string {
	switch first {
	case '{':
		return "object"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}
