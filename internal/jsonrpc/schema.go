package jsonrpc

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

func idSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"string", "number"}}
}

// Envelope schemas are loose: unknown members are allowed and params/result
// may hold any JSON value.
var (
	requestSchema = &jsonschema.Schema{
		Type:     "object",
		Required: []string{"id", "method"},
		Properties: map[string]*jsonschema.Schema{
			"id":     idSchema(),
			"method": {Type: "string"},
		},
	}

	notificationSchema = &jsonschema.Schema{
		Type:     "object",
		Required: []string{"method"},
		Properties: map[string]*jsonschema.Schema{
			"method": {Type: "string"},
		},
		Not: &jsonschema.Schema{Required: []string{"id"}},
	}

	responseSchema = &jsonschema.Schema{
		Type:     "object",
		Required: []string{"id", "result"},
		Properties: map[string]*jsonschema.Schema{
			"id": idSchema(),
		},
	}

	errorSchema = &jsonschema.Schema{
		Type:     "object",
		Required: []string{"id", "error"},
		Properties: map[string]*jsonschema.Schema{
			"id": idSchema(),
			"error": {
				Type:     "object",
				Required: []string{"code", "message"},
				Properties: map[string]*jsonschema.Schema{
					"code":    {Type: "integer"},
					"message": {Type: "string"},
				},
			},
		},
	}
)

// Validator checks decoded JSON values against the four envelope schemas.
type Validator struct {
	resolved map[Kind]*jsonschema.Resolved
}

var (
	defaultValidator     *Validator
	defaultValidatorErr  error
	defaultValidatorOnce sync.Once
)

// DefaultValidator returns the shared validator, resolving the schemas on
// first use.
func DefaultValidator() (*Validator, error) {
	defaultValidatorOnce.Do(func() {
		defaultValidator, defaultValidatorErr = NewValidator()
	})

	return defaultValidator, defaultValidatorErr
}

// NewValidator resolves the envelope schemas.
func NewValidator() (*Validator, error) {
	schemas := map[Kind]*jsonschema.Schema{
		KindRequest:      requestSchema,
		KindNotification: notificationSchema,
		KindResponse:     responseSchema,
		KindError:        errorSchema,
	}

	v := &Validator{resolved: make(map[Kind]*jsonschema.Resolved, len(schemas))}

	for kind, schema := range schemas {
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve %s schema: %w", kind, err)
		}

		v.resolved[kind] = resolved
	}

	return v, nil
}

// Validate checks instance, a value produced by json.Unmarshal into any,
// against the schema for kind.
func (v *Validator) Validate(kind Kind, instance any) error {
	resolved, ok := v.resolved[kind]
	if !ok {
		return fmt.Errorf("no schema for envelope kind %d", kind)
	}

	return resolved.Validate(instance)
}

// Classify returns the first envelope kind instance conforms to, checking
// response, error, request and notification in that order.
func (v *Validator) Classify(instance any) (Kind, bool) {
	for _, kind := range classifyOrder {
		if v.Validate(kind, instance) == nil {
			return kind, true
		}
	}

	return 0, false
}

var classifyOrder = []Kind{KindResponse, KindError, KindRequest, KindNotification}
