package codexsdk

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// OutputSchemaFor infers a JSON Schema from T for WithOutputSchema.
//
//	type Verdict struct {
//	    Approve bool     `json:"approve"`
//	    Reasons []string `json:"reasons"`
//	}
//
//	schema, err := codexsdk.OutputSchemaFor[Verdict]()
//	...
//	result, err := codexsdk.Run(ctx, prompt, codexsdk.WithOutputSchema(schema))
func OutputSchemaFor[T any]() (*Schema, error) {
	return jsonschema.For[T](nil)
}
