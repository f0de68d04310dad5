package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var packageSchema string

const schemaURL = "package.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, strings.NewReader(packageSchema)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// Schema checks v (a package or any JSON-marshalable document) against the package
// schema and returns one issue per failing leaf, "schema: <location>: <message>".
// The error is reserved for failures to marshal v or compile the schema.
func Schema(v any) ([]string, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile package schema: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	err = sch.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	var issues []string
	collectLeaves(verr, &issues)
	return issues, nil
}

func collectLeaves(e *jsonschema.ValidationError, out *[]string) {
	if len(e.Causes) == 0 {
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("schema: %s: %s", loc, e.Message))
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}
