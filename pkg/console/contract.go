package console

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrInvalidBody is returned when a request body does not match the API
// contract.
var ErrInvalidBody = errors.New("console: invalid request body")

//go:embed api/openapi.yaml
var contractYAML []byte

// Contract validates JSON request bodies against the console's OpenAPI
// document.
type Contract struct {
	doc *openapi3.T
}

// ContractYAML returns the raw OpenAPI document served at /api/openapi.yaml.
func ContractYAML() []byte {
	return contractYAML
}

// LoadContract parses and validates the embedded OpenAPI document.
func LoadContract(ctx context.Context) (*Contract, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("console: load api contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("console: invalid api contract: %w", err)
	}
	return &Contract{doc: doc}, nil
}

// Operations lists "METHOD path" pairs described by the contract.
func (c *Contract) Operations() []string {
	var out []string
	for _, path := range c.doc.Paths.InMatchingOrder() {
		item := c.doc.Paths.Value(path)
		for method := range item.Operations() {
			out = append(out, method+" "+path)
		}
	}
	return out
}

// ValidateBody checks body against the JSON request schema of method/path.
// Operations without a request body accept any payload.
func (c *Contract) ValidateBody(method, path string, body []byte) error {
	if c == nil || c.doc == nil {
		return nil
	}
	item := c.doc.Paths.Value(path)
	if item == nil {
		return fmt.Errorf("console: %s is not part of the api contract", path)
	}
	op := item.GetOperation(strings.ToUpper(method))
	if op == nil {
		return fmt.Errorf("console: %s %s is not part of the api contract", method, path)
	}
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	reqBody := op.RequestBody.Value
	if len(strings.TrimSpace(string(body))) == 0 {
		if reqBody.Required {
			return fmt.Errorf("%w: body is required", ErrInvalidBody)
		}
		return nil
	}
	media := reqBody.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if err := media.Schema.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBody, schemaMessage(err))
	}
	return nil
}

func schemaMessage(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		field := strings.Join(schemaErr.JSONPointer(), ".")
		if field == "" {
			return schemaErr.Reason
		}
		return field + ": " + schemaErr.Reason
	}
	var multi openapi3.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		return schemaMessage(multi[0])
	}
	return err.Error()
}

// methodAllowed reports whether method is a write method that carries a body.
func methodAllowed(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
