// Package contract embeds the OpenAPI description of the CRM API and
// validates HTTP traffic against it.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec returns the raw embedded OpenAPI document
func Spec() []byte {
	return bytes.Clone(specYAML)
}

// Load parses and validates the embedded contract
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load API contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid API contract: %w", err)
	}
	return doc, nil
}

// Validator checks requests and responses against the contract
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewValidator loads the contract and builds its router
func NewValidator(ctx context.Context) (*Validator, error) {
	doc, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build contract router: %w", err)
	}
	return &Validator{doc: doc, router: router}, nil
}

// ErrUnknownRoute is returned for requests the contract does not describe
var ErrUnknownRoute = stderrors.New("route not described by the API contract")

// ValidateRequest checks method, path, parameters and body of r. The body is
// restored so handlers can still read it. Authentication is not checked here.
func (v *Validator) ValidateRequest(r *http.Request) error {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		return fmt.Errorf("%w: %s %s", ErrUnknownRoute, r.Method, r.URL.Path)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			MultiError:         false,
		},
	}
	return openapi3filter.ValidateRequest(r.Context(), input)
}

// ValidateResponse checks a recorded response to r against the contract
func (v *Validator) ValidateResponse(r *http.Request, status int, header http.Header, body []byte) error {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		return fmt.Errorf("%w: %s %s", ErrUnknownRoute, r.Method, r.URL.Path)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		},
		Status: status,
		Header: header,
		Body:   io.NopCloser(bytes.NewReader(body)),
	}
	return openapi3filter.ValidateResponse(r.Context(), input)
}

// Covers reports whether the contract describes method on path. path is
// relative to the API base ("/leads", "/emails/{id}").
func (v *Validator) Covers(method, path string) bool {
	item := v.doc.Paths.Find(path)
	if item == nil {
		return false
	}
	return item.GetOperation(strings.ToUpper(method)) != nil
}

// Message renders a validation error as a single line suitable for a
// {"detail": ...} body.
func Message(err error) string {
	var reqErr *openapi3filter.RequestError
	if stderrors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return fmt.Sprintf("invalid %s parameter %q: %s", reqErr.Parameter.In, reqErr.Parameter.Name, reason(reqErr))
		}
		return "invalid request body: " + reason(reqErr)
	}
	return err.Error()
}

func reason(reqErr *openapi3filter.RequestError) string {
	if reqErr.Err != nil {
		var schemaErr *openapi3.SchemaError
		if stderrors.As(reqErr.Err, &schemaErr) {
			return schemaErr.Reason
		}
		return reqErr.Err.Error()
	}
	return reqErr.Reason
}
