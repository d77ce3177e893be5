// Package validation checks JSON request bodies against embedded JSON
// Schemas before they are decoded into typed service inputs.
package validation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names, one per request body shape.
const (
	SchemaLogin           = "login"
	SchemaRegister        = "register"
	SchemaCreateUser      = "create_user"
	SchemaUpdateUser      = "update_user"
	SchemaUpdateStatus    = "update_status"
	SchemaUpdatePassword  = "update_password"
	SchemaReferenceCreate = "reference_create"
	SchemaReferenceUpdate = "reference_update"
)

// MaxBodyBytes bounds request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// RequestValidator validates request bodies against named schemas and
// decodes them into structs using their json tags.
type RequestValidator struct {
	schemaCache *lru.Cache[string, *jsonschema.Schema]
	source      embed.FS
}

// NewRequestValidator creates a validator with LRU caching for compiled schemas
func NewRequestValidator(cacheSize int) (*RequestValidator, error) {
	cache, err := lru.New[string, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &RequestValidator{schemaCache: cache, source: schemaFS}, nil
}

// Precompile compiles every embedded schema so a broken one fails at startup.
func (v *RequestValidator) Precompile() error {
	entries, err := v.source.ReadDir("schemas")
	if err != nil {
		return fmt.Errorf("read schemas: %w", err)
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if _, err := v.schema(name); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads body, validates it against the named schema and decodes it
// into dst. Malformed JSON and schema violations return an invalid-argument
// error carrying the offending JSON path.
func (v *RequestValidator) Decode(schemaName string, body io.Reader, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(body, MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(raw) > MaxBodyBytes {
		return apperr.InvalidArgument("request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return apperr.InvalidArgument("request body is required")
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return apperr.InvalidArgument("malformed JSON body")
	}

	if err := v.Validate(schemaName, instance); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           dst,
		WeaklyTypedInput: false,
		ErrorUnused:      false,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(instance); err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, err, "request body does not match the expected shape")
	}
	return nil
}

// Validate checks an already-unmarshaled JSON instance against the named schema.
func (v *RequestValidator) Validate(schemaName string, instance any) error {
	schema, err := v.schema(schemaName)
	if err != nil {
		return err
	}
	if err := schema.Validate(instance); err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, err, formatValidationError(err))
	}
	return nil
}

// schema returns the compiled schema, compiling on a cache miss.
func (v *RequestValidator) schema(name string) (*jsonschema.Schema, error) {
	if cached, ok := v.schemaCache.Get(name); ok {
		return cached, nil
	}

	compiled, err := v.compileSchema(name)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(name, compiled)
	return compiled, nil
}

// compileSchema compiles one embedded schema file
func (v *RequestValidator) compileSchema(name string) (*jsonschema.Schema, error) {
	file, err := v.source.Open("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	defer file.Close()

	parsed, err := jsonschema.UnmarshalJSON(file)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	compiler.AssertFormat()

	schemaURL := name + ".json"
	if err := compiler.AddResource(schemaURL, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// formatValidationError reports the first leaf violation with its JSON path.
// Example: "validation failed at '$.email': ..."
func formatValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := "$"
	var parts []string
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	msg := ve.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && strings.Contains(msg, "\n") {
		msg = msg[i+2:]
	}
	if len(msg) > 200 {
		msg = msg[:200] + "... (truncated)"
	}
	return fmt.Sprintf("validation failed at '%s': %s", path, strings.TrimSpace(msg))
}

// CacheSize returns the number of compiled schemas held, for monitoring.
func (v *RequestValidator) CacheSize() int {
	return v.schemaCache.Len()
}
