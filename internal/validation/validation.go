// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package validation checks untyped JSON payloads against the document
// schemas of the generator. A payload either satisfies a schema completely
// or is rejected with every violation found, each formatted as
// "<field.path>: <message>".
//
// Field rules live in the validate tags of the models package; rules that
// span several fields are checked here.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"workspacegen/internal/models"
)

var (
	hexColor   = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	serverIDRe = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

var validate = newValidator()

// newValidator returns a validator that names fields by their JSON key and
// knows the generator's own tags.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"themecolor": func(fl validator.FieldLevel) bool { return hexColor.MatchString(fl.Field().String()) },
		"serverid":   func(fl validator.FieldLevel) bool { return serverIDRe.MatchString(fl.Field().String()) },
		"notblank":   func(fl validator.FieldLevel) bool { return strings.TrimSpace(fl.Field().String()) != "" },
		"absurl":     func(fl validator.FieldLevel) bool { return isAbsURL(fl.Field().String()) },
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validation: register %s: %v", tag, err))
		}
	}
	return v
}

// Result is the outcome of validating one payload.
type Result[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Schema names a document shape that Validate understands.
type Schema string

const (
	SchemaGenerationRequest Schema = "generation_request"
	SchemaTemplate          Schema = "template"
	SchemaTheme             Schema = "theme"
	SchemaMCPServer         Schema = "mcp_server"
)

// Validate checks payload against the named schema. The returned Data is
// the decoded document (a models value) on success.
func Validate(schema Schema, payload []byte) Result[any] {
	switch schema {
	case SchemaGenerationRequest:
		return erase(GenerationRequest(payload))
	case SchemaTemplate:
		return erase(Template(payload))
	case SchemaTheme:
		return erase(Theme(payload))
	case SchemaMCPServer:
		return erase(MCPServer(payload))
	}
	return Result[any]{Errors: []string{fmt.Sprintf("schema: unknown schema %q", schema)}}
}

func erase[T any](r Result[T]) Result[any] {
	out := Result[any]{Success: r.Success, Errors: r.Errors}
	if r.Success {
		out.Data = r.Data
	}
	return out
}

// GenerationRequest decodes and validates a generation request. The theme
// is decoded on its own so a bad theme does not hide the other fields.
func GenerationRequest(payload []byte) Result[models.GenerationRequest] {
	var body struct {
		models.GenerationRequest
		Theme json.RawMessage `json:"theme"`
	}
	decoded, ok := Decode(payload, &body)
	if !ok {
		return Result[models.GenerationRequest]{Errors: decoded}
	}

	req := body.GenerationRequest
	if len(body.Theme) > 0 {
		if err := req.Theme.UnmarshalJSON(body.Theme); err != nil {
			decoded = append(decoded, decodeViolation("theme", err))
		}
	}
	return finish(req, Merge(decoded, CheckGenerationRequest(&req)))
}

// Template decodes and validates a full template document.
func Template(payload []byte) Result[models.Template] {
	var t models.Template
	decoded, ok := Decode(payload, &t)
	if !ok {
		return Result[models.Template]{Errors: decoded}
	}
	return finish(t, Merge(decoded, CheckTemplate(&t)))
}

// Theme decodes and validates a theme.
func Theme(payload []byte) Result[models.Theme] {
	var t models.Theme
	decoded, ok := Decode(payload, &t)
	if !ok {
		return Result[models.Theme]{Errors: decoded}
	}
	return finish(t, Merge(decoded, CheckTheme("", &t)))
}

// MCPServer decodes and validates a tool server descriptor.
func MCPServer(payload []byte) Result[models.MCPServer] {
	var s models.MCPServer
	decoded, ok := Decode(payload, &s)
	if !ok {
		return Result[models.MCPServer]{Errors: decoded}
	}
	return finish(s, Merge(decoded, CheckMCPServer(&s)))
}

// CheckGenerationRequest returns every violation in an already decoded request.
func CheckGenerationRequest(req *models.GenerationRequest) []string {
	errs := structViolations("", req)

	switch {
	case req.Theme.Custom != nil:
		errs = append(errs, CheckTheme("theme", req.Theme.Custom)...)
	case req.Theme.Preset != "":
		if _, ok := models.ThemePreset(req.Theme.Preset); !ok {
			errs.add("theme", "unknown theme preset %q", req.Theme.Preset)
		}
	}
	return errs
}

// CheckTemplate returns every violation in an already decoded template.
func CheckTemplate(t *models.Template) []string {
	errs := structViolations("", t)

	checkBlocks(&errs, "blocks", t.Blocks, make(map[string]string))

	if !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero() && t.UpdatedAt.Before(t.CreatedAt) {
		errs.add("updated_at", "must not be earlier than created_at")
	}
	return errs
}

// CheckTheme validates a theme, prefixing violations with path.
func CheckTheme(path string, t *models.Theme) []string {
	return structViolations(path, t)
}

// CheckMCPServer returns every violation in a server descriptor.
func CheckMCPServer(s *models.MCPServer) []string {
	return structViolations("", s)
}

// Decode unmarshals payload into v. A type mismatch on one field is
// returned as a violation and decoding carries on, so the caller can still
// check the rest of v. ok is false when nothing usable was decoded.
func Decode(payload []byte, v any) (errs []string, ok bool) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return []string{"body: is required"}, false
	}
	err := json.Unmarshal(payload, v)
	if err == nil {
		return nil, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []string{decodeViolation("", err)}, true
	}
	return []string{decodeViolation("body", err)}, false
}

// Merge appends checks to the decode violations, leaving out checks on
// fields that already failed to decode.
func Merge(decoded, checks []string) []string {
	out := append([]string(nil), decoded...)
	for _, c := range checks {
		if !coveredBy(pathOf(c), decoded) {
			out = append(out, c)
		}
	}
	return out
}

// --- helpers ---

// violations accumulates "<path>: <message>" strings.
type violations []string

func (v *violations) add(path, format string, args ...any) {
	*v = append(*v, path+": "+fmt.Sprintf(format, args...))
}

func finish[T any](data T, errs []string) Result[T] {
	if len(errs) > 0 {
		return Result[T]{Errors: errs}
	}
	return Result[T]{Success: true, Data: data}
}

// structViolations runs the tag rules on v and formats each failure below
// prefix.
func structViolations(prefix string, v any) violations {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return violations{joinPath(prefix, "body") + ": " + err.Error()}
	}
	var errs violations
	for _, fe := range fieldErrs {
		errs = append(errs, fieldPath(prefix, fe.Namespace())+": "+message(fe))
	}
	return errs
}

// fieldPath turns a validator namespace such as "Template.blocks[1].id"
// into "blocks.1.id" below prefix.
func fieldPath(prefix, namespace string) string {
	_, rest, _ := strings.Cut(namespace, ".")
	rest = strings.NewReplacer("[", ".", "]", "").Replace(rest)
	return joinPath(prefix, rest)
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	}
	return prefix + "." + path
}

func message(fe validator.FieldError) string {
	list := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		if list {
			if fe.Param() == "1" {
				return "must not be empty"
			}
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("too short (minimum %s characters)", fe.Param())
	case "max":
		if list {
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		}
		return fmt.Sprintf("too long (maximum %s characters)", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s (got %q)", strings.Join(strings.Fields(fe.Param()), ", "), fmt.Sprint(fe.Value()))
	case "themecolor":
		return fmt.Sprintf("must be a 3- or 6-digit hex color (got %q)", fmt.Sprint(fe.Value()))
	case "absurl":
		return fmt.Sprintf("must be an absolute URL (got %q)", fmt.Sprint(fe.Value()))
	case "serverid":
		return fmt.Sprintf("must contain only lowercase letters, digits, hyphens and underscores (got %q)", fmt.Sprint(fe.Value()))
	}
	return fmt.Sprintf("failed the %s rule", fe.Tag())
}

// decodeViolation formats a JSON decoding error below prefix.
func decodeViolation(prefix string, err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := joinPath(prefix, typeErr.Field)
		if path == "" {
			path = "body"
		}
		return fmt.Sprintf("%s: must be %s (got %s)", path, typeName(typeErr.Type.Kind().String()), typeErr.Value)
	}
	if prefix == "" {
		prefix = "body"
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("%s: invalid JSON at offset %d", prefix, syntaxErr.Offset)
	}
	return prefix + ": " + err.Error()
}

func typeName(kind string) string {
	switch kind {
	case "string":
		return "a string"
	case "bool":
		return "a boolean"
	case "slice", "array":
		return "an array"
	case "struct", "map":
		return "an object"
	case "int", "int64", "float64":
		return "a number"
	}
	return "of type " + kind
}

func pathOf(violation string) string {
	path, _, _ := strings.Cut(violation, ": ")
	return path
}

// coveredBy reports whether path is one of the failed paths or lies below one.
func coveredBy(path string, failed []string) bool {
	for _, f := range failed {
		p := pathOf(f)
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}
	return false
}

// checkBlocks applies the rules that depend on a block's type or on the
// rest of the tree. seen maps block ids to the path where they were first
// used, so duplicates anywhere in the tree are caught.
func checkBlocks(errs *violations, path string, blocks []models.Block, seen map[string]string) {
	for i, b := range blocks {
		p := fmt.Sprintf("%s.%d", path, i)
		if id := strings.TrimSpace(b.ID); id != "" {
			if first, dup := seen[b.ID]; dup {
				errs.add(p+".id", "duplicate block id %q (first used at %s)", b.ID, first)
			} else {
				seen[b.ID] = p
			}
		}

		switch b.Type {
		case models.BlockHeading:
			if b.Level < 1 || b.Level > 3 {
				errs.add(p+".level", "must be between 1 and 3 (got %d)", b.Level)
			}
		default:
			if b.Level != 0 {
				errs.add(p+".level", "only allowed on heading blocks")
			}
		}

		switch b.Type {
		case models.BlockHeading, models.BlockParagraph, models.BlockQuote, models.BlockCode,
			models.BlockDatabase, models.BlockTable:
			if strings.TrimSpace(b.Content) == "" {
				errs.add(p+".content", "is required for %s blocks", b.Type)
			}
		case models.BlockImage:
			if !isAbsURL(b.Content) {
				errs.add(p+".content", "must be an absolute URL (got %q)", b.Content)
			}
		}

		if len(b.Children) > 0 {
			checkBlocks(errs, p+".children", b.Children, seen)
		}
	}
}

func isAbsURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
