// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// channelPattern matches subscription channel names such as
// "conversation:42" or "notifications:u1".
var channelPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*:[A-Za-z0-9_.@-]+$`)

// FieldError describes one field that failed validation.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the JSON name of the offending field.
func (e *FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "online offline" for oneof.
func (e *FieldError) Param() string { return e.param }

// Error returns a human-readable message.
func (e *FieldError) Error() string { return e.message }

// PayloadError collects every field error of one payload.
type PayloadError struct {
	Type   string
	errors []FieldError
}

// Errors returns the individual field errors.
func (pe *PayloadError) Errors() []FieldError {
	return pe.errors
}

// Fields returns the names of the offending fields.
func (pe *PayloadError) Fields() []string {
	out := make([]string, len(pe.errors))
	for i := range pe.errors {
		out[i] = pe.errors[i].field
	}
	return out
}

// Error implements error.
func (pe *PayloadError) Error() string {
	if len(pe.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(pe.errors))
	for i := range pe.errors {
		messages = append(messages, pe.errors[i].message)
	}
	prefix := "invalid payload"
	if pe.Type != "" {
		prefix = "invalid " + pe.Type + " payload"
	}
	return prefix + ": " + strings.Join(messages, "; ")
}

// GetValidator returns the shared validator. Field names are reported by
// their JSON tag so errors match what the server sent.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
			return channelPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks v (a pointer to a tagged struct). payloadType labels the
// error. It returns nil or a *PayloadError.
func Validate(payloadType string, v any) error {
	err := GetValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &PayloadError{
			Type:   payloadType,
			errors: []FieldError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	out := &PayloadError{Type: payloadType, errors: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.errors[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			message: translate(fe),
		}
	}
	return out
}

// ValidChannel reports whether name is a well-formed channel name.
func ValidChannel(name string) bool {
	return channelPattern.MatchString(name)
}

var simpleMessages = map[string]string{
	"required": "%s is required",
	"channel":  "%s must look like <kind>:<id>",
}

var paramMessages = map[string]string{
	"oneof":            "%s must be one of: %s",
	"required_without": "%s is required when %s is absent",
	"min":              "%s must be at least %s",
	"max":              "%s must be at most %s",
}

func translate(fe validator.FieldError) string {
	if tmpl, ok := simpleMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	if tmpl, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
