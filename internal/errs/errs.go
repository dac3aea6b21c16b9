// Package errs holds the error taxonomy shared by the public packages.
package errs

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeConfiguration marks invalid cache or type configuration.
	TextCodeConfiguration = "INVALID_CONFIGURATION"
	// TextCodePayload marks a malformed or incomplete remote payload.
	TextCodePayload = "PAYLOAD_ERROR"
)

// Configuration returns a ConfigurationError for field.
func Configuration(field, message string) *goerrors.Error {
	return goerrors.New(field+": "+message, goerrors.CategoryValidation).
		WithTextCode(TextCodeConfiguration).
		WithMetadata(map[string]any{"field": field})
}

// FromValidation converts an ozzo validation result into a ConfigurationError.
func FromValidation(err error, message string) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, message).WithTextCode(TextCodeConfiguration)
}

// Payload returns a PayloadError describing a problem with a remote payload.
func Payload(message string, meta map[string]any) *goerrors.Error {
	e := goerrors.New(message, goerrors.CategoryBadInput).WithTextCode(TextCodePayload)
	if len(meta) > 0 {
		e = e.WithMetadata(meta)
	}
	return e
}

// WrapPayload wraps a decoding failure as a PayloadError.
func WrapPayload(source error, message string, meta map[string]any) *goerrors.Error {
	e := goerrors.Wrap(source, goerrors.CategoryBadInput, message).WithTextCode(TextCodePayload)
	if len(meta) > 0 {
		e = e.WithMetadata(meta)
	}
	return e
}

// HasTextCode reports whether err carries the given go-errors text code.
func HasTextCode(err error, code string) bool {
	var e *goerrors.Error
	if !goerrors.As(err, &e) {
		return false
	}
	return e.TextCode == code
}
