package docgen

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a payload that is missing identity fields
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// TemplateNotFoundError reports that no template variant exists in the registry
type TemplateNotFoundError struct {
	Names []string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template not found (tried %s)", strings.Join(e.Names, ", "))
}

// TemplateRenderError reports malformed template markup
type TemplateRenderError struct {
	Part   string
	Tag    string
	Reason string
	Err    error
}

func (e *TemplateRenderError) Error() string {
	msg := "template render failed"
	if e.Part != "" {
		msg += " in " + e.Part
	}
	if e.Tag != "" {
		msg += fmt.Sprintf(" at tag %q", e.Tag)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateRenderError) Unwrap() error {
	return e.Err
}

// NormalizationWarning is a non-fatal structural rewrite issue
type NormalizationWarning struct {
	Part   string
	Pass   string
	Detail string
}

func (w NormalizationWarning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Part, w.Pass, w.Detail)
}

// ConverterNotFoundError lists every path probed for the conversion engine
type ConverterNotFoundError struct {
	Probed []string
}

func (e *ConverterNotFoundError) Error() string {
	return fmt.Sprintf("office conversion engine not found (probed: %s)", strings.Join(e.Probed, ", "))
}

// ConversionFailedError carries the engine's diagnostic output
type ConversionFailedError struct {
	ExitCode int
	Output   string
	Err      error
}

func (e *ConversionFailedError) Error() string {
	msg := fmt.Sprintf("conversion failed (exit code %d)", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ConversionFailedError) Unwrap() error {
	return e.Err
}

// ConversionTimeoutError reports an engine that did not exit in time
type ConversionTimeoutError struct {
	Timeout string
	Output  string
}

func (e *ConversionTimeoutError) Error() string {
	return fmt.Sprintf("conversion timed out after %s", e.Timeout)
}

// StageError wraps a component failure with pipeline context
type StageError struct {
	Stage    Stage
	Kind     Kind
	EntityID string
	Err      error
}

func (e *StageError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Kind, e.EntityID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the caller's input rather than the deployment
func IsInputError(err error) bool {
	var validation *ValidationError
	var notFound *TemplateNotFoundError
	return errors.As(err, &validation) || errors.As(err, &notFound)
}
