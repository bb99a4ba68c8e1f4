package pipeline

import (
	"errors"
)

// Category labels the stage a failure belongs to, mapped to an exit code.
type Category string

const (
	CategoryInvalidInput Category = "invalid-input"
	CategoryAcquisition  Category = "acquisition"
	CategoryFilesystem   Category = "filesystem"
	CategoryTranscode    Category = "transcode"
)

type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

func wrapCategory(category Category, err error) error {
	if err == nil {
		return nil
	}
	return CategorizedError{Category: category, Err: err}
}

// CategoryOf extracts the failure category from an error chain, defaulting
// to acquisition since that is the only stage allowed to surface errors.
func CategoryOf(err error) Category {
	var categorized CategorizedError
	if errors.As(err, &categorized) {
		return categorized.Category
	}
	return CategoryAcquisition
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CategoryOf(err) {
	case CategoryInvalidInput:
		return 2
	case CategoryAcquisition:
		return 3
	case CategoryFilesystem:
		return 4
	case CategoryTranscode:
		return 5
	}
	return 1
}

type reportedError struct {
	err error
}

func (e reportedError) Error() string {
	return e.err.Error()
}

func (e reportedError) Unwrap() error {
	return e.err
}

// MarkReported wraps an error that has already been printed so callers up
// the stack do not print it a second time.
func MarkReported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

func IsReported(err error) bool {
	var reported reportedError
	return errors.As(err, &reported)
}
