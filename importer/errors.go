package importer

import (
	"errors"
	"fmt"
)

// mappingError marks a record whose remote data cannot be mapped (missing
// required field, unknown code). The record is skipped and the job succeeds
// trivially; retrying would replay the same bad data.
type mappingError struct {
	msg string
}

func (e *mappingError) Error() string { return e.msg }

func MappingErrorf(format string, args ...interface{}) error {
	return &mappingError{msg: fmt.Sprintf(format, args...)}
}

func IsMappingError(err error) bool {
	var me *mappingError
	return errors.As(err, &me)
}

// consistencyError marks a local-vs-remote disagreement (total mismatch,
// invalid state) that no retry can resolve. The job is abandoned
// immediately.
type consistencyError struct {
	msg string
}

func (e *consistencyError) Error() string { return e.msg }

func ConsistencyErrorf(format string, args ...interface{}) error {
	return &consistencyError{msg: fmt.Sprintf(format, args...)}
}

func IsConsistencyError(err error) bool {
	var ce *consistencyError
	return errors.As(err, &ce)
}
