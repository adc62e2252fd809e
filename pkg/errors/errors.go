package errors

import (
	stdErrors "errors"
)

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func AsPoolError(err error) (*PoolError, bool) {
	var pe *PoolError
	if stdErrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	type coder interface{ Code() ErrorCode }
	for err != nil {
		if c, ok := err.(coder); ok && c.Code() == code {
			return true
		}
		err = stdErrors.Unwrap(err)
	}
	return false
}
