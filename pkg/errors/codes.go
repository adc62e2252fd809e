package errors

type ErrorCode string

const (
	ErrIOGeneral     ErrorCode = "IO_GENERAL"
	ErrIOSizeFailed  ErrorCode = "IO_SIZE_FAILED"
	ErrIOSyncFailed  ErrorCode = "IO_SYNC_FAILED"
	ErrIOReadFailed  ErrorCode = "IO_READ_FAILED"
	ErrIOWriteFailed ErrorCode = "IO_WRITE_FAILED"
	ErrIOOpenFailed  ErrorCode = "IO_OPEN_FAILED"
	ErrIOCloseFailed ErrorCode = "IO_CLOSE_FAILED"

	ErrSystemInternal     ErrorCode = "SYSTEM_INTERNAL"
	ErrSystemInvalidInput ErrorCode = "SYSTEM_INVALID_INPUT"

	ErrPoolClosed        ErrorCode = "POOL_CLOSED"
	ErrPoolMapFailed     ErrorCode = "POOL_MAP_FAILED"
	ErrPoolWindowClosed  ErrorCode = "POOL_WINDOW_CLOSED"
	ErrPoolOutOfWindow   ErrorCode = "POOL_POSITION_OUT_OF_WINDOW"
	ErrPoolMergeFailed   ErrorCode = "POOL_MERGE_FAILED"
	ErrPoolInvalidWindow ErrorCode = "POOL_INVALID_WINDOW"

	ErrValidationInvalidData ErrorCode = "VALIDATION_INVALID_DATA"
	ErrValidationRequired    ErrorCode = "VALIDATION_REQUIRED"
	ErrValidationOutOfRange  ErrorCode = "VALIDATION_OUT_OF_RANGE"
	ErrStoreReadOnly         ErrorCode = "STORE_READ_ONLY"
)
