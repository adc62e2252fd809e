package errors

// StorageError reports an unrecoverable failure of the underlying store file.
// Callers are expected to abort or retry the operation; the pool never recovers on its own.
type StorageError struct {
	*baseError
	store  string
	path   string
	offset int64
}

// NewStorageError creates a new storage-specific error with the provided context.
func NewStorageError(err error, code ErrorCode, msg string) *StorageError {
	return &StorageError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message.
func (se *StorageError) WithMessage(msg string) *StorageError {
	se.baseError.WithMessage(msg)
	return se
}

// WithCode sets the error code.
func (se *StorageError) WithCode(code ErrorCode) *StorageError {
	se.baseError.WithCode(code)
	return se
}

// WithDetail adds contextual information.
func (se *StorageError) WithDetail(key string, value any) *StorageError {
	se.baseError.WithDetail(key, value)
	return se
}

// WithStore records the name of the store the failing file belongs to.
func (se *StorageError) WithStore(store string) *StorageError {
	se.store = store
	return se
}

// WithPath captures which filesystem path was being processed during the error.
func (se *StorageError) WithPath(path string) *StorageError {
	se.path = path
	return se
}

// WithOffset records the byte position where the error occurred.
func (se *StorageError) WithOffset(offset int64) *StorageError {
	se.offset = offset
	return se
}

// Store returns the store name.
func (se *StorageError) Store() string {
	return se.store
}

// Path returns the full filesystem path of the file that was being processed.
func (se *StorageError) Path() string {
	return se.path
}

// Offset returns the byte offset within the file where the error happened.
func (se *StorageError) Offset() int64 {
	return se.offset
}
