package errors

// PoolError describes a failure inside the window pool itself: a closed pool, a window
// that could not be mapped, or a position handed to the wrong window.
type PoolError struct {
	*baseError
	store      string
	position   int64
	brickIndex int
}

// NewPoolError creates a new pool-specific error with the provided context.
func NewPoolError(err error, code ErrorCode, msg string) *PoolError {
	return &PoolError{baseError: NewBaseError(err, code, msg), brickIndex: -1}
}

// WithMessage updates the error message.
func (pe *PoolError) WithMessage(msg string) *PoolError {
	pe.baseError.WithMessage(msg)
	return pe
}

// WithDetail adds contextual information.
func (pe *PoolError) WithDetail(key string, value any) *PoolError {
	pe.baseError.WithDetail(key, value)
	return pe
}

// WithStore records which store the pool serves.
func (pe *PoolError) WithStore(store string) *PoolError {
	pe.store = store
	return pe
}

// WithPosition records the record position being accessed.
func (pe *PoolError) WithPosition(position int64) *PoolError {
	pe.position = position
	return pe
}

// WithBrick records the brick index involved.
func (pe *PoolError) WithBrick(index int) *PoolError {
	pe.brickIndex = index
	return pe
}

func (pe *PoolError) Store() string {
	return pe.store
}

func (pe *PoolError) Position() int64 {
	return pe.position
}

// BrickIndex returns the brick involved, or -1 when no brick was.
func (pe *PoolError) BrickIndex() int {
	return pe.brickIndex
}
