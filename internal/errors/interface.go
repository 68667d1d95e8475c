package errors

// ErrorCode is a stable, machine-readable error identifier. Codes end up in
// log fields and in user-facing config errors.
type ErrorCode string

// Coder is anything that carries an ErrorCode, including errors that are not
// built by a Factory.
type Coder interface {
	Code() ErrorCode
}

// Error is a coded error that may wrap a cause and carry extra data.
type Error interface {
	error
	Coder
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
