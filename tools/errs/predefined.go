package errs

// Error codes are grouped: 1xxx protocol, 2xxx auth/permission, 3xxx storage.
const (
	ArgsErr             = 1001
	FrameMalformedErr   = 1002
	NotAuthenticatedErr = 2001
	NoPermissionErr     = 2002
	RecordNotFoundErr   = 3001
	StorageErr          = 3002
	InternalErr         = 5001
)

var (
	ErrArgs             = NewCodeError(ArgsErr, "bad request args")
	ErrFrameMalformed   = NewCodeError(FrameMalformedErr, "malformed frame")
	ErrNotAuthenticated = NewCodeError(NotAuthenticatedErr, "connection not authenticated")
	ErrNoPermission     = NewCodeError(NoPermissionErr, "no permission for this chat")
	ErrRecordNotFound   = NewCodeError(RecordNotFoundErr, "record not found")
	ErrStorage          = NewCodeError(StorageErr, "storage failure")
	ErrInternal         = NewCodeError(InternalErr, "internal error")
)
