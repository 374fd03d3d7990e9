package status

// ErrorCode is a numeric code to classify API errors in a stable way
type ErrorCode int

// Reserved ranges by domain:
//   1000-1999: Auth
//   2000-2999: Teacher
//   3000-3999: Admin
//   4000-4999: Upload
//   9000-9999: Server

// Auth error codes (1000-1999)
const (
	AuthInvalidRequestBody ErrorCode = 1000 + iota
	AuthValidationFailed
	AuthEmailTaken
	AuthInvalidCredentials
	AuthNotAuthenticated
	AuthTokenExpired
	AuthForbidden
	AuthTooManyAttempts
)

// Teacher error codes (2000-2999)
const (
	TeacherInvalidRequestBody ErrorCode = 2000 + iota
	TeacherValidationFailed
	TeacherInvalidParams
	TeacherNotFound
	TeacherUserNotFound
	TeacherProfileExists
	TeacherEmailTaken
	TeacherSearchDisabled
)

// Admin error codes (3000-3999)
const (
	AdminInvalidParams ErrorCode = 3000 + iota
	AdminUserNotFound
	AdminSelfRevoke
)

// Upload error codes (4000-4999)
const (
	UploadMissingFile ErrorCode = 4000 + iota
	UploadUnsupportedType
	UploadTooLarge
)

// Server error codes (9000-9999)
const (
	ErrorCodeInternal ErrorCode = 9000 + iota
	ErrorCodeRouteNotFound
	ErrorCodeMethodNotAllowed
	ErrorCodeBadRequest
)

// CodedError represents an error with an associated ErrorCode
type CodedError interface {
	error
	ErrorCode() ErrorCode
}

type codedError struct {
	code ErrorCode
	err  error
}

func (e codedError) Error() string        { return e.err.Error() }
func (e codedError) Unwrap() error        { return e.err }
func (e codedError) ErrorCode() ErrorCode { return e.code }

// New creates a new CodedError with the given code and underlying error
func New(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return codedError{code: code, err: err}
}
