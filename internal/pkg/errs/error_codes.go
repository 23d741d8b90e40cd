/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in responses sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Notification and Messaging Errors
const (
	// ErrNotificationNotFound indicates that the requested notification does not exist
	// or does not belong to the requesting user.
	ErrNotificationNotFound = 2101

	// ErrRecipientsRequired indicates that a notification send request carried no target users.
	ErrRecipientsRequired = 2102

	// ErrMessageContentTooLong indicates that the message body exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageBodyEmpty indicates that a message send request carried an empty body.
	ErrMessageBodyEmpty = 2202

	// ErrSelfMessage indicates that a user attempted to open a conversation with themselves.
	ErrSelfMessage = 2203
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrInvalidToken indicates that a session token was malformed, unsigned, or expired.
	ErrInvalidToken = 3001

	// ErrAlreadyLoggedIn indicates that an authenticated user attempted to register or log in again.
	ErrAlreadyLoggedIn = 3002

	// ErrInvalidUsername indicates that the supplied username failed validation.
	ErrInvalidUsername = 3003

	// ErrInvalidPassword indicates that the supplied password failed validation.
	ErrInvalidPassword = 3004

	// ErrUserAlreadyExists indicates that the username is already taken.
	ErrUserAlreadyExists = 3005

	// ErrInvalidCredentials indicates a username/password mismatch at login.
	ErrInvalidCredentials = 3006

	// ErrUserNotFound indicates that the referenced account does not exist.
	ErrUserNotFound = 3007

	// ErrInvalidRole indicates that the supplied role is not one of admin, teacher, or student.
	ErrInvalidRole = 3008

	// ErrUnauthorized indicates that the request requires a valid authenticated identity.
	ErrUnauthorized = 3009

	// ErrForbidden indicates that the authenticated identity lacks the role required for the operation.
	ErrForbidden = 3010
)

// 4xxx: File Storage Errors
const (
	// ErrFileSizeTooLarge indicates that the file exceeds the upload size limit.
	ErrFileSizeTooLarge = 4001

	// ErrFileTypeInvalid indicates that the file name or MIME type is not allowed.
	ErrFileTypeInvalid = 4002

	// ErrFileKeyInvalid indicates that the storage key is outside the caller's namespace.
	ErrFileKeyInvalid = 4003

	// ErrFileStorageFailed indicates that the storage backend rejected the operation.
	ErrFileStorageFailed = 4004

	// ErrFileStorageDisabled indicates that no storage backend is configured.
	ErrFileStorageDisabled = 4005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
