/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Notification and Messaging Errors
	ErrNotificationNotFound:  {Code: ErrNotificationNotFound, Message: "Notification not found.", Status: http.StatusNotFound},
	ErrRecipientsRequired:    {Code: ErrRecipientsRequired, Message: "At least one recipient is required."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageBodyEmpty:      {Code: ErrMessageBodyEmpty, Message: "Message cannot be empty."},
	ErrSelfMessage:           {Code: ErrSelfMessage, Message: "You cannot message yourself."},

	// 3xxx: User, Session, and Security Errors
	ErrInvalidToken:       {Code: ErrInvalidToken, Message: "Your session is invalid or expired. Please sign in again.", Status: http.StatusUnauthorized},
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password."},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken."},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password."},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrInvalidRole:        {Code: ErrInvalidRole, Message: "Invalid role."},
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrForbidden:          {Code: ErrForbidden, Message: "You do not have permission to do that.", Status: http.StatusForbidden},

	// 4xxx: File Storage Errors
	ErrFileSizeTooLarge:    {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrFileTypeInvalid:     {Code: ErrFileTypeInvalid, Message: "File type is not allowed."},
	ErrFileKeyInvalid:      {Code: ErrFileKeyInvalid, Message: "Invalid file reference.", Status: http.StatusForbidden},
	ErrFileStorageFailed:   {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},
	ErrFileStorageDisabled: {Code: ErrFileStorageDisabled, Message: "File storage is not available.", Status: http.StatusServiceUnavailable},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
