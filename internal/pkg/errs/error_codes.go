/*
Package errs provides custom error types and application-level error code constants
for the administrative HTTP surface.

These codes identify specific request-handling or business errors in responses to
admin API callers.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON is malformed.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates the request rate exceeded the configured limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Group Administration Errors
const (
	// ErrRoomNameInvalid indicates an empty or otherwise unusable room name.
	ErrRoomNameInvalid = 2101

	// ErrRoomNameExists indicates a room with the requested name already exists.
	ErrRoomNameExists = 2102

	// ErrRoomNotFound indicates no room with the requested name exists.
	ErrRoomNotFound = 2103

	// ErrGroupNameExists indicates a group with the requested name already exists.
	ErrGroupNameExists = 2201

	// ErrGroupNotFound indicates no group with the requested name exists.
	ErrGroupNotFound = 2202
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000
)
