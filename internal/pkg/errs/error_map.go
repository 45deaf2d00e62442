/*
Package errs provides custom error types and application-level error code constants
for the administrative HTTP surface.

This file defines the map from error codes to the CustomError template used to
build responses.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Group Administration Errors
	ErrRoomNameInvalid: {Code: ErrRoomNameInvalid, Message: "Room name cannot be empty.", Status: http.StatusBadRequest},
	ErrRoomNameExists:  {Code: ErrRoomNameExists, Message: "Room name already exists.", Status: http.StatusConflict},
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Room not found.", Status: http.StatusNotFound},
	ErrGroupNameExists: {Code: ErrGroupNameExists, Message: "Group name already exists.", Status: http.StatusConflict},
	ErrGroupNotFound:   {Code: ErrGroupNotFound, Message: "Group not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Internal server error. Please try again later.", Status: http.StatusInternalServerError},
}
