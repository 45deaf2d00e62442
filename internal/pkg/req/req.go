/*
Package req provides helpers for HTTP request parsing and data binding on the
administrative API.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"reefchat/internal/pkg/errs"
)

// BindJSON binds the JSON request body to dst, rejecting unknown fields and
// trailing content.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
