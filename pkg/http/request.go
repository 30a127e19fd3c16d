package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "pawwalk/pkg/errors"
)

// DecodeJSON reads a single JSON document from the request body into dst. An empty
// body is accepted when allowEmpty is set so action endpoints can omit it.
func DecodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.InvalidInput("request body too large")
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}

	if decoder.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}

	return nil
}
