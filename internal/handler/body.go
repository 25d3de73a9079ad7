package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

const maxBodyBytes = 1 << 20

// readBody decodes a JSON request body into v. Empty or unparsable
// bodies degrade to the zero value of v, so callers surface
// missing-field errors instead of parse errors.
func readBody(r *http.Request, v any) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, v)
}

// flexInt is an integer that also accepts its JSON-string form
// ("4900"), which legacy payloads use for prices. Anything unparsable
// decodes to zero.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
