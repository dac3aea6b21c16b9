package census

import (
	"github.com/goliatone/go-census/internal/errs"
)

// IsPayloadError reports whether err stems from a malformed or incomplete
// remote payload. Such errors are fatal to one construction and not retried.
func IsPayloadError(err error) bool {
	return errs.HasTextCode(err, errs.TextCodePayload)
}
