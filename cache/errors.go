package cache

import (
	"github.com/goliatone/go-census/internal/errs"
)

// IsConfigurationError reports whether err is an invalid cache or type
// configuration error. Such errors are raised at configuration time; sizes
// and windows are never silently clamped.
func IsConfigurationError(err error) bool {
	return errs.HasTextCode(err, errs.TextCodeConfiguration)
}
