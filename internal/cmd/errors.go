package cmd

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/richmansdream/crmdesk/internal/errors"
)

// notSignedInError is returned by commands that need a session when none
// is stored or the stored token was rejected
func notSignedInError() error {
	return errors.New(errors.ErrCodeSessionAnon, "not signed in").
		WithSuggestions(
			"Sign in: crmdesk auth login --email <email>",
			"Check the stored session: crmdesk auth status",
			"Browse bundled sample data without signing in: --mock",
		)
}

// notFoundError turns a 404 for one record into a helpful error
func notFoundError(kind, id string, err error) error {
	if errors.CodeOf(err) != errors.ErrCodeNotFound {
		return err
	}
	return errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("%s %q not found", kind, id), err).
		WithStatus(http.StatusNotFound).
		WithSuggestion(fmt.Sprintf("List %ss to find a valid id: crmdesk %ss list", kind, kind))
}

// flagValueError reports an unsupported flag value
func flagValueError(flag, value string, valid []string) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value %q for --%s", value, flag)).
		WithSuggestions(
			fmt.Sprintf("Valid values: %v", valid),
			"Run with --help to see all available options",
		)
}

// pageRangeError reports a --page value outside 1..last. last is 0 when
// the value was rejected before reading.
func pageRangeError(page, last int) error {
	msg := fmt.Sprintf("invalid value %d for --page", page)
	if last > 0 {
		msg = fmt.Sprintf("page %d is out of range; the list has %d page(s)", page, last)
	}
	return errors.New(errors.ErrCodeConfigInvalid, msg).
		WithSuggestion("Pass --page between 1 and the page count shown below the list")
}

// endpointMissing reports a 404 or 501 from the server
func endpointMissing(err error) bool {
	var crmErr *errors.CRMError
	if !stderrors.As(err, &crmErr) {
		return false
	}
	return crmErr.Status == http.StatusNotFound || crmErr.Status == http.StatusNotImplemented
}
