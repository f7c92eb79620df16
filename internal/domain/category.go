package domain

import "errors"

// Category is the presentation class the interactive layer uses to decide how
// an error is shown.
type Category string

// Presentation categories.
const (
	CategoryNone           Category = ""
	CategoryInlineField    Category = "inline_field"
	CategoryAccessDenied   Category = "access_denied"
	CategoryNoLongerExists Category = "no_longer_exists"
	CategoryPleaseRetry    Category = "please_retry"
	CategoryGenericFailure Category = "generic_failure"
)

// CategoryOf maps err deterministically to its presentation category.
func CategoryOf(err error) Category {
	switch KindOf(err) {
	case KindUnknown:
		return CategoryNone
	case KindValidation:
		return CategoryInlineField
	case KindAuthorization:
		return CategoryAccessDenied
	case KindNotFound:
		return CategoryNoLongerExists
	case KindConflict:
		return CategoryPleaseRetry
	default:
		return CategoryGenericFailure
	}
}

// UserMessage returns the text shown to the user for err. Validation errors
// keep their field message; every other kind uses a fixed message so that
// internal details never reach the screen.
func UserMessage(err error) string {
	switch CategoryOf(err) {
	case CategoryNone:
		return ""
	case CategoryInlineField:
		var ve *ValidationError
		if errors.As(err, &ve) {
			if ve.Field == "" {
				return ve.Message
			}
			return ve.Field + " " + ve.Message
		}
		return "Please check the highlighted fields."
	case CategoryAccessDenied:
		return "Access denied."
	case CategoryNoLongerExists:
		return "This item no longer exists."
	case CategoryPleaseRetry:
		return "Someone else changed this at the same time. Please retry."
	default:
		return "Something went wrong. Please try again."
	}
}
