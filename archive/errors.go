package archive

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrUploadNotFound is returned for an upload id the service does not know.
	ErrUploadNotFound = errors.New("multipart upload not found")
	// ErrChecksumMismatch is returned when a declared tree hash differs from the one the service computed.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrInvalidRange is returned for a part whose byte range does not fit the session.
	ErrInvalidRange = errors.New("invalid part range")
	// ErrInvalidPartSize is returned for a part size the service does not accept.
	ErrInvalidPartSize = errors.New("invalid part size")
)

// wrapAPIError annotates err with the failing operation and, for service side errors, the error code.
func wrapAPIError(operation string, err error) error {
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		return fmt.Errorf("%s: aws api error (%s): %w", operation, apiError.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
