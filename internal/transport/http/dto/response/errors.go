package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationFailed = ErrorResponse{
		Status: "error",
		Error:  "authentication_failed",
	}

	ErrEventNotFound = ErrorResponse{
		Status:  "error",
		Error:   "event_not_found",
		Details: "Gallery event not found",
	}

	ErrImageNotFound = ErrorResponse{
		Status:  "error",
		Error:   "image_not_found",
		Details: "Gallery image not found",
	}

	ErrFileNotFound = ErrorResponse{
		Status:  "error",
		Error:   "file_not_found",
		Details: "Stored file not found",
	}

	ErrSlotNotFound = ErrorResponse{
		Status:  "error",
		Error:   "upload_slot_not_found",
		Details: "Upload URL is unknown, expired or already used",
	}

	ErrEventHasImages = ErrorResponse{
		Status:  "error",
		Error:   "event_has_images",
		Details: "Delete the event images first or use cascade=true",
	}

	ErrUnsupportedMediaType = ErrorResponse{
		Status:  "error",
		Error:   "unsupported_media_type",
		Details: "Only image/* content is accepted",
	}

	ErrFileTooLarge = ErrorResponse{
		Status:  "error",
		Error:   "file_too_large",
		Details: "File exceeds the upload size limit",
	}

	ErrInternal = ErrorResponse{
		Status: "error",
		Error:  "internal_error",
	}
)
