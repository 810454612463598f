package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrUnknownTeacher ErrCode = "UNKNOWN_TEACHER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrConflict       ErrCode = "CONFLICT"
	ErrCourseNotFound ErrCode = "COURSE_NOT_FOUND"

	// ─── Learning sessions ─────────────────────────────────────────────
	ErrLearningSessionNotFound ErrCode = "LEARNING_SESSION_NOT_FOUND"
	ErrInvalidTransition       ErrCode = "INVALID_TRANSITION"
	ErrFetchInFlight           ErrCode = "FETCH_IN_FLIGHT"
	ErrNotRetryable            ErrCode = "NOT_RETRYABLE"
	ErrLearningSessionClosed   ErrCode = "LEARNING_SESSION_CLOSED"
	ErrQuestionServiceDown     ErrCode = "QUESTION_SERVICE_UNAVAILABLE"
	ErrQuestionServiceInvalid  ErrCode = "QUESTION_SERVICE_INVALID"

	// ─── Files ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"
	ErrLinkExpired     ErrCode = "LINK_EXPIRED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionActive:
		return "You are already signed in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrUnknownTeacher:
		return "No teacher with that name exists."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrCourseNotFound:
		return "Course not found."

	// ─── Learning sessions ─────────────────────────────────────────────
	case ErrLearningSessionNotFound:
		return "Learning session not found."
	case ErrInvalidTransition:
		return "That action is not available right now."
	case ErrFetchInFlight:
		return "Questions are still loading."
	case ErrNotRetryable:
		return "There is nothing to retry."
	case ErrLearningSessionClosed:
		return "This learning session has ended."
	case ErrQuestionServiceDown:
		return "Could not reach the question service. Please try again."
	case ErrQuestionServiceInvalid:
		return "The question service returned an unusable response."

	// ─── Files ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Only PDF files are accepted."
	case ErrFileTooLarge:
		return "File exceeds the size limit."
	case ErrLinkExpired:
		return "This download link is invalid or has expired."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
