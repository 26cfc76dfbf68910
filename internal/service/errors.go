package service

import "errors"

var (
	// ErrGradeStudentNotFound indicates the graded student does not exist.
	ErrGradeStudentNotFound = errors.New("grade student not found")
	// ErrAbsenceNotFound indicates the absence record does not exist.
	ErrAbsenceNotFound = errors.New("absence record not found")
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrDuplicateCNE indicates another record already uses the CNE.
	ErrDuplicateCNE = errors.New("a student with this cne already exists")
	// ErrAverageUndefined indicates the student has no notes to average.
	ErrAverageUndefined = errors.New("average is undefined: no notes recorded")
	// ErrInvalidAbsenceHours indicates absence hours fall outside the accepted range.
	ErrInvalidAbsenceHours = errors.New("invalid absence hours")
	// ErrInvalidSpreadsheet indicates an uploaded spreadsheet could not be read.
	ErrInvalidSpreadsheet = errors.New("invalid spreadsheet")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)
