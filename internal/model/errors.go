package model

import "errors"

// ErrorKind classifies a failure for the transport layer.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindInvalidInput ErrorKind = "invalid_input"
	KindConflict     ErrorKind = "conflict"
	KindInternal     ErrorKind = "internal"
)

// Error is a classified application error. Code doubles as the
// translation message ID.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrSessionNotFound    = &Error{KindNotFound, "SessionNotFound", "session not found"}
	ErrQuestionNotFound   = &Error{KindNotFound, "QuestionNotFound", "question not found"}
	ErrChapterNotFound    = &Error{KindNotFound, "ChapterNotFound", "chapter not found"}
	ErrPassageNotFound    = &Error{KindNotFound, "PassageNotFound", "passage not found"}
	ErrNoQuestionsMatched = &Error{KindInvalidInput, "NoQuestionsMatched", "no questions found with selected filters"}
	ErrIndexOutOfRange    = &Error{KindInvalidInput, "IndexOutOfRange", "question index is out of range"}
	ErrInvalidAnswer      = &Error{KindInvalidInput, "InvalidAnswer", "invalid answer for this question"}
	ErrUnknownPreset      = &Error{KindInvalidInput, "UnknownPreset", "unknown session preset"}
	ErrMissingField       = &Error{KindInvalidInput, "MissingField", "required field is missing"}
	ErrInvalidQuestion    = &Error{KindInvalidInput, "InvalidQuestion", "question needs content and at least one correct answer"}
	ErrUnknownType        = &Error{KindInvalidInput, "UnknownType", "question type must be between 1 and 9"}
	ErrInvalidCatalog     = &Error{KindInvalidInput, "InvalidCatalog", "catalog file is not valid JSON"}
	ErrAlreadyAnswered    = &Error{KindConflict, "AlreadyAnswered", "question already answered"}
	ErrChapterNotEmpty    = &Error{KindConflict, "ChapterNotEmpty", "cannot delete chapter with questions or passages"}
	ErrQuestionInUse      = &Error{KindConflict, "QuestionInUse", "question is referenced by training sessions"}
)

// AsError returns the classified error in err's chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf returns the kind of err; unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if e := AsError(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

// ValidateAnswers checks that a question has content and at least one correct answer.
func ValidateAnswers(content string, answers []Answer) error {
	if content == "" || len(answers) == 0 {
		return ErrInvalidQuestion
	}
	for _, a := range answers {
		if a.IsCorrect {
			return nil
		}
	}
	return ErrInvalidQuestion
}
