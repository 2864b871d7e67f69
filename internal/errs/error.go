package errs

import (
	"errors"
	"fmt"
)

// CodeInternal is reported for errors outside the taxonomy.
const CodeInternal = "INTERNAL"

// Stable machine-readable codes.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeFileMissing       = "FILE_MISSING"
	CodeSongFileMismatch  = "SONG_FILE_MISMATCH"
	CodeSongsRequired     = "SONGS_REQUIRED"
	CodeInvalidSort       = "INVALID_SORT"
	CodeConflictUsers     = "CONFLICT_USERS"
	CodeSongDuplication   = "SONG_DUPLICATION"
	CodeSongAlreadyExist  = "SONG_ALREADY_EXIST"
	CodeAddSongConflict   = "ADD_SONG_CONFLICT"
	CodeAlreadyShared     = "ALREADY_SHARED"
	CodePlaylistConflict  = "CONFLICT_PLAYLIST"
	CodeSongNotFound      = "SONG_NOT_FOUND"
	CodeAlbumNotFound     = "ALBUM_NOT_FOUND"
	CodePlaylistNotFound  = "PLAYLIST_NOT_FOUND"
	CodeMembershipMissing = "MEMBERSHIP_NOT_FOUND"
	CodeGrantNotFound     = "GRANT_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeUserExists        = "USER_ALREADY_EXISTS"
	CodeUnauthorized      = "UNAUTHORIZED_OPERATION"
	CodeArtistOnly        = "ARTIST_ONLY"
	CodeProbeFailed       = "METADATA_PROBE_FAILED"
	CodeAlbumDeletion     = "COLLECTION_DELETION_FAILED"
	CodePlaylistDeletion  = "PLAYLIST_DELETION_FAILED"
	CodeTxAborted         = "TRANSACTION_ABORTED"
)

// Error is a typed failure with a stable code and a human-readable message.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error // optional cause
}

// New builds an *Error of the given kind.
func New(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind error, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Validation is shorthand for New(ErrValidation, code, msg).
func Validation(code, msg string) *Error { return New(ErrValidation, code, msg) }

// NotFound is shorthand for New(ErrNotFound, code, msg).
func NotFound(code, msg string) *Error { return New(ErrNotFound, code, msg) }

// Conflict is shorthand for New(ErrConflict, code, msg).
func Conflict(code, msg string) *Error { return New(ErrConflict, code, msg) }

// Unauthorized is shorthand for New(ErrUnauthorized, code, msg).
func Unauthorized(code, msg string) *Error { return New(ErrUnauthorized, code, msg) }
