// Package apperror defines the closed error taxonomy shared by the room core,
// the CommandDispatcher, and both external boundaries (HTTP and WebSocket).
//
// The taxonomy is closed by design: every domain failure a Room operation can
// produce is listed here once, with the HTTP status and the human-readable
// prose a WebSocket client should see. Boundary code never invents new codes;
// it either matches one of these or falls back to Unexpected.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one entry in the closed error taxonomy.
type Code string

const (
	RoomNotFound                 Code = "ROOM_NOT_FOUND"
	Forbidden                    Code = "FORBIDDEN"
	PlayerNotFound                Code = "PLAYER_NOT_FOUND"
	QuestionAlreadyInPlay        Code = "QUESTION_ALREADY_IN_PLAY"
	NoActiveQuestion             Code = "NO_ACTIVE_QUESTION"
	BuzzersAlreadyOpen           Code = "BUZZERS_ALREADY_OPEN"
	BuzzNotAvailable             Code = "BUZZ_NOT_AVAILABLE"
	AlreadyAttempted             Code = "ALREADY_ATTEMPTED"
	NoAnsweringPlayer            Code = "NO_ANSWERING_PLAYER"
	TurnRequired                 Code = "TURN_REQUIRED"
	SlotAlreadyUsed              Code = "SLOT_ALREADY_USED"
	UniqueQuestionUnavailable    Code = "UNIQUE_QUESTION_UNAVAILABLE"
	QuestionProviderUnavailable  Code = "QUESTION_PROVIDER_UNAVAILABLE"
	InvalidShareCode             Code = "INVALID_SHARE_CODE"
	ShareCodeNotFound            Code = "SHARE_CODE_NOT_FOUND"
	ValidationError              Code = "VALIDATION_ERROR"
	Unexpected                   Code = "UNEXPECTED"
)

// taxonomy maps each code to its HTTP status and WS-facing prose, mirroring
// the table in spec.md §6.4.
var taxonomy = map[Code]struct {
	status  int
	message string
}{
	RoomNotFound:                {http.StatusNotFound, "Room not found"},
	Forbidden:                   {http.StatusForbidden, "Forbidden"},
	PlayerNotFound:              {http.StatusNotFound, "Player not found"},
	QuestionAlreadyInPlay:       {http.StatusConflict, "A question is already in play"},
	NoActiveQuestion:            {http.StatusConflict, "No active question"},
	BuzzersAlreadyOpen:          {http.StatusConflict, "Buzzers are already open"},
	BuzzNotAvailable:            {http.StatusConflict, "Buzzing is not available right now"},
	AlreadyAttempted:            {http.StatusConflict, "You already attempted this question"},
	NoAnsweringPlayer:           {http.StatusBadRequest, "No player is currently answering"},
	TurnRequired:                {http.StatusConflict, "It is not your turn"},
	SlotAlreadyUsed:             {http.StatusConflict, "That category and difficulty has already been used"},
	UniqueQuestionUnavailable:   {http.StatusBadGateway, "No unique question is available"},
	QuestionProviderUnavailable: {http.StatusBadGateway, "The question provider is unavailable"},
	InvalidShareCode:            {http.StatusBadRequest, "Invalid share code"},
	ShareCodeNotFound:           {http.StatusNotFound, "Share code not found or expired"},
	ValidationError:             {http.StatusBadRequest, "Validation error"},
	Unexpected:                  {http.StatusInternalServerError, "Unexpected error"},
}

// Error is a taxonomy error: a stable code plus optional detail for logs.
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// New constructs a taxonomy error with no extra detail.
func New(code Code) error {
	return &Error{Code: code}
}

// Newf constructs a taxonomy error carrying a detail message for logs only;
// the detail is never surfaced verbatim to WebSocket clients.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Classify extracts the taxonomy Code and HTTP status from an arbitrary
// error, falling back to Unexpected/500 for anything outside the taxonomy.
func Classify(err error) (Code, int) {
	var e *Error
	if errors.As(err, &e) {
		if entry, ok := taxonomy[e.Code]; ok {
			return e.Code, entry.status
		}
	}
	return Unexpected, taxonomy[Unexpected].status
}

// Message renders the human-friendly prose for a given code, the text used
// both in HTTP JSON bodies and in `{type:"error", message}` WS frames.
func Message(code Code) string {
	if entry, ok := taxonomy[code]; ok {
		return entry.message
	}
	return taxonomy[Unexpected].message
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
