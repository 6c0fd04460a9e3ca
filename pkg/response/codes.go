package response

import (
	"net/http"

	"github.com/coyote/taskboard/internal/apperr"
)

// Numeric codes returned in the envelope. Ranges: 100xx generic,
// 101xx verification, 102xx users, 103xx boards and cards, 104xx delivery.
const (
	CodeInternal           = 10000
	CodeInvalidToken       = 10001
	CodeInvalidCredentials = 10002
	CodeInvalidPermission  = 10003
	CodeValidation         = 10004
	CodeNotFound           = 10005
	CodeConflict           = 10006
	CodeTooManyRequests    = 10007

	CodeVerificationExpired = 10100
	CodeVerificationCode    = 10101

	CodeUserNotFound = 10200
	CodeInactiveUser = 10201
	CodeUserExists   = 10202

	CodeBoardNotFound       = 10300
	CodeNotMember           = 10303
	CodeNotOwner            = 10304
	CodeBoardAlreadyDeleted = 10305
	CodeAlreadyMember       = 10306
	CodeCardNotFound        = 10307
	CodeLastOwner           = 10308

	CodeDelivery = 10400
)

const internalMessage = "An error occurred."

// Entry is the code and message returned for one reason.
type Entry struct {
	Code    int
	Message string
}

var reasons = map[string]Entry{
	apperr.ErrInvalidToken.Reason:        {CodeInvalidToken, "Invalid access token."},
	apperr.ErrInvalidCredentials.Reason:  {CodeInvalidCredentials, "Incorrect email or password."},
	apperr.ErrVerificationExpired.Reason: {CodeVerificationExpired, "Email verification code has expired."},
	apperr.ErrVerificationCode.Reason:    {CodeVerificationCode, "Email verification code is invalid."},
	apperr.ErrUserNotFound.Reason:        {CodeUserNotFound, "User not found."},
	apperr.ErrInactiveUser.Reason:        {CodeInactiveUser, "User is not active."},
	apperr.ErrUserExists.Reason:          {CodeUserExists, "User already exists."},
	apperr.ErrBoardNotFound.Reason:       {CodeBoardNotFound, "Board not found."},
	apperr.ErrNotMember.Reason:           {CodeNotMember, "User is not a member of the board."},
	apperr.ErrNotOwner.Reason:            {CodeNotOwner, "User is not an owner of the board."},
	apperr.ErrBoardAlreadyDeleted.Reason: {CodeBoardAlreadyDeleted, "Board is already deleted."},
	apperr.ErrAlreadyMember.Reason:       {CodeAlreadyMember, "User is already a member of the board."},
	apperr.ErrCardNotFound.Reason:        {CodeCardNotFound, "Card not found."},
	apperr.ErrLastOwner.Reason:           {CodeLastOwner, "The last owner of a board cannot be removed or demoted."},
	apperr.ErrDelivery.Reason:            {CodeDelivery, "Notification could not be delivered."},
}

var kinds = map[apperr.Kind]Entry{
	apperr.KindInternal:    {CodeInternal, internalMessage},
	apperr.KindNotFound:    {CodeNotFound, "Resource not found."},
	apperr.KindConflict:    {CodeConflict, "Resource conflict."},
	apperr.KindForbidden:   {CodeInvalidPermission, "Unauthorized operation."},
	apperr.KindValidation:  {CodeValidation, "Invalid request."},
	apperr.KindAuthInvalid: {CodeInvalidToken, "Invalid access token."},
	apperr.KindDelivery:    {CodeDelivery, "Notification could not be delivered."},
}

// Lookup returns the envelope code and message for a kinded error. Known
// reasons win; otherwise the kind's generic entry is used.
func Lookup(err *apperr.Error) Entry {
	if e, ok := reasons[err.Reason]; ok {
		return e
	}
	if err.Kind == apperr.KindValidation && err.Reason != "" {
		return Entry{CodeValidation, err.Reason}
	}
	return kinds[err.Kind]
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthInvalid:
		return http.StatusUnauthorized
	case apperr.KindDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
