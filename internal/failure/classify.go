// Package failure maps dispatch failures to a closed taxonomy of kinds with
// user-facing fallback text.
package failure

import (
	"errors"
	"net/http"

	"github.com/capitalize-ai/assistant-session/internal/dispatch"
)

// Kind is a classified failure.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindRateLimited       Kind = "rate-limited"
	KindServerError       Kind = "server-error"
	KindOffline           Kind = "offline"
	KindUnreachable       Kind = "unreachable"
	KindMalformedResponse Kind = "malformed-response"
)

var userMessages = map[Kind]string{
	KindValidation:        "Please enter a message of up to 1000 characters.",
	KindRateLimited:       "I'm getting a lot of questions right now. Please wait a minute before sending another message.",
	KindServerError:       "The assistant is temporarily unavailable. Please try again shortly.",
	KindOffline:           "You appear to be offline. Please check your network connection and try again.",
	KindUnreachable:       "I couldn't reach the assistant. The service may be starting up or there may be a connectivity issue. Please try again in a moment.",
	KindMalformedResponse: "I received a response I couldn't understand. Please try asking again.",
}

// Classification is the outcome of classifying one failure.
type Classification struct {
	Kind        Kind
	UserMessage string
	StatusCode  int
}

// UserMessage returns the fallback text for a kind.
func UserMessage(kind Kind) string {
	return userMessages[kind]
}

// Classify maps err to a kind. Only the status code of an HTTP failure is
// consulted; online decides between offline and unreachable when the
// request never completed. The result depends only on its inputs.
func Classify(err error, online bool) Classification {
	kind := KindUnreachable
	status := 0

	var derr *dispatch.Error
	switch {
	case errors.As(err, &derr) && derr.Malformed:
		kind = KindMalformedResponse
	case errors.As(err, &derr) && derr.StatusCode != 0:
		status = derr.StatusCode
		kind = kindForStatus(status)
	case !online:
		kind = KindOffline
	}

	return Classification{
		Kind:        kind,
		UserMessage: userMessages[kind],
		StatusCode:  status,
	}
}

// Validation returns the classification of a rejected local submission.
func Validation() Classification {
	return Classification{Kind: KindValidation, UserMessage: userMessages[KindValidation]}
}

func kindForStatus(status int) Kind {
	if status == http.StatusTooManyRequests {
		return KindRateLimited
	}
	return KindServerError
}
