package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/assistant-session/internal/dispatch"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		online bool
		want   Kind
	}{
		{"rate limited", &dispatch.Error{StatusCode: 429}, true, KindRateLimited},
		{"rate limited while offline flag", &dispatch.Error{StatusCode: 429}, false, KindRateLimited},
		{"server error", &dispatch.Error{StatusCode: 500}, true, KindServerError},
		{"bad gateway", &dispatch.Error{StatusCode: 502}, true, KindServerError},
		{"other status", &dispatch.Error{StatusCode: 404}, true, KindServerError},
		{"offline", &dispatch.Error{Err: &net.OpError{Op: "dial", Err: errors.New("no route")}}, false, KindOffline},
		{"unreachable", &dispatch.Error{Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, true, KindUnreachable},
		{"deadline", &dispatch.Error{Err: context.DeadlineExceeded}, true, KindUnreachable},
		{"malformed", &dispatch.Error{Malformed: true, Err: errors.New("bad json")}, true, KindMalformedResponse},
		{"wrapped", fmt.Errorf("send: %w", &dispatch.Error{StatusCode: 503}), true, KindServerError},
		{"unknown error online", errors.New("boom"), true, KindUnreachable},
		{"unknown error offline", errors.New("boom"), false, KindOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.online)
			require.Equal(t, tt.want, got.Kind)
			require.Equal(t, UserMessage(tt.want), got.UserMessage)
			require.NotEmpty(t, got.UserMessage)
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	inputs := []error{
		&dispatch.Error{StatusCode: 429},
		&dispatch.Error{StatusCode: 500},
		&dispatch.Error{Err: errors.New("dial")},
		&dispatch.Error{Malformed: true},
	}
	for _, err := range inputs {
		for _, online := range []bool{true, false} {
			first := Classify(err, online)
			for i := 0; i < 5; i++ {
				require.Equal(t, first.Kind, Classify(err, online).Kind)
			}
		}
	}
}

func TestOfflineNotUnreachable(t *testing.T) {
	got := Classify(&dispatch.Error{Err: errors.New("network is down")}, false)
	require.Equal(t, KindOffline, got.Kind)
}

func TestValidation(t *testing.T) {
	require.Equal(t, KindValidation, Validation().Kind)
}
