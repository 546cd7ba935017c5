package core

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
)

func Test_errorPredicates(t *testing.T) {
	wrapped := func(status int) error {
		return errors.Wrap(&APIError{Status: status}, "calling the platform API")
	}
	tests := []struct {
		name string
		pred func(error) bool
		err  error
		want bool
	}{
		{name: "auth expired", pred: IsAuthExpired, err: wrapped(http.StatusUnauthorized), want: true},
		{name: "forbidden", pred: IsForbidden, err: wrapped(http.StatusForbidden), want: true},
		{name: "not found", pred: IsNotFound, err: wrapped(http.StatusNotFound), want: true},
		{name: "validation failed", pred: IsValidationFailed, err: wrapped(http.StatusUnprocessableEntity), want: true},
		{name: "server fault", pred: IsServerFault, err: wrapped(http.StatusInternalServerError), want: true},
		{name: "network unreachable", pred: IsNetworkUnreachable, err: wrapped(0), want: true},
		{name: "refresh failed", pred: IsRefreshFailed, err: errors.Wrap(&RefreshFailedError{Err: errors.New("nope")}, "refreshing session"), want: true},
		{name: "bare api error", pred: IsForbidden, err: &APIError{Status: http.StatusForbidden}, want: true},
		{name: "status mismatch", pred: IsForbidden, err: wrapped(http.StatusNotFound), want: false},
		{name: "refresh failed is not an api error", pred: IsAuthExpired, err: &RefreshFailedError{}, want: false},
		{name: "plain error", pred: IsServerFault, err: errors.New("boom"), want: false},
		{name: "nil", pred: IsNotFound, err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v; want %v", got, tt.want)
			}
		})
	}
}
