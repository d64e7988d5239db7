package core

import (
	"strings"
	"testing"
)

// expectAbort runs fn and fails the test unless it aborts with a message
// containing want.
func expectAbort(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected abort containing %q, got none", want)
			return
		}
		msg, _ := r.(string)
		if !strings.Contains(msg, want) {
			t.Errorf("Expected abort containing %q, got %v", want, r)
		}
	}()
	fn()
}
