package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestIsMatchesByCodeAcrossClones(t *testing.T) {
	err := ErrProtocol.WrapMsg("bad frame")
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("WrapMsg clone not matched by errors.Is")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatalf("different code matched")
	}
}

func TestWithDetailAppends(t *testing.T) {
	e := ErrConsistency.WithDetail("pair alice_bob").WithDetail("attempt 2")
	if e.Code != ErrConsistency.Code {
		t.Fatalf("code changed: %d", e.Code)
	}
	if !strings.Contains(e.Detail, "pair alice_bob") || !strings.Contains(e.Detail, "attempt 2") {
		t.Fatalf("detail = %q", e.Detail)
	}
	// the sentinel itself stays clean
	if ErrConsistency.Detail != "" {
		t.Fatalf("sentinel mutated: %q", ErrConsistency.Detail)
	}
}

func TestErrorStringContainsCode(t *testing.T) {
	if s := ErrUserNotFound.Error(); !strings.Contains(s, "40401") {
		t.Fatalf("Error() = %q", s)
	}
}

func TestWrapNilSafe(t *testing.T) {
	if Wrap(nil) != nil || WrapMsg(nil, "x") != nil {
		t.Fatalf("nil wrap returned non-nil")
	}
}

func TestAsExtractsCodeError(t *testing.T) {
	err := ErrFatalAuth.Wrap()
	var ce *CodeError
	if !errors.As(err, &ce) {
		t.Fatalf("As failed")
	}
	if ce.Code != ErrFatalAuth.Code {
		t.Fatalf("code = %d", ce.Code)
	}
}
