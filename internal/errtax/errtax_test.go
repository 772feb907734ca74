package errtax

import (
	"errors"
	"testing"
)

func TestFatalClassification(t *testing.T) {
	fatal := []error{
		&ConfigError{Field: "projectRoot", Err: errors.New("empty")},
		&StorageError{Op: "open", Err: errors.New("disk full")},
		&MigrationError{Version: 2, Err: errors.New("ddl failed")},
		&IntegrityError{Detail: "dangling callee"},
	}
	for _, err := range fatal {
		if !Fatal(err) {
			t.Errorf("%T should be fatal", err)
		}
	}

	recoverable := []error{
		&ParseError{File: "a.ts", Err: errors.New("unexpected token")},
		&SymbolResolutionError{File: "a.ts", Name: "foo", Err: errors.New("not found")},
		&RangeMismatchError{File: "a.ts", Line: 1, Col: 1},
		&TypeGraphCycleError{TypeName: "A", Cycle: []string{"A", "B", "A"}},
	}
	for _, err := range recoverable {
		if Fatal(err) {
			t.Errorf("%T should be recoverable", err)
		}
	}
}

func TestUnwrapExposesUnderlyingError(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Field: "x", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to see through ConfigError.Unwrap")
	}
}
