package database

import (
	"errors"
	"os"
	"testing"

	"github.com/arangodb/go-driver/v2/arangodb/shared"
)

func TestGetEnvDefault(t *testing.T) {
	t.Setenv("ADVISORY_TEST_VAR", "set")
	if got := GetEnvDefault("ADVISORY_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("got %q, want set", got)
	}

	os.Unsetenv("ADVISORY_TEST_VAR")
	if got := GetEnvDefault("ADVISORY_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestIsNotFoundErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"missing document", shared.ArangoError{HasError: true, Code: 404}, true},
		{"server error", shared.ArangoError{HasError: true, Code: 503}, false},
		{"transport failure", errors.New("dial tcp: connection refused"), false},
	}
	for _, tt := range tests {
		if got := IsNotFoundErr(tt.err); got != tt.want {
			t.Errorf("%s: IsNotFoundErr = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsUniqueConstraintErr(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("unique constraint violated - in index natural_key"), true},
		{errors.New("conflicting key value"), true},
		{errors.New("duplicate document"), true},
		{errors.New("collection not found"), false},
	}
	for _, tt := range tests {
		if got := IsUniqueConstraintErr(tt.err); got != tt.want {
			t.Errorf("IsUniqueConstraintErr(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
