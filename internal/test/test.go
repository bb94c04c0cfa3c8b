// Package test contains assertion helpers shared by package tests.
package test

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/ava12/gramform"
)

func fatalf(t *testing.T, message string, params ...any) {
	t.Helper()
	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}
	_, thisFile, _, _ := runtime.Caller(0)
	file := thisFile
	line := 0
	for i := 2; file == thisFile; i++ {
		_, file, line, _ = runtime.Caller(i)
	}
	t.Fatalf("%s at %s:%d", message, file, line)
}

func Assert(t *testing.T, cond bool, message string, params ...any) {
	if !cond {
		fatalf(t, message, params...)
	}
}

func Expect(t *testing.T, cond bool, expected, got any) {
	if !cond {
		fatalf(t, "expecting %v, got %v", expected, got)
	}
}

func ExpectBool(t *testing.T, expected, got bool) {
	Expect(t, expected == got, expected, got)
}

func ExpectInt(t *testing.T, expected, got int) {
	Expect(t, expected == got, expected, got)
}

func ExpectString(t *testing.T, expected, got string) {
	Expect(t, expected == got, fmt.Sprintf("%q", expected), fmt.Sprintf("%q", got))
}

func ExpectNoError(t *testing.T, e error) {
	if e != nil {
		fatalf(t, "unexpected error: %s", e.Error())
	}
}

// ExpectErrorCode checks that e is or wraps *gramform.Error with expected code.
func ExpectErrorCode(t *testing.T, expected int, e error) {
	if gramform.HasCode(e, expected) {
		return
	}

	fatalf(t, "expecting error code %d, got %v", expected, e)
}
