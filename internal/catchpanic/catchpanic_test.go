package catchpanic

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTest = fmt.Errorf("test_error")

func TestCatchError(t *testing.T) {
	a := assert.New(t)

	err := Catch(func() { panic(errTest) })
	a.ErrorContains(err, "test_error")
	a.True(errors.Is(err, errTest))

	var panicError *PanicError
	if a.True(errors.As(err, &panicError)) {
		a.Contains(string(panicError.Stack), "catchpanic")
	}
}

func TestCatchString(t *testing.T) {
	a := assert.New(t)

	err := Catch(func() { panic("test_error") })
	a.EqualError(err, "catchpanic: recovered panic: test_error")
	a.Nil(errors.Unwrap(err))
}

func TestCatchNoPanic(t *testing.T) {
	assert.NoError(t, Catch(func() {}))
}

func TestCatchErr0(t *testing.T) {
	a := assert.New(t)

	a.ErrorIs(CatchErr0(func() error { return errTest }), errTest)
	a.ErrorIs(CatchErr0(func() error { panic(errTest) }), errTest)
	a.ErrorContains(CatchErr0(func() error { panic("test_error") }), "test_error")
	a.NoError(CatchErr0(func() error { return nil }))
}

var catchErr1Tests = []struct {
	name   string
	fn     func() (string, error)
	result string
	error  string
}{
	{"result", func() (string, error) { return "test_result", nil }, "test_result", ""},
	{"result and error", func() (string, error) { return "test_result", errTest }, "test_result", "test_error"},
	{"error", func() (string, error) { return "", errTest }, "", "test_error"},
	{"panic with error", func() (string, error) { panic(errTest) }, "", "test_error"},
	{"panic with string", func() (string, error) { panic("test_error") }, "", "test_error"},
}

func TestCatchErr1(t *testing.T) {
	for _, tc := range catchErr1Tests {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			v, err := CatchErr1(tc.fn)
			a.Equal(tc.result, v)

			if tc.error != "" {
				a.ErrorContains(err, tc.error)
			} else {
				a.NoError(err)
			}
		})
	}
}
