package infra

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFrameFormat(t *testing.T) {
	err := NewErrorStack("frame err")
	var es ErrorStack
	require.True(t, errors.As(err, &es))
	frame := es.Frame()

	require.Equal(t, "err_stack_test.go", fmt.Sprintf("%s", frame))
	require.Equal(t, "TestFrameFormat", fmt.Sprintf("%n", frame))
	require.True(t, strings.HasPrefix(fmt.Sprintf("%v", frame), "err_stack_test.go:"))
	require.True(t, strings.HasPrefix(fmt.Sprintf("%+s", frame), "github.com/benz9527/xtree/lib/infra.TestFrameFormat\n\t"))

	testcases := []struct {
		format string
		want   string
	}{
		{"%s", "unknownFile"},
		{"%n", "unknownFunc"},
		{"%d", "0"},
	}
	for _, tc := range testcases {
		require.Equal(t, tc.want, fmt.Sprintf(tc.format, Frame(0)))
	}
}

func TestFrameMarshalText(t *testing.T) {
	_bytes, err := Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(_bytes))

	es := NewErrorStack("marshal").(ErrorStack)
	_bytes, err = es.Frame().MarshalText()
	require.NoError(t, err)
	require.Contains(t, string(_bytes), "infra.TestFrameMarshalText")
	require.Contains(t, string(_bytes), "err_stack_test.go:")
}

func TestWrapErrorStack(t *testing.T) {
	require.NoError(t, WrapErrorStack(nil))

	base := errors.New("base")
	wrapped := WrapErrorStack(base)
	require.ErrorIs(t, wrapped, base)
	require.Equal(t, "base", wrapped.Error())

	again := WrapErrorStack(wrapped)
	require.Same(t, wrapped.(*errorStack), again.(*errorStack))

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, wrapped.(ErrorStack).MarshalLogObject(enc))
	require.Equal(t, "base", enc.Fields["error"])
	require.Contains(t, enc.Fields["errorAt"], "err_stack_test.go")
}
