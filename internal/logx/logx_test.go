package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "json")
	require.NoError(t, err)
	l.Info("hidden")
	l.WithField("rule", "IDREG-AUTH-201").Warn("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "IDREG-AUTH-201", line["rule"])

	_, err = New(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = New(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestUnaryServerInterceptor(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	icpt := UnaryServerInterceptor(logger)
	info := &grpc.UnaryServerInfo{FullMethod: "/xdao.idreg.v1.Registry/Nonce"}

	resp, err := icpt(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "OK", hook.LastEntry().Data["code"])

	_, err = icpt(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "nope")
	})
	require.Error(t, err)
	entry := hook.LastEntry()
	assert.Equal(t, "NotFound", entry.Data["code"])
	assert.Equal(t, info.FullMethod, entry.Data["method"])
	assert.True(t, errors.Is(entry.Data[logrus.ErrorKey].(error), err))
}
