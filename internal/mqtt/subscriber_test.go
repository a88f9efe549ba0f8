package mqtt

import (
	"context"
	"errors"
	"io"
	"testing"

	"example.com/rfidscan/internal/scanlog"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestProcess_DeliversPayload(t *testing.T) {
	var gotAccount scanlog.Account
	var got ScanPayload
	sub := NewSubscriber(nil, "rfid/+/scan", func(_ context.Context, account scanlog.Account, p ScanPayload) error {
		gotAccount = account
		got = p
		return nil
	}, quietLogger())

	err := sub.Process(context.Background(), "rfid/dock-door-3/scan",
		[]byte(`{"device_id":2,"scan_time":1700000000,"tag_uid":"04a1225b3c8011"}`))
	require.NoError(t, err)

	assert.Equal(t, scanlog.Account("dock-door-3"), gotAccount)
	require.NotNil(t, got.ScanTime)
	assert.Equal(t, uint32(1700000000), *got.ScanTime)
	assert.Equal(t, uint32(2), got.DeviceID)
	assert.Equal(t, "04a1225b3c8011", got.TagUID)
}

func TestProcess_AcceptsZeroScanTime(t *testing.T) {
	var got ScanPayload
	sub := NewSubscriber(nil, "rfid/+/scan", func(_ context.Context, _ scanlog.Account, p ScanPayload) error {
		got = p
		return nil
	}, quietLogger())

	err := sub.Process(context.Background(), "rfid/gate/scan",
		[]byte(`{"device_id":1,"scan_time":0,"tag_uid":"04A1225B3C8011"}`))
	require.NoError(t, err)
	require.NotNil(t, got.ScanTime)
	assert.Zero(t, *got.ScanTime)
}

func TestProcess_RejectsBadMessages(t *testing.T) {
	called := false
	sub := NewSubscriber(nil, "rfid/+/scan", func(context.Context, scanlog.Account, ScanPayload) error {
		called = true
		return nil
	}, quietLogger())

	cases := map[string]struct {
		topic string
		body  string
	}{
		"no account":   {"rfid", `{"scan_time":1,"tag_uid":"01"}`},
		"bad json":     {"rfid/a/scan", `{`},
		"missing tag":  {"rfid/a/scan", `{"scan_time":1}`},
		"non-hex tag":  {"rfid/a/scan", `{"scan_time":1,"tag_uid":"zz"}`},
		"missing time": {"rfid/a/scan", `{"tag_uid":"01"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, sub.Process(context.Background(), tc.topic, []byte(tc.body)))
		})
	}
	assert.False(t, called)
}

func TestProcess_PropagatesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	sub := NewSubscriber(nil, "rfid/+/scan", func(context.Context, scanlog.Account, ScanPayload) error {
		return boom
	}, quietLogger())

	err := sub.Process(context.Background(), "rfid/a/scan", []byte(`{"scan_time":1,"tag_uid":"01"}`))
	assert.ErrorIs(t, err, boom)
}

func TestExtractAccount(t *testing.T) {
	assert.Equal(t, "gate", ExtractAccount("rfid/gate/scan"))
	assert.Equal(t, "", ExtractAccount("rfid"))
}
