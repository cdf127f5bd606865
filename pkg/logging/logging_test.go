package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", false)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Empty(t, buf.String())
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "loud", false)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "Unknown log level")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", true)
	logger.WithField("charge_code", "CHG1").Info("Swap started")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "CHG1", line["charge_code"])
	assert.Equal(t, "Swap started", line["msg"])
}
