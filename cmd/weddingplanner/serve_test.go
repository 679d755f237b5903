package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/weddingplanner/internal/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNewBotDisabledWithoutToken(t *testing.T) {
	bot, err := newBot(&config.Config{}, nil, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, bot)
}

func TestNewBotRejectedToken(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer ts.Close()

	cfg := &config.Config{TelegramToken: "bad-token", TelegramAPI: ts.URL + "/bot%s/%s"}
	bot, err := newBot(cfg, nil, quietLogger())
	assert.Error(t, err)
	assert.Nil(t, bot)
	assert.Equal(t, 1, calls)
}
