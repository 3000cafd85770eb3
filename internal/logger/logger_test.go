package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{name: "production uses json", environment: "production", wantJSON: true},
		{name: "development uses pretty", environment: "development"},
		{name: "test uses pretty", environment: "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})

			log.Info("plants loaded")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"plants loaded"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.Contains(t, buf.String(), "plants loaded")
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Environment: "development", Writer: &buf})

	log.Info("test")

	assert.Contains(t, buf.String(), `"msg":"test"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("Debug"))
	assert.False(t, ValidLevel("verbose"))
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandler_GroupsQualifyKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.WithGroup("store").With("driver", "badger").Info("opened", "revision", 3)

	assert.Contains(t, buf.String(), "store.driver=badger")
	assert.Contains(t, buf.String(), "store.revision=3")
}

func TestPrettyHandler_QuotesSpacedStrings(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.Info("added", "name", "Snake Plant")

	assert.Contains(t, buf.String(), `name="Snake Plant"`)
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Writer: &buf})

	log.WithError(errors.New("disk full")).WithField("plant_id", "plant-1").Info("persist failed")
	log.Component("calendar").Info("applied")

	out := buf.String()
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"plant_id":"plant-1"`)
	assert.Contains(t, out, `"component":"calendar"`)
	assert.Same(t, log, log.WithError(nil))
}
