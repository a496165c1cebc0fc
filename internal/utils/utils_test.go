package utils

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Error Tests
// =============================================================================

func TestErrorWithSuggestionError(t *testing.T) {
	err := &ErrorWithSuggestion{
		Err:        errors.New("something went wrong"),
		Suggestion: "Try doing X",
	}

	assert.Contains(t, err.Error(), "something went wrong")
	assert.Contains(t, err.Error(), "Suggestion: Try doing X")
	assert.Equal(t, "Try doing X", err.GetSuggestion())
}

func TestWrapWithSuggestionUnwraps(t *testing.T) {
	underlying := errors.New("original error")
	wrapped := WrapWithSuggestion(underlying, "custom suggestion")

	var withSuggestion *ErrorWithSuggestion
	require.True(t, errors.As(wrapped, &withSuggestion))
	assert.Equal(t, "custom suggestion", withSuggestion.GetSuggestion())
	assert.ErrorIs(t, wrapped, underlying)
}

func TestErrBackendOfflineSuggestions(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"dial tcp: lookup api: no such host", "DNS"},
		{"connect: connection refused", "server is running"},
		{"context deadline exceeded", "Try again later"},
		{"something else", "internet connection"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			err := ErrBackendOffline(tt.reason)
			assert.Contains(t, err.Error(), tt.reason)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestErrUnknownResourceListsOptions(t *testing.T) {
	err := ErrUnknownResource("widgets", []string{"contacts", "tasks"})
	assert.Contains(t, err.Error(), "widgets")
	assert.Contains(t, err.Error(), "contacts, tasks")
}

func TestErrRateLimitedKeepsCause(t *testing.T) {
	cause := errors.New("http 429")
	err := ErrRateLimited(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "try again later")
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidatePageSize(t *testing.T) {
	assert.NoError(t, ValidatePageSize(1))
	assert.NoError(t, ValidatePageSize(20))
	assert.NoError(t, ValidatePageSize(MaxPageSize))
	assert.Error(t, ValidatePageSize(0))
	assert.Error(t, ValidatePageSize(MaxPageSize+1))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("42"))
	assert.NoError(t, ValidateID("abc-123"))
	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("   "))
	assert.Error(t, ValidateID("1/2"))
	assert.Error(t, ValidateID("1?x=y"))
	assert.Error(t, ValidateID(".."))
	assert.Error(t, ValidateID("."))
	assert.Error(t, ValidateID(" .. "))
	assert.Error(t, ValidateID(`a\b`))
	assert.NoError(t, ValidateID("v1.2"))
}

func TestParsePayload(t *testing.T) {
	payload, err := ParsePayload(`{"name":"Website","status":"active"}`)
	require.NoError(t, err)
	assert.Equal(t, "Website", payload["name"])

	for _, raw := range []string{"", "null", "[1,2]", "{broken"} {
		_, err := ParsePayload(raw)
		assert.Error(t, err, "payload %q should be rejected", raw)
	}
}

// =============================================================================
// Input Tests
// =============================================================================

func TestPromptYesNoWithReader(t *testing.T) {
	var out bytes.Buffer

	assert.True(t, PromptYesNoWithReader("Delete?", strings.NewReader("y\n"), &out))
	assert.False(t, PromptYesNoWithReader("Delete?", strings.NewReader("no\n"), &out))
	assert.True(t, PromptYesNoWithReader("Delete?", strings.NewReader("maybe\nyes\n"), &out))
	assert.False(t, PromptYesNoWithReader("Delete?", strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Please answer")
}

// =============================================================================
// Logger Tests
// =============================================================================

func resetLogger() {
	once = sync.Once{}
	loggerInstance = nil
}

func TestGetLoggerSingleton(t *testing.T) {
	assert.Same(t, GetLogger(), GetLogger())
}

func TestSetVerboseMode(t *testing.T) {
	resetLogger()

	logger := GetLogger()
	assert.False(t, logger.IsVerbose())

	SetVerboseMode(true)
	assert.True(t, logger.IsVerbose())

	SetVerboseMode(false)
	assert.False(t, logger.IsVerbose())
}

func TestDebugOnlyWhenVerbose(t *testing.T) {
	resetLogger()
	var buf bytes.Buffer
	SetOutput(&buf)

	Debugf("hidden %d", 1)
	assert.NotContains(t, buf.String(), "hidden")

	SetVerboseMode(true)
	Debugf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	SetVerboseMode(false)
}

func TestWithComponentTagsOutput(t *testing.T) {
	resetLogger()
	var buf bytes.Buffer
	SetOutput(&buf)

	log := WithComponent("cache")
	log.Warn().Str("key", "tasks_p1_n20").Msg("storage read failed")

	assert.Contains(t, buf.String(), "storage read failed")
	assert.Contains(t, buf.String(), "component=cache")
	assert.Contains(t, buf.String(), "tasks_p1_n20")
}

func TestInitLoggerLevels(t *testing.T) {
	resetLogger()
	InitLogger("error", false)
	var buf bytes.Buffer
	SetOutput(&buf)

	Warnf("quiet warning")
	Errorf("loud error")
	assert.NotContains(t, buf.String(), "quiet warning")
	assert.Contains(t, buf.String(), "loud error")

	InitLogger("info", false)
}

func TestLeveledHelpersWrite(t *testing.T) {
	resetLogger()
	InitLogger("debug", true)
	var buf bytes.Buffer
	SetOutput(&buf)

	Debugf("debug %s", "line")
	Infof("info %s", "line")
	Warnf("warn %s", "line")
	Errorf("error %s", "line")

	for _, want := range []string{"debug line", "info line", "warn line", "error line"} {
		assert.Contains(t, buf.String(), want)
	}
	InitLogger("info", false)
}

func TestZerologReturnsCopy(t *testing.T) {
	resetLogger()
	var buf bytes.Buffer
	SetOutput(&buf)

	z := GetLogger().Zerolog()
	*z = z.Level(zerolog.Disabled)

	Infof("still logged")
	assert.Contains(t, buf.String(), "still logged")
}
