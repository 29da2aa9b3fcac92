package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestGetLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	logger := GetLogger("config")
	logger.Info().Msg("entries loaded")

	if !strings.Contains(buf.String(), `"component":"config"`) {
		t.Errorf("expected component field on log output, got %q", buf.String())
	}
}
