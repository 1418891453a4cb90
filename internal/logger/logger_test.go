package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInitLogger_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, InitLogger("DEBUG", "json").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, InitLogger("warn", "console").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, InitLogger("chatty", "json").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, InitLogger("", "json").GetLevel())
}
