package cmds

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/chefbot/pkg/backend"
	"github.com/go-go-golems/chefbot/pkg/config"
)

func TestPrintSettings_HumanizesDurations(t *testing.T) {
	var buf bytes.Buffer
	err := printSettings(&buf, config.Relay{
		Addr:       ":8081",
		BackendURL: "http://127.0.0.1:5000",
		Timeout:    2 * time.Minute,
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "timeout: 2m0s")
	require.Contains(t, buf.String(), "backend-url: http://127.0.0.1:5000")
}

func TestPrintSettings_InlinesEmbeddedSettings(t *testing.T) {
	var buf bytes.Buffer
	err := printSettings(&buf, config.Backend{
		Addr:           ":5000",
		HistoryLimit:   20,
		EngineSettings: backend.EngineSettings{APIKey: maskSecret("sk-abcdef1234"), Model: "gpt-4o-mini"},
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "****1234")
	require.NotContains(t, buf.String(), "abcdef")
	require.Contains(t, buf.String(), "model: gpt-4o-mini")
	require.NotContains(t, buf.String(), "enginesettings")
}

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "", maskSecret(""))
	require.Equal(t, "****", maskSecret("abc"))
	require.Equal(t, "****wxyz", maskSecret("sk-wxyz"))
}
