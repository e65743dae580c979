package fiber_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/heimrichhannot/contao-ldap-bundle/internal/logger/adapter/fiber"
	"github.com/heimrichhannot/contao-ldap-bundle/internal/logger"
)

// accessLogLine implements the access log default json format.
type accessLogLine struct {
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Host   string `json:"host"`
}

func consoleAccessConfig() adapter.Config {
	return adapter.Config{
		Config: logger.Log{
			EnableAccessLogToConsole: true,
			Console:                  logger.Console{Enabled: true},
		},
	}
}

func TestAccessLogDisabled(t *testing.T) {
	out, err := testMiddlewareHelper(t, "/", adapter.Config{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAccessLogConsoleJSON(t *testing.T) {
	testCases := []struct {
		name       string
		targetPath string
		wantStatus int
		wantURI    string
	}{
		{"root", "/", 200, "/"},
		{"unknown path", "/no_path", 404, "/no_path"},
		{"query string preserved", "/?test=123", 200, "/?test=123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := testMiddlewareHelper(t, tc.targetPath, consoleAccessConfig())
			require.NoError(t, err)
			require.NotEmpty(t, out)

			var line accessLogLine
			require.NoError(t, json.Unmarshal([]byte(out), &line))

			assert.Equal(t, tc.wantStatus, line.Status)
			assert.Equal(t, tc.wantURI, line.URI)
			assert.Equal(t, fiber.MethodGet, line.Method)
			assert.Equal(t, "example.com", line.Host)
		})
	}
}

func TestAccessLogSkipsCheckAlive(t *testing.T) {
	cfg := consoleAccessConfig()
	cfg.Config.DisableCheckAlive = true
	cfg.CheckAliveURI = "/checkalive"

	out, err := testMiddlewareHelper(t, "/checkalive", cfg)
	require.NoError(t, err)
	assert.Empty(t, out)

	// other paths still logged
	out, err = testMiddlewareHelper(t, "/", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestAccessLogNextSkips(t *testing.T) {
	cfg := consoleAccessConfig()
	cfg.Next = func(*fiber.Ctx) bool { return true }

	out, err := testMiddlewareHelper(t, "/", cfg)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func testMiddlewareHelper(t *testing.T, targetPath string, adapterConfig adapter.Config) (string, error) {
	t.Helper()

	stdout := os.Stdout
	stderr := os.Stderr

	// capture stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	os.Stderr = w

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		Immutable:     true,
	})

	app.Use(adapter.New(adapterConfig))

	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("hello test")
	})
	app.Get("/checkalive", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, targetPath, nil), 100000)
	if err != nil {
		_ = w.Close()
		return "", err
	}

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer
		if _, errCopy := io.Copy(&buf, r); errCopy != nil {
			return
		}

		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout
	os.Stderr = stderr

	return <-outC, err
}
