package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/parser/pdftest"
)

// The test binary doubles as a stand-in llama-server when this is set.
const fakeServerEnv = "CLI_FAKE_LLAMA"

func TestMain(m *testing.M) {
	if os.Getenv(fakeServerEnv) == "1" {
		os.Exit(runFakeServer(os.Args[1:]))
	}
	os.Exit(m.Run())
}

// runFakeServer answers chunk prompts that mention a hardness value with one
// property line and merges by echoing the first numbered entry.
func runFakeServer(args []string) int {
	var port string
	for i, a := range args {
		if a == "--port" && i+1 < len(args) {
			port = args[i+1]
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt   string `json:"prompt"`
			NPredict int    `json:"n_predict"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		content := "No alloy information"
		switch {
		case req.NPredict == extract.MergeParams.MaxTokens:
			content = "Hardness: 350 HB"
		case strings.Contains(req.Prompt, "350 HB hardness"):
			content = " Hardness: 350 HB \n"
		}
		json.NewEncoder(w).Encode(map[string]string{"content": content})
	})
	if err := http.ListenAndServe("127.0.0.1:"+port, mux); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// run executes the command tree with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func withFakeLlama(t *testing.T) string {
	t.Helper()
	t.Setenv(fakeServerEnv, "1")
	t.Setenv("PATENTALLOY_MODEL_SERVER_BIN", os.Args[0])
	t.Setenv("PATENTALLOY_MODEL_THREADS", "2")
	model := filepath.Join(t.TempDir(), "model.gguf")
	require.NoError(t, os.WriteFile(model, []byte("gguf"), 0o644))
	return model
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "patentalloy dev (commit unknown)\n", stdout)
}

func TestExtract_EndToEnd(t *testing.T) {
	model := withFakeLlama(t)
	doc := filepath.Join(t.TempDir(), "US777.txt")
	require.NoError(t, os.WriteFile(doc, []byte("A nickel superalloy.\n\nIt shows 350 HB hardness after aging."), 0o644))

	stdout, stderr, err := run(t, "extract", doc, "--model", model, "--chunk-size", "30")
	require.NoError(t, err, stderr)
	assert.Equal(t, "Hardness: 350 HB\n", stdout)
	assert.Contains(t, stderr, "loading model")
}

func TestExtract_PDFWithText(t *testing.T) {
	model := withFakeLlama(t)
	doc := filepath.Join(t.TempDir(), "US777.pdf")
	require.NoError(t, os.WriteFile(doc, pdftest.Document("Cast at 1450 C", "350 HB hardness"), 0o644))

	stdout, stderr, err := run(t, "extract", doc, "--model", model, "--text")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "Cast at 1450 C")
	assert.Contains(t, stdout, "350 HB hardness")
	assert.True(t, strings.HasSuffix(stdout, "Hardness: 350 HB\n"), stdout)
}

func TestExtract_NoAlloyData(t *testing.T) {
	model := withFakeLlama(t)
	doc := filepath.Join(t.TempDir(), "plain.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Field\n\nA method of packaging."), 0o644))

	stdout, stderr, err := run(t, "extract", doc, "--model", model)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, noAlloyMessage)
}

func TestExtract_MissingModel(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(doc, []byte("steel"), 0o644))

	_, _, err := run(t, "extract", doc, "--model", filepath.Join(t.TempDir(), "absent.gguf"))
	var cfgErr *extract.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
}

func TestExtract_InvalidOverlap(t *testing.T) {
	model := withFakeLlama(t)
	doc := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(doc, []byte("steel"), 0o644))

	_, _, err := run(t, "extract", doc, "--model", model, "--chunk-size", "10", "--overlap", "10")
	assert.ErrorIs(t, err, extract.ErrInvalidOptions)
}

func TestExtract_RequiresOneFile(t *testing.T) {
	_, _, err := run(t, "extract")
	assert.Error(t, err)
}

func TestExtract_UnsupportedFile(t *testing.T) {
	doc := filepath.Join(t.TempDir(), "sheet.xlsx")
	require.NoError(t, os.WriteFile(doc, []byte("PK"), 0o644))

	_, _, err := run(t, "extract", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigFlag_MissingFile(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "extract", "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestLogLevelFlag_Invalid(t *testing.T) {
	_, _, err := run(t, "--log-level", "loud", "extract", "x.txt")
	assert.Error(t, err)
}

func TestWatch_RequiresInbox(t *testing.T) {
	_, _, err := run(t, "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inbox")
}
