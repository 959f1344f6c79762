package docs

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/doclantern/doclantern/internal/retry"
)

// silentBackendScript completes the MCP handshake and then stops answering,
// simulating a hung documentation backend.
const silentBackendScript = `read line
printf '{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05"}}\n'
sleep 30`

func TestStdioCallTimesOutAgainstSilentBackend(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	c := NewClient(Config{
		Command:     "sh",
		Args:        []string{"-c", silentBackendScript},
		CallTimeout: 300 * time.Millisecond,
		Retry:       retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond},
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		_, err := c.ResolveLibraryID(context.Background(), LibraryQuery{Name: "requests"})
		done <- err
	}()

	select {
	case err := <-done:
		var ue *UpstreamUnavailableError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UpstreamUnavailableError, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("resolve still blocked long after the call timeout expired")
	}
}

func TestMergeEnvKeepsProcessEnvironment(t *testing.T) {
	t.Setenv("PATH", "/usr/bin:/bin")
	env := mergeEnv(map[string]string{"DOCS_API_KEY": "secret"})

	var hasPath, hasExtra bool
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			hasPath = true
		}
		if kv == "DOCS_API_KEY=secret" {
			hasExtra = true
		}
	}
	if !hasPath {
		t.Error("PATH missing from subprocess environment")
	}
	if !hasExtra {
		t.Error("configured variable missing from subprocess environment")
	}
}
