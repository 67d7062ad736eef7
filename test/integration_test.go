//go:build integration

package test_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxentry/audio"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("VOXENTRY_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "VOXENTRY_TEST_BIN not set; build the binary and point it there")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func writeTone(t *testing.T, path string, frames int) {
	t.Helper()
	sink, err := audio.CreateWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Write(audio.Tone(frames)); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
}

type env struct {
	logDir  string
	vars    []string
	uploads chan string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{logDir: t.TempDir(), uploads: make(chan string, 4)}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e.uploads <- r.FormValue("model")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text": "integration transcript"}`)
	}))
	t.Cleanup(srv.Close)

	e.vars = append(os.Environ(),
		"XDG_CONFIG_HOME="+t.TempDir(),
		"VOXENTRY_RUNTIME_DIR="+t.TempDir(),
		"VOXENTRY_TRANSCRIPTION_URL="+srv.URL+"/v1/audio/transcriptions",
		"OPENAI_API_KEY=sk-integration",
	)
	return e
}

func (e *env) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, testBinary, append([]string{"-q", "--logpath", e.logDir}, args...)...)
	cmd.Env = e.vars
	return cmd
}

func (e *env) run(t *testing.T, args ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := e.command(ctx, args...).CombinedOutput()
	if err != nil {
		t.Fatalf("voxentry %s: %v\noutput: %s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

func (e *env) readLog(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.logDir, "voxentry_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSecondRecordStopsFirst(t *testing.T) {
	e := newEnv(t)
	wav := filepath.Join(t.TempDir(), "speech.wav")
	writeTone(t, wav, audio.SampleRate*2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	first := e.command(ctx, "record", "--simulate", wav)
	var out bytes.Buffer
	first.Stdout = &out
	first.Stderr = &out
	if err := first.Start(); err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("recording: pid %d", first.Process.Pid)
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(e.run(t, "status"), want) {
		if time.Now().After(deadline) {
			t.Fatalf("status never showed the session\noutput: %s", out.String())
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	e.run(t, "record")

	if err := first.Wait(); err != nil {
		t.Fatalf("session exited with %v\noutput: %s", err, out.String())
	}
	select {
	case model := <-e.uploads:
		if model == "" {
			t.Error("upload carried no model")
		}
	default:
		t.Fatal("no transcription request was made")
	}

	logText := e.readLog(t)
	for _, w := range []string{"session_start", "pipeline_done", "mode=transcription", "session_end"} {
		if !strings.Contains(logText, w) {
			t.Errorf("log missing %q", w)
		}
	}
	if s := e.run(t, "status"); !strings.Contains(s, "idle") {
		t.Errorf("status after exit = %q", s)
	}
}

func TestStopWithoutSession(t *testing.T) {
	e := newEnv(t)
	if s := e.run(t, "stop"); !strings.Contains(s, "no session running") {
		t.Errorf("stop = %q", s)
	}
	if s := e.run(t, "status"); !strings.Contains(s, "idle") {
		t.Errorf("status = %q", s)
	}
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	if s := e.run(t, "version"); strings.TrimSpace(s) == "" {
		t.Error("empty version output")
	}
}
