package log

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/kit/log/level"
)

func captureStd(t *testing.T) (*bytes.Buffer, func()) {
	buf := &bytes.Buffer{}

	lock.Lock()
	old := stdOut
	stdOut = buf
	initStdLogger()
	lock.Unlock()

	return buf, func() {
		lock.Lock()
		stdOut = old
		initStdLogger()
		lock.Unlock()
		SetToInfo()
	}
}

func TestLevelFilter(t *testing.T) {
	buf, restore := captureStd(t)
	defer restore()

	SetToInfo()
	Debug("msg", "hidden")
	Info("msg", "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line must be filtered: %s", out)
	}
	if !strings.Contains(out, "level=info msg=shown") {
		t.Fatalf("expected info line, but got %s", out)
	}

	SetToDebug()
	Debug("msg", "visible")
	if !strings.Contains(buf.String(), "level=debug msg=visible") {
		t.Fatalf("expected debug line, but got %s", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	defer SetToInfo()

	for _, name := range []string{"debug", "INFO", "warn", "warning", "error", ""} {
		if err := SetLevel(name); err != nil {
			t.Fatalf("%q: unexpected err: %s", name, err)
		}
	}
	if err := SetLevel("verbose"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestComponent(t *testing.T) {
	buf, restore := captureStd(t)
	defer restore()

	SetToWarn()
	logger := Component("transport")
	level.Info(logger).Log("msg", "quiet")
	level.Error(logger).Log("msg", "loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info line must be filtered: %s", out)
	}
	if !strings.Contains(out, "level=error component=transport msg=loud") {
		t.Fatalf("expected error line, but got %s", out)
	}
}

func TestEnableFileLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "yure-log")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "logs", "yure.log")
	if err := EnableOnlyFileLogger(true, path); err != nil {
		t.Fatal(err)
	}
	defer EnableStdLogger(true)
	defer EnableFileLogger(false, "")

	Info("msg", "to file")

	data, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=\"to file\"") {
		t.Fatalf("expected line in file, but got %s", data)
	}
}
