package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	f := filepath.Join(t.TempDir(), "pushstore.yml")
	require.Nil(t, os.WriteFile(f, []byte(content), 0644))
	ConfigFile = f
}

func init() {
	color.NoColor = true
}

const memoryConfig = `
log:
  level: error
persistence:
  type: memory
`

func TestRunCheck(t *testing.T) {
	a := assert.New(t)
	writeConfig(t, memoryConfig)
	var buf bytes.Buffer
	a.Nil(runCheck(context.Background(), &buf))
	out := buf.String()
	for _, step := range []string{"open", "session queue", "qos2 exchange", "retained", "destroy session"} {
		a.Contains(out, "OK "+step)
	}
}

func TestRunCheck_InvalidConfig(t *testing.T) {
	writeConfig(t, "persistence:\n  type: unknown\n")
	var buf bytes.Buffer
	assert.NotNil(t, runCheck(context.Background(), &buf))
}

func TestLoadConfig_NotExist(t *testing.T) {
	a := assert.New(t)
	ConfigFile = filepath.Join(t.TempDir(), "not_exist.yml")
	var buf bytes.Buffer
	c, err := loadConfig(&buf)
	a.Nil(err)
	a.Equal("memory", c.Persistence.Type)
	a.Contains(buf.String(), "use default configuration")
}

func TestRunBench(t *testing.T) {
	a := assert.New(t)
	writeConfig(t, memoryConfig)
	for _, qos := range []uint8{1, 2} {
		var buf bytes.Buffer
		a.Nil(runBench(context.Background(), &buf, BenchOptions{Clients: 4, Number: 50, Size: 16, QoS: qos}))
		a.Contains(buf.String(), "messages: 200, errors: 0")
	}
}

func TestRetainedCommands(t *testing.T) {
	a := assert.New(t)
	// the memory backend does not outlive a command, use leveldb on disk.
	dir := t.TempDir()
	writeConfig(t, "log:\n  level: error\npersistence:\n  type: leveldb\n  leveldb:\n    path: "+dir+"\n")
	run := func(args ...string) string {
		var buf bytes.Buffer
		cmd := NewRetainedCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs(args)
		a.Nil(cmd.Execute())
		return buf.String()
	}
	a.Contains(run("store", "a/b", "hello", "-q", "1"), "OK stored a/b")
	a.Contains(run("search", "a/b", "c"), `a/b qos=1 payload="hello"`)
	a.Contains(run("list"), "1 retained message(s)")
	a.Contains(run("clean", "a/b"), "OK cleaned a/b")
	a.Contains(run("list"), "0 retained message(s)")
}
