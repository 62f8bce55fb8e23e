package main

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "testdata/checkout.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "testdata/checkout.yaml: ok")

	out, err = execute(t, "validate", "testdata/checkout.yaml", "testdata/broken.yaml")
	require.Error(t, err)
	assert.Contains(t, out, `unknown action "nope" (at 1)`)
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", "testdata/checkout.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "subgraph")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signaltree version")
}

func decodeResult(t *testing.T, out string) *domain.SignalResult {
	t.Helper()
	var res domain.SignalResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return &res
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "testdata/checkout.yaml",
		"--args", `{"set": {"user": "ada"}, "route": "good"}`)
	require.NoError(t, err)

	res := decodeResult(t, out)
	assert.Equal(t, "checkout", res.Name)
	assert.Equal(t, []string{"set", "stamp", "sleep", "route", "log"}, res.Executed())
	assert.Len(t, res.AsyncActionResults, 2)
}

func TestRun_Graph(t *testing.T) {
	out, err := execute(t, "run", "testdata/checkout.yaml",
		"--args", `{"set": {"user": "ada"}}`, "--graph")
	require.NoError(t, err)
	assert.Contains(t, out, "class ")
	assert.Contains(t, out, "executed")
}

func TestRun_BadFlags(t *testing.T) {
	_, err := execute(t, "run", "testdata/checkout.yaml", "--args", `[1]`)
	assert.ErrorContains(t, err, "--args must be a JSON object")

	_, err = execute(t, "run", "testdata/checkout.yaml",
		"--args", `{"set": {}}`, "--resume", "k")
	assert.ErrorContains(t, err, "--resume needs --redis")

	_, err = execute(t, "--log-level", "loud", "run", "testdata/checkout.yaml")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestRun_ResumeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	out, err := execute(t, "run", "testdata/checkout.yaml",
		"--redis", mr.Addr(),
		"--resume", "order-1",
		"--args", `{"set": {"user": "ada"}, "route": "bad"}`)
	require.Error(t, err)
	first := decodeResult(t, out)
	require.Len(t, first.AsyncActionResults, 2)
	assert.True(t, mr.Exists("signaltree:replay:order-1"))

	user, err := mr.Get("signaltree:state:user")
	require.NoError(t, err)
	assert.Equal(t, `"ada"`, user)

	out, err = execute(t, "run", "testdata/checkout.yaml",
		"--redis", mr.Addr(),
		"--resume", "order-1",
		"--args", `{"set": {"user": "grace"}, "route": "good"}`)
	require.NoError(t, err)

	second := decodeResult(t, out)
	for _, p := range []domain.Path{{"1", "0"}, {"1", "1"}} {
		b := second.Find(p)
		require.NotNil(t, b, p.String())
		assert.True(t, b.Replayed, p.String())
	}
	assert.False(t, second.Find(domain.Path{"0"}).Replayed)
	assert.False(t, mr.Exists("signaltree:replay:order-1"))
}

func TestRun_EncryptedReplay(t *testing.T) {
	mr := miniredis.RunT(t)

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	t.Setenv(replayKeyEnv, base64.StdEncoding.EncodeToString(key))

	_, err = execute(t, "run", "testdata/checkout.yaml",
		"--redis", mr.Addr(),
		"--resume", "order-2",
		"--args", `{"set": {"user": "ada"}, "route": "bad"}`)
	require.Error(t, err)

	raw, err := mr.Get("signaltree:replay:order-2")
	require.NoError(t, err)
	assert.Contains(t, raw, "__encrypted__")
	assert.NotContains(t, raw, "_at")

	out, err := execute(t, "run", "testdata/checkout.yaml",
		"--redis", mr.Addr(),
		"--resume", "order-2",
		"--args", `{"set": {"user": "ada"}, "route": "good"}`)
	require.NoError(t, err)
	assert.True(t, decodeResult(t, out).Find(domain.Path{"1", "0"}).Replayed)
}

func TestRun_BadReplayKey(t *testing.T) {
	t.Setenv(replayKeyEnv, base64.StdEncoding.EncodeToString([]byte("short")))
	_, err := execute(t, "run", "testdata/checkout.yaml")
	assert.ErrorContains(t, err, "must decode to 32 bytes")
}

func TestRun_BadRedactPattern(t *testing.T) {
	var err error
	require.NotPanics(t, func() {
		_, err = execute(t, "run", "testdata/checkout.yaml", "--redact", "(")
	})
	assert.ErrorContains(t, err, "--redact")
}
