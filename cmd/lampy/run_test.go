package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/fatih/color"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/nodeclient/fakenode"
	"github.com/stretchr/testify/require"
)

const testPassword = "foobar"

// runLampy runs the app in-process and returns what it printed.
func runLampy(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"lampy-test"}, args...))
	return out.String(), err
}

func mustRunLampy(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runLampy(t, args...)
	require.NoError(t, err, "lampy %v\n%s", args, out)
	return out
}

// expectRegexp matches re against out and returns the submatches.
func expectRegexp(t *testing.T, out, re string) []string {
	t.Helper()
	m := regexp.MustCompile(re).FindStringSubmatch(out)
	require.NotNil(t, m, "output does not match %q:\n%s", re, out)
	return m
}

func passwordFile(t *testing.T, dir string) string {
	t.Helper()
	file := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(file, []byte(testPassword+"\n"), 0600))
	return file
}

// newKeyfile generates a light-KDF keyfile and returns its path, the password
// file and the verifying key.
func newKeyfile(t *testing.T, extra ...string) (keyfile, pwfile, vk string) {
	t.Helper()
	dir := t.TempDir()
	keyfile = filepath.Join(dir, "the-keyfile")
	pwfile = passwordFile(t, dir)
	args := append([]string{"generate", "--lightkdf", "--password", pwfile}, extra...)
	out := mustRunLampy(t, append(args, keyfile)...)
	vk = expectRegexp(t, out, `Verifying key: ([0-9a-f]{64})\n`)[1]
	return keyfile, pwfile, vk
}

func testNode(t *testing.T) (*fakenode.Node, string) {
	t.Helper()
	var id types.Processor
	for i := range id {
		id[i] = 0x5a
	}
	node := fakenode.New(id)
	srv := node.Server()
	t.Cleanup(srv.Close)
	return node, srv.URL
}
