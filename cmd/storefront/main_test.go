package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/storefront/internal/config"
	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/loader"
	"github.com/vango-dev/storefront/pkg/routepath"
)

// writeConfig creates a project directory with storefront.json.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(body), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	dir := writeConfig(t, `{"routes": {"lazyRegister": true}}`)

	out, err := execute(t, "routes", "--config", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "PATH")
	assert.Regexp(t, `/register\s+register\s+Register\*`, out)
	assert.Regexp(t, `/about\s+about\s+About\*`, out)
	assert.Regexp(t, `/category/:category\s+category\s+Category\s+auth`, out)
	assert.Regexp(t, `\s{2}/account-settings\s+-\s+-> /account-settings/account`, out)
	assert.Contains(t, out, "header=Header")
	assert.Contains(t, out, "catch-all")
}

func TestResolveCommand(t *testing.T) {
	dir := writeConfig(t, `{}`)

	out, err := execute(t, "resolve", "--config", dir, "/detail/42", "/category/fiction", "/homepage/category/3")
	require.NoError(t, err)
	assert.Contains(t, out, "/detail/42 -> /detail/42 (detail)")
	assert.Contains(t, out, "params: id=42")
	assert.Contains(t, out, "/category/fiction -> /?redirect=%2Fcategory%2Ffiction (home)")
	assert.Contains(t, out, "default: CategoryContent {id=3}")
	assert.Contains(t, out, "bookranking: BookRanking")

	out, err = execute(t, "resolve", "--config", dir, "--auth", "/category/fiction")
	require.NoError(t, err)
	assert.Contains(t, out, "/category/fiction -> /category/fiction (category)")
}

func TestResolveCommandJSON(t *testing.T) {
	dir := writeConfig(t, `{}`)

	out, err := execute(t, "resolve", "--config", dir, "--json", "/account-settings", "--auth")
	require.NoError(t, err)

	var got resolvedCommit
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(&got))
	assert.Equal(t, "account", got.Route)
	assert.Equal(t, "/account-settings/account", got.Path)
	require.Len(t, got.Views, 2)
	assert.Equal(t, "AccountSettings", got.Views[0]["default"])
	assert.Equal(t, "Accounts", got.Views[1]["default"])
}

func TestResolveCommandErrors(t *testing.T) {
	dir := writeConfig(t, `{}`)

	_, err := execute(t, "resolve", "--config", dir, "about")
	assert.True(t, errors.Is(err, routepath.ErrInvalidPath), "err = %v", err)

	_, err = execute(t, "resolve", "--config", dir)
	assert.Error(t, err, "resolve needs a path")

	_, err = execute(t, "resolve", "--config", t.TempDir(), "/")
	assert.Equal(t, "C001", errCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Go version:")
}

func TestLoadConfigAcceptsFileOrDir(t *testing.T) {
	dir := writeConfig(t, `{"server": {"port": 8081}}`)

	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)

	cfg, err = loadConfig(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)

	bad := writeConfig(t, `{"navigation": {"loginPath": "login"}}`)
	_, err = loadConfig(bad)
	assert.Equal(t, "C003", errCode(err))
}

func TestNewStore(t *testing.T) {
	store, err := newStore(config.New())
	require.NoError(t, err)
	assert.Nil(t, store, "no loader configured")

	bundles := t.TempDir()
	dir := writeConfig(t, `{"loader": {"dir": "`+filepath.ToSlash(bundles)+`"}}`)
	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	store, err = newStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &loader.DirStore{}, store)

	cfg = config.New()
	cfg.Loader.Bucket = "views"
	cfg.Loader.Region = "us-east-1"
	store, err = newStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &loader.S3Store{}, store)

	cfg = config.New()
	cfg.Loader.Dir = filepath.Join(bundles, "missing")
	_, err = newStore(cfg)
	assert.Error(t, err)
}

func TestResolveUsesDirStore(t *testing.T) {
	bundles := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bundles, "About.js"), []byte("export default {}"), 0o644))
	dir := writeConfig(t, `{"loader": {"dir": "`+filepath.ToSlash(bundles)+`"}}`)

	out, err := execute(t, "resolve", "--config", dir, "/about")
	require.NoError(t, err)
	assert.Contains(t, out, "default: About")

	// Without the bundle the error route takes over.
	require.NoError(t, os.Remove(filepath.Join(bundles, "About.js")))
	out, err = execute(t, "resolve", "--config", dir, "/about")
	require.NoError(t, err)
	assert.Contains(t, out, "/about -> /error (error)")
	assert.Contains(t, out, "recovered from: N004: View failed to load (About)")
}

func TestCompactError(t *testing.T) {
	coded := nerrors.New("N004").WithDetail("About").Wrap(errors.New("eof"))
	assert.Equal(t, "N004: View failed to load (About)", compactError(fmt.Errorf("wrapped: %w", coded)))
	assert.Equal(t, "plain", compactError(errors.New("plain")))
}

func errCode(err error) string {
	return nerrors.CodeOf(err)
}
