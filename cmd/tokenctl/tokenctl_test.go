package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/keys"
)

const testKeyDescriptor = "AES:cli-key:cli-iv"

type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "keys.txt")
	require.NoError(t, os.WriteFile(keyFile, []byte("# test keys\n"+testKeyDescriptor+"\n"), 0o600))

	cfg := fmt.Sprintf(`keys:
  sources: [env]
  file: %s
jwt:
  secret: cli-secret
  issuer: tokenctl-test
log:
  level: error
  output_path: %s
%s`, keyFile, filepath.Join(dir, "tokenctl.log"), extra)
	path := filepath.Join(dir, "tokenkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &testEnv{dir: dir, config: path}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--config", e.config}, args...)
	err := execute(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, "tokenctl %v", args)
	return strings.TrimSpace(out)
}

func TestEncryptDecrypt_UsesKeyFile(t *testing.T) {
	env := newTestEnv(t, "")

	ciphertext := env.mustRun(t, "encrypt", "--alg", "AES", "hello", "world")

	c, err := crypt.ParseDescriptor(testKeyDescriptor)
	require.NoError(t, err)
	want, err := crypt.NewCipher(c).EncryptString("hello world")
	require.NoError(t, err)
	assert.Equal(t, want, ciphertext)

	assert.Equal(t, "hello world", env.mustRun(t, "decrypt", "--alg", "AES", ciphertext))

	out, err := env.run(t, ciphertext+"\n", "decrypt", "--alg", "AES")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out)
}

func TestDecrypt_Rejects(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "", "decrypt", "--alg", "AES", "not base64!")
	assert.True(t, errors.Is(err, errors.ErrCipherFailure))

	_, err = env.run(t, "", "encrypt", "--alg", "ROT13", "x")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedAlgorithm))
}

func TestKeygenTiny_AppliesAsDescriptor(t *testing.T) {
	env := newTestEnv(t, "")

	descriptor := env.mustRun(t, "keygen", "tiny", "--bits", "256")
	require.True(t, strings.HasPrefix(descriptor, "TINY:"))
	assert.Equal(t, "TINY", env.mustRun(t, "apply", descriptor))

	_, err := env.run(t, "", "apply", "TINY:broken")
	assert.Error(t, err)
}

func TestKeygenRSA(t *testing.T) {
	env := newTestEnv(t, "")

	var exported crypt.GeneratedKey
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "keygen", "rsa", "--bits", "1024")), &exported))
	assert.NotEmpty(t, exported.Modulus)
	assert.NotEmpty(t, exported.PrivateKey)

	_, err := keys.ParseRSAPublicKeyB64(exported.PublicKey)
	require.NoError(t, err)

	// wrapped private parts are AES ciphertext under the key file material
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "keygen", "rsa", "--wrap", "AES")), &exported))
	_, err = keys.ParseRSAPrivateKeyB64(exported.PrivateKey)
	assert.Error(t, err)
	plain := env.mustRun(t, "decrypt", "--alg", "AES", exported.PrivateKey)
	assert.NotEmpty(t, plain)

	descriptor := env.mustRun(t, "keygen", "rsa", "--descriptor")
	assert.Equal(t, "RSA", env.mustRun(t, "apply", descriptor))
}

func TestSession_MintParseBind(t *testing.T) {
	env := newTestEnv(t, "")

	token := env.mustRun(t, "session", "mint", "alice",
		"--credential", "pw", "--address", "10.0.0.1", "--role", "admin", "--ttl", "10m")

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "session", "parse", token)), &view))
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, "10.0.0.1", view.Address)
	assert.Len(t, view.Roles, 1)
	assert.Nil(t, view.Bound)

	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "session", "parse", "--bind", "10.0.0.2", token)), &view))
	require.NotNil(t, view.Bound)
	assert.False(t, *view.Bound)

	refreshed := env.mustRun(t, "session", "refresh", token)
	assert.NotEqual(t, token, refreshed)

	_, err := env.run(t, "", "session", "parse", "--alg", "DES", token)
	assert.Error(t, err)
}

func TestJWT_SignVerifyDecode(t *testing.T) {
	env := newTestEnv(t, "")

	token := env.mustRun(t, "jwt", "sign", "--sub", "alice", "--aud", "api", `{"uid": 7}`)

	var claims map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "jwt", "verify", token)), &claims))
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "tokenctl-test", claims["iss"])
	assert.Equal(t, map[string]any{"uid": float64(7)}, claims["d"])
	assert.NotEmpty(t, claims["jti"])

	var decoded struct {
		Header  map[string]any `json:"header"`
		Expired bool           `json:"expired"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "jwt", "decode", token)), &decoded))
	assert.Equal(t, "HS256", decoded.Header["alg"])
	assert.False(t, decoded.Expired)

	_, err := env.run(t, "", "jwt", "sign", "not json")
	assert.True(t, errors.Is(err, errors.ErrInvalidPayload))

	_, err = env.run(t, "", "jwt", "decode", "a.b")
	assert.True(t, errors.Is(err, errors.ErrTokenMalformed))

	other := newTestEnv(t, "")
	require.NoError(t, os.WriteFile(other.config, []byte(strings.Replace(mustRead(t, other.config), "cli-secret", "other", 1)), 0o600))
	_, err = other.run(t, "", "jwt", "verify", token)
	assert.True(t, errors.Is(err, errors.ErrSignatureInvalid))
}

func TestJWT_ECKeyFile(t *testing.T) {
	env := newTestEnv(t, "")
	pemText := env.mustRun(t, "keygen", "ec", "--curve", "P-384")
	keyFile := filepath.Join(env.dir, "ec.pem")
	require.NoError(t, os.WriteFile(keyFile, []byte(pemText+"\n"), 0o600))

	cfg := mustRead(t, env.config)
	cfg = strings.Replace(cfg, "  secret: cli-secret\n", "  algorithm: ES384\n  key_file: "+keyFile+"\n", 1)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))

	token := env.mustRun(t, "jwt", "sign", `{"role":"ops"}`)
	var claims map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.mustRun(t, "jwt", "verify", token)), &claims))
	assert.Equal(t, map[string]any{"role": "ops"}, claims["d"])
}

func TestJWT_RevokeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newTestEnv(t, fmt.Sprintf("redis:\n  address: %s\n", mr.Addr()))
	cfg := strings.Replace(mustRead(t, env.config), "  issuer: tokenctl-test\n", "  issuer: tokenctl-test\n  denylist: redis\n", 1)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))

	token := env.mustRun(t, "jwt", "sign", `{"uid":1}`)
	jti := env.mustRun(t, "jwt", "revoke", token)
	assert.True(t, mr.Exists("tokenkit:denylist:"+jti))

	_, err := env.run(t, "", "jwt", "verify", token)
	assert.True(t, errors.Is(err, errors.ErrTokenRevoked))
}

func TestApply_PublishRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newTestEnv(t, fmt.Sprintf("redis:\n  address: %s\n", mr.Addr()))

	assert.Equal(t, "DES", env.mustRun(t, "apply", "--publish", "redis", "DES:shared:iv"))
	got, err := mr.Get("tokenkit:keys:des")
	require.NoError(t, err)
	assert.Equal(t, "DES:shared:iv", got)

	_, err = env.run(t, "", "apply", "--publish", "carrier-pigeon", "DES:shared:iv")
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestKey_SSHAndPEM(t *testing.T) {
	env := newTestEnv(t, "")

	keyFile := filepath.Join(env.dir, "ec.pem")
	require.NoError(t, os.WriteFile(keyFile, []byte(env.mustRun(t, "keygen", "ec", "--password", "pw")+"\n"), 0o600))

	_, err := env.run(t, "", "key", "ssh", keyFile)
	assert.Error(t, err)

	line := env.mustRun(t, "key", "ssh", "--password", "pw", "--comment", "ops@host", keyFile)
	assert.True(t, strings.HasPrefix(line, "ecdsa-sha2-nistp256 "))
	assert.True(t, strings.HasSuffix(line, " ops@host"))

	pubPEM := env.mustRun(t, "key", "pem", line)
	assert.Contains(t, pubPEM, "-----BEGIN PUBLIC KEY-----")

	pubFile := filepath.Join(env.dir, "pub.pem")
	require.NoError(t, os.WriteFile(pubFile, []byte(pubPEM+"\n"), 0o600))
	again := env.mustRun(t, "key", "ssh", pubFile)
	assert.Equal(t, strings.TrimSuffix(line, " ops@host"), again)
}

func TestMetricsFlag(t *testing.T) {
	env := newTestEnv(t, "")

	out := env.mustRun(t, "--metrics", "encrypt", "--alg", "AES", "x")
	assert.Contains(t, out, `tokenkit_operations_total{component="crypt",operation="encrypt",result="success"} 1`)
	assert.Contains(t, out, "tokenkit_operation_duration_seconds{")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, "metrics:\n  enabled: true\n")
	cfg := strings.Replace(mustRead(t, env.config), "sources: [env]", "sources: [floppy]", 1)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))

	_, err := env.run(t, "", "encrypt", "x")
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
