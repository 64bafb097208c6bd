package kms_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/internal/infrastructure/kms"
	"github.com/turtacn/tokenkit/pkg/crypt"
	"github.com/turtacn/tokenkit/pkg/errors"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// fakeVault serves a KV v2 mount from memory
type fakeVault struct {
	mu      sync.Mutex
	secrets map[string]map[string]interface{}
	fail    bool
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errors":["sealed"]}`))
		return
	}
	switch r.Method {
	case http.MethodGet:
		data, ok := f.secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{"data": data}})
	case http.MethodPut, http.MethodPost:
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.secrets[r.URL.Path] = body.Data
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{"version": 1}})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newVaultSource(t *testing.T, fv *fakeVault) *kms.VaultSource {
	t.Helper()
	ts := httptest.NewServer(fv)
	t.Cleanup(ts.Close)

	cfg := config.VaultConfig{Address: ts.URL, Token: "root", MountPath: "secret", PathPrefix: "tokenkit/keys", Timeout: 5 * time.Second}
	client, err := kms.NewVaultClient(cfg)
	require.NoError(t, err)
	return kms.NewVaultSource(cfg, client, logger.NewNoopLogger())
}

func TestVaultSource_Lookup(t *testing.T) {
	fv := &fakeVault{secrets: map[string]map[string]interface{}{
		"/v1/secret/data/tokenkit/keys/aes": {"descriptor": " AES:vault-key:vault-iv\n"},
		"/v1/secret/data/tokenkit/keys/des": {"other": "x"},
	}}
	src := newVaultSource(t, fv)
	ctx := context.Background()

	got, err := src.Lookup(ctx, crypt.AES)
	require.NoError(t, err)
	assert.Equal(t, "AES:vault-key:vault-iv", got)

	_, err = src.Lookup(ctx, crypt.DES)
	assert.True(t, errors.Is(err, errors.ErrKeyNotFound))

	_, err = src.Lookup(ctx, crypt.RSA)
	assert.True(t, errors.Is(err, errors.ErrKeyNotFound))

	fv.mu.Lock()
	fv.fail = true
	fv.mu.Unlock()
	_, err = src.Lookup(ctx, crypt.AES)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrKeyNotFound))
}

func TestVaultSource_StoreThenResolve(t *testing.T) {
	fv := &fakeVault{secrets: map[string]map[string]interface{}{}}
	src := newVaultSource(t, fv)
	ctx := context.Background()

	require.NoError(t, src.Store(ctx, crypt.AES, "AES:stored:iv"))

	p := crypt.NewProvider(crypt.WithSource(src), crypt.WithLogger(logger.NewNoopLogger()))
	resolved, err := p.Context(ctx, crypt.AES)
	require.NoError(t, err)

	want, err := crypt.NewSymmetricContext(crypt.AES, "stored", "iv")
	require.NoError(t, err)
	gotKey, gotIV := resolved.SymmetricKey()
	wantKey, wantIV := want.SymmetricKey()
	assert.Equal(t, wantKey, gotKey)
	assert.Equal(t, wantIV, gotIV)
}

// recordingApplier collects applied descriptors
type recordingApplier struct {
	mu      sync.Mutex
	applied []string
	reject  string
}

func (r *recordingApplier) Apply(descriptor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if descriptor == r.reject {
		return errors.ErrInvalidDescriptor
	}
	r.applied = append(r.applied, descriptor)
	return nil
}

func (r *recordingApplier) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.applied...)
}

func TestFileWatcher_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(path, []byte("# rotated weekly\nAES:a:b\n\nBROKEN\nDES:c:d\n"), 0o600))

	target := &recordingApplier{reject: "BROKEN"}
	w := kms.NewFileWatcher(path, target, logger.NewNoopLogger())

	err := w.Load(context.Background())
	assert.True(t, errors.Is(err, errors.ErrInvalidDescriptor))
	assert.Equal(t, []string{"AES:a:b", "DES:c:d"}, target.snapshot())

	missing := kms.NewFileWatcher(filepath.Join(t.TempDir(), "absent"), target, logger.NewNoopLogger())
	assert.True(t, os.IsNotExist(missing.Load(context.Background())))
}

func TestFileWatcher_ReappliesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(path, []byte("AES:first:iv\n"), 0o600))

	target := &recordingApplier{}
	w := kms.NewFileWatcher(path, target, logger.NewNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	defer w.Close()
	assert.Equal(t, []string{"AES:first:iv"}, target.snapshot())

	require.NoError(t, os.WriteFile(path, []byte("AES:second:iv\n"), 0o600))
	require.Eventually(t, func() bool {
		applied := target.snapshot()
		return applied[len(applied)-1] == "AES:second:iv"
	}, 5*time.Second, 20*time.Millisecond)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestFileWatcher_WaitsForWritesToSettle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(path, []byte("AES:first:iv\n"), 0o600))

	target := &recordingApplier{}
	w := kms.NewFileWatcher(path, target, logger.NewNoopLogger(), kms.WithSettleDelay(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("AES:")
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	time.Sleep(50 * time.Millisecond)
	_, err = f.WriteString("second:iv\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		applied := target.snapshot()
		return applied[len(applied)-1] == "AES:second:iv"
	}, 5*time.Second, 20*time.Millisecond)
	assert.NotContains(t, target.snapshot(), "AES:")
	assert.Equal(t, []string{"AES:first:iv", "AES:second:iv"}, target.snapshot())
}

func TestFileWatcher_SwapsProviderMaterial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, os.WriteFile(path, []byte("AES:first:iv\n"), 0o600))

	p := crypt.NewProvider(crypt.WithSource(crypt.StaticSource{}), crypt.WithLogger(logger.NewNoopLogger()))
	w := kms.NewFileWatcher(path, p, logger.NewNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	c, err := p.Create(crypt.AES)
	require.NoError(t, err)
	enc, err := c.EncryptString("payload")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("AES:second:iv\n"), 0o600))

	first, err := crypt.NewSymmetricContext(crypt.AES, "first", "iv")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		ctxNow, err := p.Context(ctx, crypt.AES)
		if err != nil {
			return false
		}
		k1, _ := ctxNow.SymmetricKey()
		k2, _ := first.SymmetricKey()
		return string(k1) != string(k2)
	}, 5*time.Second, 20*time.Millisecond)

	dec, err := c.DecryptString(enc)
	if err == nil {
		assert.NotEqual(t, "payload", dec)
	}
}
