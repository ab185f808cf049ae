package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/recall/internal/config"
	"github.com/msomdec/recall/internal/repository/jsonfile"
	"github.com/msomdec/recall/internal/repository/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RECALL_AUTH__JWT_SECRET", testSecret)
	t.Setenv("RECALL_AUTH__BCRYPT_COST", "4")
}

// run executes the command tree with args and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, args ...string) *app {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(append(args, "--env-file", "")))
	cfg, err := config.Load(fs)
	require.NoError(t, err)
	return &app{cfg: cfg, log: discardLogger()}
}

func TestMigrate(t *testing.T) {
	setEnv(t)
	dbPath := filepath.Join(t.TempDir(), "recall.db")

	out, err := run(t, "", "migrate", "--storage.path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "applied 001_create_cards.sql")
	assert.Contains(t, out, "applied 003_create_autosave.sql")

	out, err = run(t, "", "migrate", "--storage.path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "up to date")
}

func TestMigrateJSONFileIsNoop(t *testing.T) {
	setEnv(t)
	out, err := run(t, "", "migrate", "--storage.driver", "jsonfile", "--storage.dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "no schema to migrate")
}

func TestInitStore(t *testing.T) {
	setEnv(t)
	dir := filepath.Join(t.TempDir(), "data")

	out, err := run(t, "", "init-store", "--storage.driver", "jsonfile", "--storage.dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	data, err := os.ReadFile(filepath.Join(dir, jsonfile.CardsFile))
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))

	_, err = run(t, "", "init-store", "--storage.driver", "jsonfile", "--storage.dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, "", "init-store", "--storage.driver", "jsonfile", "--storage.dir", dir, "--force")
	require.NoError(t, err)
}

func TestUserAddJSONFile(t *testing.T) {
	setEnv(t)
	dir := t.TempDir()
	_, err := run(t, "", "init-store", "--storage.driver", "jsonfile", "--storage.dir", dir)
	require.NoError(t, err)

	out, err := run(t, "s3cret\ns3cret\n", "user", "add", "alice", "--storage.driver", "jsonfile", "--storage.dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "user alice saved")

	data, err := os.ReadFile(filepath.Join(dir, jsonfile.CredentialsFile))
	require.NoError(t, err)
	var creds map[string]string
	require.NoError(t, json.Unmarshal(data, &creds))
	require.Contains(t, creds, "alice")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(creds["alice"]), []byte("s3cret")))
}

func TestUserAddSQLite(t *testing.T) {
	setEnv(t)
	dbPath := filepath.Join(t.TempDir(), "recall.db")

	_, err := run(t, "pw\npw\n", "user", "add", "bob", "--storage.path", dbPath)
	require.NoError(t, err)

	db, err := sqlite.New(dbPath, discardLogger())
	require.NoError(t, err)
	defer db.Close()
	hash, err := db.Credentials().PasswordHash(context.Background(), "bob")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}

func TestUserAddRejectsBadPasswords(t *testing.T) {
	setEnv(t)
	dbPath := filepath.Join(t.TempDir(), "recall.db")

	tests := []struct {
		name  string
		stdin string
		want  string
	}{
		{"mismatch", "one\ntwo\n", "do not match"},
		{"empty", "\n\n", "must not be empty"},
		{"too long", strings.Repeat("x", 73) + "\n" + strings.Repeat("x", 73) + "\n", "at most 72 bytes"},
		{"missing confirmation", "one\n", "read password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, "user", "add", "carol", "--storage.path", dbPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUserAddNeedsName(t *testing.T) {
	setEnv(t)
	_, err := run(t, "", "user", "add")
	require.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	setEnv(t)
	out, err := run(t, "hunter2\nhunter2\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	t.Setenv("RECALL_AUTH__JWT_SECRET", "short")
	_, err := run(t, "", "migrate", "--storage.path", filepath.Join(t.TempDir(), "recall.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestOpenStoresJSONFileNeedsInit(t *testing.T) {
	setEnv(t)
	a := newTestApp(t, "--storage.driver", "jsonfile", "--storage.dir", t.TempDir())

	_, err := openStores(context.Background(), a.cfg, a.log, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "init-store")
}

func TestOpenStoresCredentialsFileOverride(t *testing.T) {
	setEnv(t)
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(credsPath, []byte(`{"dave":"hash"}`), 0o600))
	t.Setenv("RECALL_AUTH__CREDENTIALS_FILE", credsPath)

	a := newTestApp(t, "--storage.path", filepath.Join(dir, "recall.db"))

	st, err := openStores(context.Background(), a.cfg, a.log, true)
	require.NoError(t, err)
	defer st.Close()

	hash, err := st.credentials.PasswordHash(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, "hash", hash)
	require.NoError(t, st.health.Ping(context.Background()))
}
