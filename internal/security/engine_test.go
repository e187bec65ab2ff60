package security

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"safegate/internal/domain"
	"safegate/internal/policy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustEngine(t *testing.T, cfg EngineConfig) *Engine {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	e, err := NewEngine(policy.Default(), cfg, testLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// --- ValidateCommand ---

func TestValidateCommand_BlocksDestructive(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, cmd := range []string{
		"rm -rf /",
		"rm -rf /*",
		"rm -fr / --no-preserve-root",
		"sudo rm -rf / ",
		"rm -r -f ~",
		"rm --recursive --force $HOME",
		"rm -rf /usr",
		"rm -rf //",
		"rm -rf /.",
		"rm -rf /./",
		"rm -rf /../",
		"rm -rf //usr/",
		"chmod -R 777 //",
		"cd /tmp && rm -rf / ; echo done",
		"dd if=/dev/zero of=/dev/sda bs=1M",
		"cat image.iso > /dev/sdb",
		"mkfs.ext4 /dev/sda1",
		"mkfs -t xfs /dev/nvme0n1p2",
		"wipefs -a /dev/sda",
		":(){ :|:& };:",
		":(){:|:&};:",
		"bomb(){ bomb|bomb& };bomb",
		"chmod -R 777 /",
		"safegate exec ls",
		"echo hi; /usr/local/bin/safegate exec 'rm -rf /'",
		"bash -c 'safegate exec ls'",
	} {
		out := e.ValidateCommand(cmd)
		if out.Allowed {
			t.Errorf("%q should be blocked", cmd)
			continue
		}
		if out.Reason != domain.ReasonDangerousCommand {
			t.Errorf("%q: reason got %q", cmd, out.Reason)
		}
		if out.Rule == "" {
			t.Errorf("%q: matched rule should be reported", cmd)
		}
	}
}

func TestValidateCommand_AllowsOrdinary(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, cmd := range []string{
		"ls -la /tmp",
		"cat /etc/hosts",
		"grep pattern file.txt",
		"rm -rf /tmp/build-cache",
		"rm -rf ./node_modules",
		"rm -rf /.cache/tmp",
		"rm file.txt",
		"dd if=/dev/sda of=backup.img",
		"git status",
		"ls safegate",
		"go test ./...",
		"echo hello",
	} {
		out := e.ValidateCommand(cmd)
		if !out.Allowed {
			t.Errorf("%q should be allowed, blocked by %q", cmd, out.Rule)
		}
	}
}

func TestValidateCommand_WhitespaceTrimmed(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	out := e.ValidateCommand("   rm -rf /   ")
	if out.Allowed {
		t.Fatal("expected block after trimming whitespace")
	}
	out = e.ValidateCommand("  echo hi  ")
	if !out.Allowed || out.Value != "echo hi" {
		t.Fatalf("expected trimmed value, got %+v", out)
	}
}

func TestValidateCommand_LiteralMatchingOnly(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	// Variable indirection is not expanded before matching.
	out := e.ValidateCommand(`X=/; rm -rf "$X"`)
	if !out.Allowed {
		t.Fatalf("literal matcher is not expected to see through expansion, got %+v", out)
	}
}

func TestValidateCommand_InjectedStore(t *testing.T) {
	store, err := policy.New("test", []policy.Rule{{Kind: policy.KindCommandSubstring, Pattern: "danger"}})
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(store, EngineConfig{WorkDir: t.TempDir()}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if e.ValidateCommand("run danger now").Allowed {
		t.Fatal("custom rule should block")
	}
	if !e.ValidateCommand("rm -rf /").Allowed {
		t.Fatal("custom store replaces built-ins")
	}
}

// --- ValidatePath ---

func TestValidatePath_Traversal(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, p := range []string{"../../../etc/passwd", "..", "sub/../../x", "/tmp/../etc/hosts"} {
		out := e.ValidatePath(p)
		if out.Reason != domain.ReasonPathTraversal {
			t.Errorf("%q: expected path_traversal_blocked, got %+v", p, out)
		}
	}
}

func TestValidatePath_ParentInsideRootAllowed(t *testing.T) {
	e := mustEngine(t, EngineConfig{})
	os.MkdirAll(filepath.Join(e.WorkDir(), "a", "b"), 0o755)

	out := e.ValidatePath("a/b/../b")
	if !out.Allowed {
		t.Fatalf("'..' that stays inside the root should be allowed, got %+v", out)
	}
}

func TestValidatePath_Forbidden(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, p := range []string{"/root/.ssh", "/root/.ssh/id_rsa", "~/.ssh", "/etc/shadow"} {
		out := e.ValidatePath(p)
		if out.Reason != domain.ReasonForbiddenPath {
			t.Errorf("%q: expected forbidden_path, got %+v", p, out)
		}
	}
}

func TestValidatePath_ForbiddenIsSegmentWise(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	out := e.ValidatePath("/etc/shadow-backup-notes")
	if out.Reason == domain.ReasonForbiddenPath {
		t.Fatal("prefix comparison must be segment-wise, not raw string prefix")
	}
}

func TestValidatePath_SymlinkIntoForbidden(t *testing.T) {
	dir := t.TempDir()
	secretDir := filepath.Join(dir, "vault")
	os.MkdirAll(secretDir, 0o700)
	link := filepath.Join(dir, "innocent")
	if err := os.Symlink(secretDir, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	e := mustEngine(t, EngineConfig{WorkDir: dir, ExtraForbidden: []string{secretDir}})
	out := e.ValidatePath("innocent/keys.txt")
	if out.Reason != domain.ReasonForbiddenPath {
		t.Fatalf("symlink into forbidden dir should be blocked, got %+v", out)
	}
}

func TestValidatePath_Allowed(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	out := e.ValidatePath("/tmp")
	if !out.Allowed {
		t.Fatalf("/tmp should be allowed, got %+v", out)
	}
	wantTmp, _ := filepath.EvalSymlinks("/tmp")
	if out.Value != wantTmp {
		t.Errorf("canonical /tmp: got %q want %q", out.Value, wantTmp)
	}

	out = e.ValidatePath(".")
	if !out.Allowed {
		t.Fatalf(". should be allowed, got %+v", out)
	}
	wantWD, _ := filepath.EvalSymlinks(e.WorkDir())
	if out.Value != wantWD || !filepath.IsAbs(out.Value) {
		t.Errorf("canonical .: got %q want %q", out.Value, wantWD)
	}

	out = e.ValidatePath("")
	if !out.Allowed || out.Value != wantWD {
		t.Errorf("empty path should mean '.', got %+v", out)
	}
}

func TestValidatePath_NonExistentResolvesParent(t *testing.T) {
	e := mustEngine(t, EngineConfig{})
	out := e.ValidatePath("not/yet/created.txt")
	if !out.Allowed {
		t.Fatalf("expected allowed, got %+v", out)
	}
	wantWD, _ := filepath.EvalSymlinks(e.WorkDir())
	if out.Value != filepath.Join(wantWD, "not", "yet", "created.txt") {
		t.Errorf("got %q", out.Value)
	}
}

func TestValidateReadable_SecretFile(t *testing.T) {
	e := mustEngine(t, EngineConfig{})
	os.WriteFile(filepath.Join(e.WorkDir(), ".env"), []byte("TOKEN=x"), 0o600)
	os.WriteFile(filepath.Join(e.WorkDir(), "notes.md"), []byte("hi"), 0o644)

	if out := e.ValidateReadable(".env"); out.Reason != domain.ReasonSecretFile {
		t.Fatalf("expected secret_file_blocked, got %+v", out)
	}
	if out := e.ValidateReadable("notes.md"); !out.Allowed {
		t.Fatalf("notes.md should be readable, got %+v", out)
	}
	// ValidatePath alone does not apply the secret gate.
	if out := e.ValidatePath(".env"); !out.Allowed {
		t.Fatalf("ValidatePath should allow .env, got %+v", out)
	}
}

func TestValidateReadable_SymlinkToSecret(t *testing.T) {
	e := mustEngine(t, EngineConfig{})
	target := filepath.Join(e.WorkDir(), "id_rsa")
	os.WriteFile(target, []byte("key"), 0o600)
	if err := os.Symlink(target, filepath.Join(e.WorkDir(), "readme.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if out := e.ValidateReadable("readme.txt"); out.Reason != domain.ReasonSecretFile {
		t.Fatalf("symlink to a secret should be blocked, got %+v", out)
	}
}

// --- IsSecretFile ---

func TestIsSecretFile(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, name := range []string{".env", ".env.local", "id_rsa", "/home/u/.ssh/id_ed25519", "deploy/server.key", ".pgpass"} {
		if !e.IsSecretFile(name) {
			t.Errorf("%q should be secret", name)
		}
	}
	for _, name := range []string{"config.json", "package.json", "README.md", "", "src/env.go", "/etc/.env/readme"} {
		if e.IsSecretFile(name) {
			t.Errorf("%q should not be secret", name)
		}
	}
}

// --- ValidateQuery / ValidateIdentifier ---

func TestValidateQuery(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, q := range []string{
		"INSERT INTO users VALUES (1)",
		"delete from users",
		"DROP TABLE users",
		"SELECT 1; DROP TABLE users",
		"WITH x AS (SELECT 1) DELETE FROM users",
		"SELECT * FROM t WHERE note = 'please do not update'",
		"SELECT 1 -- drop later",
		"SELECT * FROM users INTO OUTFILE '/tmp/users.csv'",
		"SELECT secret FROM t INTO DUMPFILE '/var/www/x.php'",
	} {
		out := e.ValidateQuery(q)
		if out.Reason != domain.ReasonWriteOperation {
			t.Errorf("%q: expected write_operation_blocked, got %+v", q, out)
		}
	}

	for _, q := range []string{
		"SELECT * FROM users",
		"select id, created_at, updated_at from orders where deleted_flag = 0",
		"EXPLAIN SELECT 1",
		"WITH cte AS (SELECT 1) SELECT * FROM cte",
	} {
		if out := e.ValidateQuery(q); !out.Allowed {
			t.Errorf("%q should be allowed, blocked by %q", q, out.Rule)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, name := range []string{"users; DROP TABLE users", "", "a b", "users--", "public.users", "`users`", "x'"} {
		out := e.ValidateIdentifier(name)
		if out.Reason != domain.ReasonInvalidTableName {
			t.Errorf("%q: expected invalid_table_name, got %+v", name, out)
		}
	}
	for _, name := range []string{"users", "order_items_2024", "_tmp"} {
		if out := e.ValidateIdentifier(name); !out.Allowed {
			t.Errorf("%q should be valid", name)
		}
	}
}

// --- Idempotence ---

func TestValidators_Idempotent(t *testing.T) {
	e := mustEngine(t, EngineConfig{})

	for _, in := range []string{"rm -rf /", "ls", "../../../etc/passwd", "/tmp", "users; DROP TABLE users"} {
		if a, b := e.ValidateCommand(in), e.ValidateCommand(in); a != b {
			t.Errorf("ValidateCommand(%q) not idempotent: %+v vs %+v", in, a, b)
		}
		if a, b := e.ValidatePath(in), e.ValidatePath(in); a != b {
			t.Errorf("ValidatePath(%q) not idempotent: %+v vs %+v", in, a, b)
		}
		if a, b := e.ValidateQuery(in), e.ValidateQuery(in); a != b {
			t.Errorf("ValidateQuery(%q) not idempotent", in)
		}
		if a, b := e.ValidateIdentifier(in), e.ValidateIdentifier(in); a != b {
			t.Errorf("ValidateIdentifier(%q) not idempotent", in)
		}
		if e.IsSecretFile(in) != e.IsSecretFile(in) {
			t.Errorf("IsSecretFile(%q) not idempotent", in)
		}
	}
}

// --- NewEngine ---

func TestNewEngine_RequiresStore(t *testing.T) {
	if _, err := NewEngine(nil, EngineConfig{}, nil); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestNewEngine_RootDefaultsToWorkDir(t *testing.T) {
	dir := t.TempDir()
	e := mustEngine(t, EngineConfig{WorkDir: dir})
	if e.Root() != e.WorkDir() {
		t.Fatalf("root %q != workdir %q", e.Root(), e.WorkDir())
	}
}

func TestNewEngine_WiderRoot(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "project")
	os.MkdirAll(sub, 0o755)
	e := mustEngine(t, EngineConfig{WorkDir: sub, Root: dir})

	if out := e.ValidatePath("../"); !out.Allowed {
		t.Fatalf("'..' inside a wider root should be allowed, got %+v", out)
	}
}
