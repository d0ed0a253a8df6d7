package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/notch/pkg/notes"
	"github.com/odvcencio/notch/pkg/object"
	"github.com/odvcencio/notch/pkg/refs"
)

var fixedTime = time.Unix(1700000000, 0).UTC()

func initTestRepo(t *testing.T, cfg *Config) *Repo {
	t.Helper()
	r, err := InitWithConfig(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// commitFile writes a single-file tree and commits it on top of parents.
func commitFile(t *testing.T, r *Repo, name, content string, parents ...object.Hash) object.Hash {
	t.Helper()
	blob, err := r.Objects.WriteBlob(&object.Blob{Data: []byte(content)})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	tree, err := r.Objects.WriteTree(&object.TreeObj{Entries: []object.TreeEntry{
		{Name: name, Mode: object.TreeModeFile, Hash: blob},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	h, err := r.CommitTree(tree, parents, "commit "+name, nil)
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	return h
}

func TestInitCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer r.Close()

	for _, p := range []string{"objects", "refs/heads", "refs/tags", "config.toml", "HEAD"} {
		if _, err := os.Stat(filepath.Join(dir, DirName, filepath.FromSlash(p))); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Target != refs.Symbolic("refs/heads/main") {
		t.Fatalf("HEAD = %v", head.Target)
	}
	_, ok, err := r.HeadHash()
	if err != nil || ok {
		t.Fatalf("HeadHash on unborn branch = ok %v, err %v", ok, err)
	}

	if _, err := Init(dir); err == nil {
		t.Fatal("second Init should fail")
	}
}

func TestOpenWalksUpward(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	r.Close()

	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	opened, err := Open(nested)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()
	if opened.Dir != filepath.Join(dir, DirName) {
		t.Fatalf("Dir = %q", opened.Dir)
	}

	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("Open outside a repository should fail")
	}
}

func TestConfigRoundTripAndValidation(t *testing.T) {
	r := initTestRepo(t, nil)

	cfg := *r.Config
	cfg.User = UserConfig{Name: "Ada", Email: "ada@example.com"}
	cfg.Refs.MaxSymbolicDepth = 4
	if err := r.WriteConfig(&cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	reopened, err := Open(r.RootDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()
	if reopened.Config.User.Name != "Ada" || reopened.Config.Refs.MaxSymbolicDepth != 4 {
		t.Fatalf("config = %+v", reopened.Config)
	}
	if reopened.Resolver.MaxDepth() != 4 {
		t.Fatalf("resolver depth = %d, want 4", reopened.Resolver.MaxDepth())
	}

	bad := []Config{
		{Core: CoreConfig{Hash: "md5"}},
		{Core: CoreConfig{Storage: "s3"}},
		{Core: CoreConfig{Compression: "gzip"}},
		{Notes: NotesConfig{Ref: "refs/heads/notes"}},
	}
	for i := range bad {
		if err := r.WriteConfig(&bad[i]); err == nil {
			t.Fatalf("WriteConfig(%+v) should fail", bad[i])
		}
	}
}

func TestSignatureFromEnvAndConfig(t *testing.T) {
	r := initTestRepo(t, nil)
	r.Config.User = UserConfig{Name: "Config Name", Email: "config@example.com"}

	t.Setenv(EnvAuthorName, "")
	t.Setenv(EnvAuthorEmail, "")
	sig := r.Signature(fixedTime)
	if sig.Name != "Config Name" || sig.Email != "config@example.com" {
		t.Fatalf("signature = %+v", sig)
	}

	t.Setenv(EnvAuthorName, "Env Name")
	t.Setenv(EnvAuthorEmail, "env@example.com")
	sig = r.Signature(fixedTime)
	if sig.Name != "Env Name" || sig.Email != "env@example.com" {
		t.Fatalf("signature = %+v", sig)
	}
}

func TestWritersRejectUnparseableIdentity(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")
	commit, err := r.Objects.ReadCommit(c1)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}

	t.Setenv(EnvAuthorName, "Eve")
	t.Setenv(EnvAuthorEmail, "a<b@example.com")
	if _, err := r.CommitTree(commit.TreeHash, []object.Hash{c1}, "bad identity", nil); !errors.Is(err, object.ErrInvalidIdentity) {
		t.Fatalf("CommitTree: got %v, want ErrInvalidIdentity", err)
	}

	tagger := object.Signature{Name: "Eve\ntagger forged <x> 1 +0000", Email: "eve@example.com", When: fixedTime.Unix()}
	if _, err := r.CreateAnnotatedTag("v-bad", c1, tagger, "bad", false); !errors.Is(err, object.ErrInvalidIdentity) {
		t.Fatalf("CreateAnnotatedTag: got %v, want ErrInvalidIdentity", err)
	}
	if tags, err := r.ListTags(); err != nil || len(tags) != 0 {
		t.Fatalf("ListTags = %v, %v; want none", tags, err)
	}
}

func TestBranchLifecycle(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")

	if err := r.CreateBranch("main", c1, false); err != nil {
		t.Fatalf("CreateBranch main: %v", err)
	}
	if err := r.CreateBranch("feature/x", c1, false); err != nil {
		t.Fatalf("CreateBranch feature/x: %v", err)
	}
	if err := r.CreateBranch("main", c1, false); !errors.Is(err, refs.ErrAlreadyExists) {
		t.Fatalf("duplicate branch: got %v, want ErrAlreadyExists", err)
	}
	if err := r.CreateBranch("bad..name", c1, false); err == nil {
		t.Fatal("invalid branch name accepted")
	}
	if err := r.CreateBranch("ghost", object.HashBytes([]byte("nope")), false); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("missing target: got %v, want ErrNotFound", err)
	}

	branches, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if strings.Join(branches, ",") != "feature/x,main" {
		t.Fatalf("ListBranches = %v", branches)
	}

	h, ok, err := r.HeadHash()
	if err != nil || !ok || h != c1 {
		t.Fatalf("HeadHash = %s, %v, %v", h, ok, err)
	}

	if err := r.DeleteBranch("main"); err == nil {
		t.Fatal("deleting the current branch should fail")
	}
	if err := r.DeleteBranch("feature/x"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if err := r.DeleteBranch("feature/x"); !errors.Is(err, refs.ErrNotFound) {
		t.Fatalf("DeleteBranch missing: got %v, want ErrNotFound", err)
	}
}

func TestTags(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")
	c2 := commitFile(t, r, "a.txt", "two\n", c1)

	if err := r.CreateTag("v1.0.0", c1, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.CreateTag("v1.0.0", c2, false); !errors.Is(err, refs.ErrAlreadyExists) {
		t.Fatalf("CreateTag duplicate: got %v, want ErrAlreadyExists", err)
	}
	if err := r.CreateTag("v1.0.0", c2, true); err != nil {
		t.Fatalf("CreateTag force: %v", err)
	}
	got, err := r.ResolveTag("v1.0.0")
	if err != nil || got != c2 {
		t.Fatalf("ResolveTag = %s, %v; want %s", got, err, c2)
	}

	tagger := r.Signature(fixedTime)
	tagHash, err := r.CreateAnnotatedTag("v2", c2, tagger, "release two", false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}
	tag, err := r.Objects.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.TargetHash != c2 || tag.TargetType != object.TypeCommit || tag.Name != "v2" || tag.Message != "release two\n" {
		t.Fatalf("tag = %+v", tag)
	}
	peeled, err := r.ResolveRevision("v2^{}")
	if err != nil || peeled != c2 {
		t.Fatalf("ResolveRevision(v2^{}) = %s, %v; want %s", peeled, err, c2)
	}

	tags, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if strings.Join(tags, ",") != "v1.0.0,v2" {
		t.Fatalf("ListTags = %v", tags)
	}

	if err := r.DeleteTag("v1.0.0"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if err := r.DeleteTag("v1.0.0"); !errors.Is(err, refs.ErrNotFound) {
		t.Fatalf("DeleteTag missing: got %v, want ErrNotFound", err)
	}
}

func TestResolveRevision(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")
	if err := r.CreateBranch("main", c1, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if _, err := r.Refs.Create("refs/remotes/origin/main", refs.Direct(c1), false); err != nil {
		t.Fatalf("Create remote ref: %v", err)
	}

	for _, rev := range []string{"", "HEAD", "main", "refs/heads/main", "origin/main", string(c1), string(c1[:10])} {
		h, err := r.ResolveRevision(rev)
		if err != nil {
			t.Fatalf("ResolveRevision(%q): %v", rev, err)
		}
		if h != c1 {
			t.Fatalf("ResolveRevision(%q) = %s, want %s", rev, h, c1)
		}
	}

	if _, err := r.ResolveRevision("nope"); !errors.Is(err, ErrUnknownRevision) {
		t.Fatalf("unknown revision: got %v", err)
	}
	if _, err := r.ResolveRevision(string(object.HashBytes([]byte("absent")))); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("absent hash: got %v", err)
	}

	if err := r.SetHead(refs.Symbolic("refs/heads/unborn")); err != nil {
		t.Fatalf("SetHead: %v", err)
	}
	if _, err := r.ResolveRevision("HEAD"); !errors.Is(err, refs.ErrDanglingReference) {
		t.Fatalf("unborn HEAD: got %v, want ErrDanglingReference", err)
	}
}

func TestReflogThroughHead(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")
	c2 := commitFile(t, r, "a.txt", "two\n", c1)

	if err := r.CreateBranch("main", c1, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if _, err := r.Refs.Update("refs/heads/main", refs.Direct(c2), refs.Direct(c1)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	entries, err := r.ReadReflog("HEAD", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 || entries[0].NewHash != c2 || entries[1].NewHash != c1 {
		t.Fatalf("reflog = %+v", entries)
	}
}

func TestGCKeepsReachableAndNotes(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")
	if err := r.CreateBranch("main", c1, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	orphan, err := r.Objects.WriteBlob(&object.Blob{Data: []byte("orphan\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	annotated, err := r.Objects.WriteBlob(&object.Blob{Data: []byte("annotated only by a note\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	sig := r.Signature(fixedTime)
	if _, err := r.Notes.Attach(annotated, "keep me", sig, sig, notes.AttachOptions{}); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	dry, err := r.GC(true)
	if err != nil {
		t.Fatalf("GC dry run: %v", err)
	}
	if len(dry.Pruned) != 1 || dry.Pruned[0] != orphan {
		t.Fatalf("dry run pruned = %v, want [%s]", dry.Pruned, orphan)
	}
	if !r.Objects.Has(orphan) {
		t.Fatal("dry run deleted the orphan")
	}

	if _, err := r.GC(false); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if r.Objects.Has(orphan) {
		t.Fatal("orphan survived GC")
	}
	for _, h := range []object.Hash{c1, annotated} {
		if !r.Objects.Has(h) {
			t.Fatalf("reachable object %s was pruned", h)
		}
	}
}

func TestFsckReportsBrokenRefs(t *testing.T) {
	r := initTestRepo(t, nil)
	c1 := commitFile(t, r, "a.txt", "one\n")
	if err := r.CreateBranch("main", c1, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	report, err := r.Fsck()
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if len(report.Problems) != 0 {
		t.Fatalf("clean repo problems = %v", report.Problems)
	}
	if report.Objects.ByType[object.TypeCommit] != 1 || report.Refs != 2 {
		t.Fatalf("report = %+v", report)
	}

	mustRef := func(name string, target refs.Target) {
		t.Helper()
		if _, err := r.Refs.Create(name, target, false); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	mustRef("refs/heads/loop-a", refs.Symbolic("refs/heads/loop-b"))
	mustRef("refs/heads/loop-b", refs.Symbolic("refs/heads/loop-a"))
	mustRef("refs/heads/dangling", refs.Symbolic("refs/heads/missing"))
	mustRef("refs/heads/ghost", refs.Direct(object.HashBytes([]byte("never stored"))))

	report, err = r.Fsck()
	if err != nil {
		t.Fatalf("Fsck: %v", err)
	}
	if len(report.Problems) != 4 {
		t.Fatalf("problems = %d, want 4: %v", len(report.Problems), report.Problems)
	}
}

func TestBadgerStorage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Core.Storage = StorageBadger
	cfg.Core.Hash = "blake3"
	r := initTestRepo(t, cfg)

	if _, err := os.Stat(filepath.Join(r.Dir, "db")); err != nil {
		t.Fatalf("badger dir missing: %v", err)
	}
	c1 := commitFile(t, r, "a.txt", "one\n")
	if c1 != object.AlgorithmBLAKE3.HashObject(object.TypeCommit, mustRaw(t, r, c1)) {
		t.Fatal("commit not addressed with blake3")
	}
	if err := r.CreateBranch("main", c1, false); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	h, err := r.ResolveRevision("HEAD")
	if err != nil || h != c1 {
		t.Fatalf("ResolveRevision(HEAD) = %s, %v", h, err)
	}
	if _, err := r.ReadReflog("main", 0); !errors.Is(err, ErrReflogUnsupported) {
		t.Fatalf("ReadReflog: got %v, want ErrReflogUnsupported", err)
	}
	if _, err := r.GC(false); err != nil {
		t.Fatalf("GC: %v", err)
	}

	root := r.RootDir
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()
	h, err = reopened.ResolveRevision("main")
	if err != nil || h != c1 {
		t.Fatalf("after reopen main = %s, %v", h, err)
	}
}

func mustRaw(t *testing.T, r *Repo, h object.Hash) []byte {
	t.Helper()
	_, data, err := r.Objects.Read(h)
	if err != nil {
		t.Fatalf("Read %s: %v", h, err)
	}
	return data
}
