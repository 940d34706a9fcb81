package release

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildmaster/internal/eventstore"
	ferrors "git.home.luguber.info/inful/buildmaster/internal/foundation/errors"
	"git.home.luguber.info/inful/buildmaster/internal/notify"
	"git.home.luguber.info/inful/buildmaster/internal/transport"
	"git.home.luguber.info/inful/buildmaster/internal/versioning"
)

type fakeVCS struct {
	added   []string
	commits []string
	tags    []string
	tagErr  error
}

func (f *fakeVCS) Add(path string) error { f.added = append(f.added, path); return nil }

func (f *fakeVCS) Commit(message string) (string, error) {
	f.commits = append(f.commits, message)
	return "0123456789abcdef0123456789abcdef01234567", nil
}

func (f *fakeVCS) Tag(name string) error {
	if f.tagErr != nil {
		return f.tagErr
	}
	f.tags = append(f.tags, name)
	return nil
}

type failingTransport struct{ calls int }

func (f *failingTransport) Copy(context.Context, string, string) error {
	f.calls++
	return ferrors.TransportFailure("connection refused").Build()
}

type recordingAnnouncer struct {
	releases []notify.Release
	err      error
}

func (r *recordingAnnouncer) Announce(_ context.Context, rel notify.Release) error {
	r.releases = append(r.releases, rel)
	return r.err
}

type fixture struct {
	record  *versioning.Store
	dist    string
	remote  string
	vcs     *fakeVCS
	store   *eventstore.SQLiteStore
	builds  int
	built   []string // artifact names the build produces
	options Options
}

func newFixture(t *testing.T, artifacts ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	recordPath := filepath.Join(root, "version.properties")
	require.NoError(t, os.WriteFile(recordPath, []byte("Manifest-Version: 1.0\nImplementation-Version: 1.0\nImplementation-Build: 41\n"), 0o644))

	store, err := eventstore.NewSQLiteStore(eventstore.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		record: versioning.NewStore(recordPath, "Implementation-Version", "Implementation-Build"),
		dist:   filepath.Join(root, "dist"),
		remote: filepath.Join(root, "remote"),
		vcs:    &fakeVCS{},
		store:  store,
		built:  artifacts,
	}
	require.NoError(t, os.MkdirAll(f.dist, 0o755))
	f.options = Options{
		Project: "cotta",
		RunID:   "run-1",
		Record:  f.record,
		VCS:     f.vcs,
		Build: func(_ context.Context, targets ...string) error {
			assert.Equal(t, []string{"package"}, targets)
			f.builds++
			for _, name := range f.built {
				f.writeArtifact(t, name+".jar")
				f.writeArtifact(t, name+"-src.zip")
			}
			return nil
		},
		BuildTargets: []string{"package"},
		DistDir:      f.dist,
		Artifacts:    artifacts,
		Target:       transport.Target{Transport: transport.Local{}, Remote: f.remote},
		TagPrefix:    "version-",
		CommitPrefix: "releasing",
		Journal:      eventstore.NewJournal(store, "run-1"),
	}
	return f
}

func (f *fixture) writeArtifact(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dist, name), []byte(name), 0o644))
}

func TestReleaseFullRun(t *testing.T) {
	f := newFixture(t, "cotta", "cotta-asserts")
	announcer := &recordingAnnouncer{}
	f.options.Announcer = announcer

	c := New(f.options)
	result, err := c.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "1.0b42", result.Label)
	assert.Equal(t, "version-1.0b42", result.Tag)
	assert.Equal(t, Steps, result.Steps)
	assert.Equal(t, StateIdle, c.State())

	rec, err := f.record.Read()
	require.NoError(t, err)
	assert.Equal(t, 42, rec.Build)

	assert.Equal(t, []string{f.record.Path()}, f.vcs.added)
	assert.Equal(t, []string{"releasing 1.0b42"}, f.vcs.commits)
	assert.Equal(t, []string{"version-1.0b42"}, f.vcs.tags)
	assert.Equal(t, 1, f.builds)

	want := []string{"cotta-1.0b42.jar", "cotta-1.0b42-src.zip", "cotta-asserts-1.0b42.jar", "cotta-asserts-1.0b42-src.zip"}
	assert.Equal(t, want, result.Uploaded)
	for _, name := range want {
		assert.FileExists(t, filepath.Join(f.dist, name))
		assert.FileExists(t, filepath.Join(f.remote, name))
	}
	assert.NoFileExists(t, filepath.Join(f.dist, "cotta.jar"))

	require.Len(t, announcer.releases, 1)
	assert.Equal(t, "1.0b42", announcer.releases[0].Label)
	assert.Equal(t, want, announcer.releases[0].Artifacts)

	pos, found, err := eventstore.LastReleasePosition(t.Context(), f.store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "upload", pos.Step)
	assert.False(t, pos.Failed)
	_, err = ResumeStep(pos)
	require.Error(t, err)
}

func TestReleaseBumpFailureStopsEverything(t *testing.T) {
	f := newFixture(t, "cotta")
	require.NoError(t, os.WriteFile(f.record.Path(), []byte("Implementation-Version: 1.0\n"), 0o644))

	_, err := New(f.options).Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryVersion))
	assert.Zero(t, f.builds)
	assert.Empty(t, f.vcs.commits)
}

func TestReleaseRenameIsAtomic(t *testing.T) {
	f := newFixture(t, "cotta", "ftp")
	f.built = []string{"cotta"}

	c := New(f.options)
	_, err := c.Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryArtifact))
	assert.Equal(t, StateTagged, c.State())

	assert.FileExists(t, filepath.Join(f.dist, "cotta.jar"))
	assert.FileExists(t, filepath.Join(f.dist, "cotta-src.zip"))
	assert.NoFileExists(t, filepath.Join(f.dist, "cotta-1.0b42.jar"))
	assert.NoDirExists(t, f.remote)

	pos, found, err := eventstore.LastReleasePosition(t.Context(), f.store)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "rename", pos.Step)
	assert.Equal(t, "1.0b42", pos.Label)
	assert.True(t, pos.Failed)

	// Provide the missing artifacts and resume without bumping again.
	f.writeArtifact(t, "ftp.jar")
	f.writeArtifact(t, "ftp-src.zip")
	result, err := New(f.options).Resume(t.Context(), pos)
	require.NoError(t, err)
	assert.Equal(t, []Step{StepRename, StepUpload}, result.Steps)
	assert.FileExists(t, filepath.Join(f.remote, "ftp-1.0b42-src.zip"))

	rec, err := f.record.Read()
	require.NoError(t, err)
	assert.Equal(t, 42, rec.Build)
	assert.Len(t, f.vcs.tags, 1)
}

func TestReleaseResumeAcceptsRenamedArtifacts(t *testing.T) {
	f := newFixture(t, "cotta")
	f.writeArtifact(t, "cotta-1.0b41.jar")
	f.writeArtifact(t, "cotta-src.zip")

	result, err := New(f.options).RunFrom(t.Context(), StepRename, "1.0b41")
	require.NoError(t, err)
	assert.Equal(t, []string{"cotta-1.0b41.jar", "cotta-1.0b41-src.zip"}, result.Uploaded)
	assert.Zero(t, f.builds)
	assert.Empty(t, f.vcs.commits)
}

func TestReleaseUploadFailureIsNotRetried(t *testing.T) {
	f := newFixture(t, "cotta")
	tr := &failingTransport{}
	f.options.Target = transport.Target{Transport: tr, Remote: "host:/builds"}

	c := New(f.options)
	_, err := c.Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))
	artifact, ok := ferrors.GetContextString(err, "artifact")
	require.True(t, ok)
	assert.Equal(t, "cotta-1.0b42.jar", artifact)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, StateRenamed, c.State())
}

func TestReleaseAnnouncementFailureIsWarning(t *testing.T) {
	f := newFixture(t, "cotta")
	f.options.Announcer = &recordingAnnouncer{err: errors.New("nats down")}

	result, err := New(f.options).Run(t.Context())
	require.NoError(t, err)
	assert.Len(t, result.Uploaded, 2)
}

func TestReleaseTagFailure(t *testing.T) {
	f := newFixture(t, "cotta")
	f.vcs.tagErr = ferrors.VCSError("tag version-1.0b42 already exists").Build()

	c := New(f.options)
	_, err := c.Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryVCS))
	assert.Equal(t, StateCommitted, c.State())
	assert.FileExists(t, filepath.Join(f.dist, "cotta.jar"))
}

func TestReleaseUnclassifiedVCSErrorIsTransportFailure(t *testing.T) {
	f := newFixture(t, "cotta")
	f.vcs.tagErr = errors.New("tag rejected")

	_, err := New(f.options).Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTransport))
	step, _ := ferrors.GetContextString(err, "step")
	assert.Equal(t, "tag", step)
	label, _ := ferrors.GetContextString(err, "label")
	assert.Equal(t, "1.0b42", label)
	assert.ErrorContains(t, err, "tag rejected")
}

func TestRunFromRequiresLabel(t *testing.T) {
	f := newFixture(t, "cotta")
	_, err := New(f.options).RunFrom(t.Context(), StepCommit, "")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	_, err = New(f.options).RunFrom(t.Context(), Step("deploy"), "1.0b42")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestRunFromRejectsLabelAheadOfRecord(t *testing.T) {
	f := newFixture(t, "cotta")
	_, err := New(f.options).RunFrom(t.Context(), StepTag, "1.0b42")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.Empty(t, f.vcs.tags)
}

func TestResumeStep(t *testing.T) {
	tests := []struct {
		pos     eventstore.ReleasePosition
		want    Step
		wantErr bool
	}{
		{eventstore.ReleasePosition{Step: "bump", Label: "1.0b42"}, StepBuild, false},
		{eventstore.ReleasePosition{Step: "tag", Label: "1.0b42"}, StepRename, false},
		{eventstore.ReleasePosition{Step: "tag", Label: "1.0b42", Failed: true}, StepTag, false},
		{eventstore.ReleasePosition{Step: "upload", Label: "1.0b42"}, "", true},
		{eventstore.ReleasePosition{Step: "deploy"}, "", true},
	}
	for _, tt := range tests {
		got, err := ResumeStep(tt.pos)
		if tt.wantErr {
			assert.Error(t, err, tt.pos.Step)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestStepStates(t *testing.T) {
	assert.Equal(t, StateIdle, StepBump.Before())
	assert.Equal(t, StateBumped, StepCommit.Before())
	assert.Equal(t, StateTagged, StepRename.Before())
	assert.Equal(t, StateUploaded, StepUpload.After())
	next, ok := StepCommit.Next()
	assert.True(t, ok)
	assert.Equal(t, StepTag, next)
}
