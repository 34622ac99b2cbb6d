package track

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records invocations and optionally fails them.
type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func TestConverter_Arguments(t *testing.T) {
	rr := &recordingRunner{}
	c := NewConverter("ref/hg38.chrom.sizes")
	c.SetRunner(rr)

	ctx := context.Background()
	require.NoError(t, c.BedToBigBed(ctx, "out/BRCA1_domains.bed", "out/BRCA1_domains.bb"))
	require.NoError(t, c.BedGraphToBigWig(ctx, "out/BRCA1_S1.bedGraph", "out/BRCA1_S1.bw"))

	assert.Equal(t, [][]string{
		{"bedToBigBed", "out/BRCA1_domains.bed", "ref/hg38.chrom.sizes", "out/BRCA1_domains.bb"},
		{"bedGraphToBigWig", "out/BRCA1_S1.bedGraph", "ref/hg38.chrom.sizes", "out/BRCA1_S1.bw"},
	}, rr.calls)
}

func TestConverter_Defaults(t *testing.T) {
	rr := &recordingRunner{}
	c := NewConverter("")
	c.SetRunner(rr)
	c.SetBinaries("/opt/ucsc/bedToBigBed", "")

	require.NoError(t, c.BedToBigBed(context.Background(), "a.bed", "a.bb"))
	require.NoError(t, c.BedGraphToBigWig(context.Background(), "a.bedGraph", "a.bw"))
	assert.Equal(t, "/opt/ucsc/bedToBigBed", rr.calls[0][0])
	assert.Equal(t, DefaultChromSizes, rr.calls[0][2])
	assert.Equal(t, DefaultBedGraphToBigWig, rr.calls[1][0])
}

func TestConverter_Failure(t *testing.T) {
	boom := errors.New("exit status 255")
	c := NewConverter("hg38.chrom.sizes")
	c.SetRunner(&recordingRunner{err: boom})

	err := c.BedToBigBed(context.Background(), "a.bed", "a.bb")
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "a.bed")
}

func TestExecRunner_Failure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo bad chrom >&2; exit 3")
	require.Error(t, err)

	var ee *ExecError
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, ee.Output, "bad chrom")
	assert.Contains(t, err.Error(), "sh -c")
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	c := NewConverter(filepath.Join(dir, "missing.sizes"))
	assert.Error(t, c.Check())

	sizes := filepath.Join(dir, "hg38.chrom.sizes")
	require.NoError(t, os.WriteFile(sizes, []byte("chr1\t248956422\n"), 0644))
	c = NewConverter(sizes)
	c.SetBinaries(filepath.Join(dir, "no-such-bedToBigBed"), "")
	assert.Error(t, c.Check())
}
