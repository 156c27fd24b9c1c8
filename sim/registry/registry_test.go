package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simlir/simlir/sim"
)

const sampleData = `# comment line
2|nro|20110102|123|19830101|20110101|+0000
nro|*|ipv4|*|4151|summary
iana|ZZ|ipv4|0.0.0.0|16777216|19830101|ietf
iana|US|ipv4|3.0.0.0|16777216|19880223|assigned
iana|ZZ|ipv4|7.0.0.0|16777216|19880223|arin
apnic|JP|ipv4|43.0.0.0|16777216|19880223|assigned
lacnic|MX|ipv4|204.126.140.0|512|19950114|assigned
ripencc|NL|ipv6|2001:600::|32|19990826|allocated
apnic|AU|ipv4|1.0.0.0|36864|00000000|assigned
iana|ZZ|ipv4|bad-address|16777216|19830101|arin
`

func TestParse_SkipsCommentsSummariesAndNonIPv4(t *testing.T) {
	allocs, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	// 7 IPv4 rows survive: comments, the version line, the summary line,
	// and the IPv6 row are gone. The bad address is still parseable here;
	// it dies later, in BuildRecords.
	require.Len(t, allocs, 7)
	assert.Equal(t, "iana", allocs[0].Registry)
	assert.Equal(t, "ietf", allocs[0].Status)
	assert.Equal(t, uint64(16777216), allocs[0].Value)
}

func TestParse_ZeroDateNormalised(t *testing.T) {
	allocs, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	var au *Allocation
	for i := range allocs {
		if allocs[i].Country == "AU" {
			au = &allocs[i]
		}
	}
	require.NotNil(t, au)
	assert.Equal(t, DefaultDate, au.Date)
}

func TestDecomposeSpan_SumOfPowers(t *testing.T) {
	assert.Equal(t, []uint64{32768, 4096}, DecomposeSpan(36864))
	assert.Equal(t, []uint64{16777216}, DecomposeSpan(16777216))
	assert.Equal(t, []uint64{4, 2, 1}, DecomposeSpan(7))
	assert.Nil(t, DecomposeSpan(0))
}

func TestSeriesFrom_LaysBlocksEndToEnd(t *testing.T) {
	prefixes, err := SeriesFrom(1<<24, []uint64{32768, 4096}, 32)
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, sim.Prefix{Base: 1 << 24, Length: 17}, prefixes[0])
	assert.Equal(t, sim.Prefix{Base: 1<<24 + 32768, Length: 20}, prefixes[1])
}

func TestParseIPv4(t *testing.T) {
	v, err := ParseIPv4("204.126.140.0")
	require.NoError(t, err)
	assert.Equal(t, uint64(204)<<24|uint64(126)<<16|uint64(140)<<8, v)

	_, err = ParseIPv4("not-an-address")
	assert.Error(t, err)
	_, err = ParseIPv4("2001:600::")
	assert.Error(t, err, "IPv6 must be rejected")
}

func TestDayOffset(t *testing.T) {
	d, err := DayOffset("19930111", "19930101")
	require.NoError(t, err)
	assert.Equal(t, int64(10), d)

	_, err = DayOffset("1993-01-11", "19930101")
	assert.Error(t, err)
}

func TestBuildRecords_HierarchyFromRegistryData(t *testing.T) {
	allocs, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	records, err := BuildRecords(allocs, BuildOptions{})
	require.NoError(t, err)

	byName := map[string]sim.EntityRecord{}
	for _, rec := range records {
		byName[rec.Name] = rec
	}

	// Root with the ietf and legacy-assigned ranges reserved.
	root := byName["iana"]
	assert.Equal(t, sim.RoleIANA, root.Role)
	assert.Empty(t, root.Parent)
	require.Len(t, root.Blocks, 2)
	assert.False(t, root.Blocks[0].Allocatable)

	// arin exists because iana delegated 7.0.0.0/8 to it; the row with the
	// unparseable address was dropped, so exactly one block.
	arin := byName["arin"]
	assert.Equal(t, sim.RoleRIR, arin.Role)
	assert.Equal(t, "iana", arin.Parent)
	assert.Equal(t, 8, arin.ReplenishLength)
	require.Len(t, arin.Blocks, 1)
	assert.True(t, arin.Blocks[0].Allocatable)
	assert.Equal(t, sim.Prefix{Base: 7 << 24, Length: 8}, arin.Blocks[0].Prefix)

	// Country holders hang off the registry that delegated to them; the
	// 36864-address row decomposes into two blocks.
	au := byName["AU"]
	assert.Equal(t, sim.RoleLIR, au.Role)
	assert.Equal(t, "apnic", au.Parent)
	assert.Len(t, au.Blocks, 2)

	mx := byName["MX"]
	assert.Equal(t, "lacnic", mx.Parent)
	require.Len(t, mx.Blocks, 1)
	assert.False(t, mx.Blocks[0].Allocatable)
}

func TestBuildRecords_RIRTemplateAppliedPerRegistry(t *testing.T) {
	allocs, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	records, err := BuildRecords(allocs, BuildOptions{
		RIRReplenishLength: 6,
		RIRBehaviour:       &sim.BehaviourConfig{Kind: "static", Span: 1 << 24, Interval: 90},
	})
	require.NoError(t, err)

	var rirs []sim.EntityRecord
	for _, rec := range records {
		if rec.Role == sim.RoleRIR {
			rirs = append(rirs, rec)
		}
	}
	require.NotEmpty(t, rirs)
	for _, rir := range rirs {
		require.NotNil(t, rir.Behaviour, "%s should carry the template", rir.Name)
		assert.Equal(t, "static", rir.Behaviour.Kind)
		assert.Equal(t, uint64(1<<24), rir.Behaviour.Span)
		assert.Equal(t, int64(90), rir.Behaviour.Interval)
		assert.Equal(t, 6, rir.ReplenishLength)
	}

	// Each registry gets its own copy, not a shared pointer.
	rirs[0].Behaviour.Interval = 7
	assert.Equal(t, int64(90), rirs[1].Behaviour.Interval)

	// The root and the holders are never given the registry template.
	for _, rec := range records {
		if rec.Role == sim.RoleIANA {
			assert.Nil(t, rec.Behaviour)
		}
	}
}

func TestBuildRecords_ReplayHoldersReenactHistory(t *testing.T) {
	allocs, err := Parse(strings.NewReader(sampleData))
	require.NoError(t, err)

	records, err := BuildRecords(allocs, BuildOptions{
		Epoch:        "19930101",
		LIRBehaviour: &sim.BehaviourConfig{Kind: "replay"},
	})
	require.NoError(t, err)

	for _, rec := range records {
		if rec.Role != sim.RoleLIR {
			continue
		}
		assert.Empty(t, rec.Blocks, "replay holders start empty")
		require.NotNil(t, rec.Behaviour)
		require.Len(t, rec.Behaviour.Replay, 1)
	}

	var mx sim.EntityRecord
	for _, rec := range records {
		if rec.Name == "MX" {
			mx = rec
		}
	}
	assert.Equal(t, uint64(512), mx.Behaviour.Replay[0].Span)
	// 19950114 is 743 days after the epoch.
	assert.Equal(t, int64(743), mx.Behaviour.Replay[0].Time)
}
