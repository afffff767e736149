package sitemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeShops(t *testing.T, rows string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shops.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestLoadAndResolveExactMatch(t *testing.T) {
	path := writeShops(t, "id,name\nshop01,Corner Store\nshop02,High Street\n")
	r, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "shop01", r.ResolveSiteID("shop01.till.local"))
}

func TestResolveSiteIDAppendsSingleDigitSuffix(t *testing.T) {
	// The id itself must carry no digits, or it would contribute more than
	// one to the hostname's digit count and suppress the suffix.
	path := writeShops(t, "id,name\nshop,Corner Store\n")
	r, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "shop_9", r.ResolveSiteID("shop-till9"))
}

func TestResolveSiteIDUnknownHostYieldsUnknown(t *testing.T) {
	path := writeShops(t, "id,name\nshop01,Corner Store\n")
	r, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "UNKNOWN", r.ResolveSiteID("unregistered-host"))
}

func TestResolveSiteIDPicksLongestMatch(t *testing.T) {
	path := writeShops(t, "id,name\nshop,Generic\nshop01,Specific\n")
	r, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "shop01", r.ResolveSiteID("shop01.local"))
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	path := writeShops(t, "id,name\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
