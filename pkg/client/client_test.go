package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/solixsync/solixsync/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name string, data any) {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o600))
}

func newFixtureClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "get_site_list.json", map[string]any{
		"site_list": []any{
			map[string]any{"site_id": "site-1", "site_name": "Home", "ms_type": 1},
		},
	})
	writeFixture(t, dir, "get_scen_info_site-1.json", map[string]any{
		"solarbank_info": map[string]any{
			"solarbank_list": []any{
				map[string]any{"device_sn": "SB1", "device_pn": "A17C0", "battery_power": "55"},
			},
		},
	})
	writeFixture(t, dir, "get_relate_and_bind_devices.json", map[string]any{"data": []any{}})
	writeFixture(t, dir, "get_product_categories.json", map[string]any{"product_list": []any{}})

	c, err := New(session.Config{
		Email:    "user@example.com",
		Password: "pw",
		Country:  "DE",
		BaseURL:  "http://localhost",
		TestDir:  dir,
	})
	require.NoError(t, err)
	return c
}

func TestClientFixtureCycle(t *testing.T) {
	c := newFixtureClient(t)
	ctx := context.Background()

	require.NoError(t, c.UpdateSites(ctx, "", true))

	sites := c.Sites()
	require.Contains(t, sites, "site-1")
	assert.Equal(t, "Home", sites["site-1"].Info.Name)

	devs := c.Devices()
	require.Contains(t, devs, "SB1")
	assert.Equal(t, 55, devs["SB1"].BatterySOC)

	require.NoError(t, c.CustomizeCacheID(ctx, "SB1", "battery_capacity", 3200))
	assert.Equal(t, 3200.0, c.Devices()["SB1"].BatteryCapacity)

	require.Error(t, c.CustomizeCacheID(ctx, "missing", "k", "v"))
}

func TestClientAuthenticate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/passport/login", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"msg":  "success",
			"data": map[string]any{
				"auth_token":       "tok",
				"user_id":          "user-1",
				"nick_name":        "tester",
				"token_expires_at": time.Now().Add(time.Hour).Unix(),
			},
		})
	}))
	defer ts.Close()

	c, err := New(session.Config{
		Email:    "user@example.com",
		Password: "pw",
		Country:  "DE",
		BaseURL:  ts.URL,
	})
	require.NoError(t, err)

	fresh, err := c.Authenticate(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, fresh)

	a := c.Account()
	assert.Equal(t, "tester", a.Nickname)
	assert.Equal(t, "user-1", a.UserID)
	assert.Equal(t, "eu", a.Region)
	assert.GreaterOrEqual(t, a.RequestsLastHour, 1, "the login call is counted")
}

func TestExcludeSet(t *testing.T) {
	assert.Nil(t, excludeSet(nil))
	set := excludeSet([]string{"a", "b"})
	assert.True(t, set["a"])
	assert.False(t, set["c"])
}
