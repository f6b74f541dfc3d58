package session

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/solixsync/solixsync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureName(t *testing.T) {
	assert.Equal(t, "get_site_list.json", FixtureName("power_service/v1/site/get_site_list", ""))
	assert.Equal(t, "get_scen_info_site-1.json", FixtureName("power_service/v1/site/get_scen_info", "site-1"))
	assert.Equal(t, "login.json", FixtureName("/passport/login/", ""))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("get_site_list.json", `{"site_list":[{"site_id":"s1"}]}`)
	write("get_scen_info_s1.json", `{"code":0,"msg":"success","data":{"home_info":{"home_name":"Home"}}}`)
	write("get_site_price_s1.json", `{"code":401,"msg":"rejected","data":null}`)

	s := newTestSession(t, "http://localhost", nil)
	s.SetTestDir(dir)

	t.Run("Raw Fixture", func(t *testing.T) {
		data, err := s.FromFile("power_service/v1/site/get_site_list", "")
		require.NoError(t, err)
		assert.NotNil(t, data["site_list"])
	})

	t.Run("Envelope Fixture", func(t *testing.T) {
		data, err := s.FromFile("power_service/v1/site/get_scen_info", "s1")
		require.NoError(t, err)
		assert.Equal(t, "Home", types.GetString(data, "", "home_info", "home_name"))
	})

	t.Run("Envelope Error Code", func(t *testing.T) {
		_, err := s.FromFile("power_service/v1/site/get_site_price", "s1")
		var ae *types.APIError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, 401, ae.Code)
	})

	t.Run("Missing Fixture", func(t *testing.T) {
		_, err := s.FromFile("power_service/v1/site/nope", "")
		var ce *types.CommunicationError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("Fetch Routes To Fixtures", func(t *testing.T) {
		data, err := s.Fetch(context.Background(), http.MethodPost, "power_service/v1/site/get_site_list", nil, true, "")
		require.NoError(t, err)
		assert.NotNil(t, data["site_list"])
	})
}

func TestFromFileWithoutDir(t *testing.T) {
	s := newTestSession(t, "http://localhost", nil)
	_, err := s.FromFile("a/b", "")
	require.Error(t, err)
}
