package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validRecordJSON = `{
  "profile": {"customerName": "Ravi Kumar", "whatsappNumber": "+91 98765 43210"},
  "canvas": {"totalArea": "3.5", "areaUnit": "acre", "soilTextures": ["loamy"]},
  "heart": {"waterSources": ["borewell"], "borewellCount": 1},
  "arteries": {"pipeMaterial": "pvc"},
  "pulse": {"powerSource": "grid"},
  "biology": {"crops": ["sugarcane"]},
  "baseline": {"currentMethod": "flood"},
  "vision": {"goals": ["save water"], "timeline": "3 months"}
}`

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", writeFile(t, "record.json", validRecordJSON))
	require.NoError(t, err, out)
	assert.Contains(t, out, `"valid": true`)

	out, err = run(t, "validate", writeFile(t, "empty.json", `{}`))
	require.ErrorIs(t, err, errInvalidRecord)
	assert.Contains(t, out, `"firstInvalid": 0`)

	out, err = run(t, "validate", "--module", "profile",
		writeFile(t, "profile.json", `{"customerName": "", "whatsappNumber": "1234567890"}`))
	require.ErrorIs(t, err, errInvalidRecord)
	assert.Contains(t, out, "customerName")
	assert.NotContains(t, out, "whatsappNumber")

	_, err = run(t, "validate", "--module", "garden", writeFile(t, "x.json", `{}`))
	assert.Error(t, err)
}

func TestSubmitCommandUnconfigured(t *testing.T) {
	t.Setenv("SMARTHIKA_SHEETS_WEBHOOK_URL", "")
	out, err := run(t, "submit", writeFile(t, "record.json", validRecordJSON))
	require.Error(t, err)
	assert.Contains(t, out, `"success": false`)
}

func TestSubmitCommandPosts(t *testing.T) {
	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()
	t.Setenv("SMARTHIKA_SHEETS_WEBHOOK_URL", hook.URL+"/exec")

	out, err := run(t, "submit", writeFile(t, "record.json", validRecordJSON))
	require.NoError(t, err, out)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, out, `"success": true`)
}

func TestLocationCommands(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"states":[{"state":"Goa","districts":["North Goa","South Goa"]}]}`))
	}))
	defer source.Close()
	t.Setenv("SMARTHIKA_LOCATION_SOURCE_URL", source.URL)

	out, err := run(t, "states")
	require.NoError(t, err)
	assert.Equal(t, "Goa\n", out)

	out, err = run(t, "districts", "goa")
	require.NoError(t, err)
	assert.Equal(t, "North Goa\nSouth Goa\n", out)
}

const boundaries = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"st_nm":"Tamil Nadu"},"geometry":{"type":"Point","coordinates":[78.6,11.1]}},
  {"type":"Feature","properties":{"st_nm":"Kerala"},"geometry":{"type":"Point","coordinates":[76.2,10.1]}}]}`

func TestRegionsFromTopologyFile(t *testing.T) {
	out, err := run(t, "regions", "india", "--selected", "tamil nadu", "--topology", writeFile(t, "india.json", boundaries))
	require.NoError(t, err)
	assert.Equal(t, "* Tamil Nadu\n  Kerala\n", out)
}

func TestMapsPut(t *testing.T) {
	t.Setenv("SMARTHIKA_BLOB_DRIVER", "fs")
	t.Setenv("SMARTHIKA_BLOB_FS_ROOT", t.TempDir())

	out, err := run(t, "maps", "put", "india", writeFile(t, "india.json", boundaries))
	require.NoError(t, err, out)
	assert.Contains(t, out, "stored maps/india.topo.json")

	out, err = run(t, "regions", "india", "--selected", "Kerala")
	require.NoError(t, err)
	assert.Equal(t, "  Tamil Nadu\n* Kerala\n", out)

	_, err = run(t, "maps", "put", "india", writeFile(t, "bad.json", `{"type":"Nope"}`))
	assert.Error(t, err)
}
