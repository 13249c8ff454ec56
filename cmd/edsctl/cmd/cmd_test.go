package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/record/recordtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRecord(t *testing.T, rec *record.SourceRecord) string {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestBuildCmd(t *testing.T) {
	roInvoice := writeRecord(t, recordtest.ROInvoice("Sector 3"))
	badCity := writeRecord(t, recordtest.ROInvoice("Bucuresti"))
	picking := writeRecord(t, recordtest.Picking(1))

	tests := []struct {
		name         string
		args         []string
		wantErr      string
		wantContains string
	}{
		{
			name:         "romanian invoice",
			args:         []string{"build", roInvoice, "--profile", "ro_cius"},
			wantContains: "urn:efactura.mfinante.ro:CIUS-RO:1.0.1",
		},
		{
			name:         "shipment declaration",
			args:         []string{"build", picking, "--profile", "ro_etransport"},
			wantContains: "notificare",
		},
		{
			name:    "invalid record",
			args:    []string{"build", badCity, "--profile", "ro_cius"},
			wantErr: "SECTORX",
		},
		{
			name:         "forced",
			args:         []string{"build", badCity, "--profile", "ro_cius", "--force"},
			wantContains: "<cbc:CityName>",
		},
		{
			name:    "flow profile",
			args:    []string{"build", roInvoice, "--profile", "pl_jpk"},
			wantErr: "built from flows",
		},
		{
			name:    "unknown profile",
			args:    []string{"build", roInvoice, "--profile", "de_xrechnung"},
			wantErr: "invalid profile",
		},
		{
			name:    "missing file",
			args:    []string{"build", filepath.Join(t.TempDir(), "nope.json")},
			wantErr: "failed to read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, stdout, tt.wantContains)
		})
	}
}

func TestBuildCmd_OutputFile(t *testing.T) {
	in := writeRecord(t, recordtest.JOInvoice())
	out := filepath.Join(t.TempDir(), "invoice.xml")

	stdout, stderr, err := execute("build", in, "-p", "jo_ubl", "-o", out)
	require.NoError(t, err)

	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Wrote "+out)
	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<cbc:ProfileID>reporting:1.0</cbc:ProfileID>")
}

func TestValidateCmd(t *testing.T) {
	valid := writeRecord(t, recordtest.JOInvoice())
	rec := recordtest.JOInvoice()
	rec.Currency = "USD"
	invalid := writeRecord(t, rec)

	t.Run("all valid", func(t *testing.T) {
		stdout, _, err := execute("validate", valid, "--profile", "jo_ubl")
		require.NoError(t, err)
		assert.Equal(t, valid+": VALID\n", stdout)
	})

	t.Run("one invalid", func(t *testing.T) {
		stdout, _, err := execute("validate", valid, invalid, "--profile", "jo_ubl")
		require.Error(t, err)
		assert.Contains(t, stdout, invalid+": INVALID")
		assert.Contains(t, stdout, "  - JoFotara invoices must be issued in JOD, not USD")
	})

	t.Run("json output", func(t *testing.T) {
		stdout, _, err := execute("validate", invalid, "--profile", "jo_ubl", "--json")
		require.Error(t, err)

		var results []ValidationResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &results))
		require.Len(t, results, 1)
		assert.False(t, results[0].Valid)
		assert.Equal(t, rec.Name, results[0].Record)
		assert.Equal(t, []string{"JoFotara invoices must be issued in JOD, not USD"}, results[0].Errors)
	})
}

func TestImportCmd(t *testing.T) {
	in := writeRecord(t, recordtest.FRInvoice())
	xml, _, err := execute("build", in, "-p", "fr_cius")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "facture.xml")
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o600))

	t.Run("prints the draft", func(t *testing.T) {
		stdout, _, err := execute("import", path, "--company-id", "3")
		require.NoError(t, err)

		var rec record.SourceRecord
		require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
		assert.Equal(t, record.TypeInInvoice, rec.Type)
		assert.Equal(t, record.StateDraft, rec.State)
		assert.Equal(t, int64(3), rec.CompanyID)
		assert.Equal(t, "EUR", rec.Currency)
	})

	t.Run("save needs an id", func(t *testing.T) {
		_, _, err := execute("import", path, "--company-id", "3", "--save")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--save needs --id and --company-id")
	})

	t.Run("not xml", func(t *testing.T) {
		_, _, err := execute("import", in)
		require.Error(t, err)
	})
}

func TestAggregateCmd_Flags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"profile without company", []string{"aggregate", "--profile", "pl_jpk"}, "--profile needs --company-id"},
		{"single record profile", []string{"aggregate", "--company-id", "2", "--profile", "ro_cius"}, "have no flows"},
		{"missing profile", []string{"aggregate", "--company-id", "2"}, "invalid profile"},
		{"bad day", []string{"aggregate", "--at", "10.07.2024"}, "expected YYYY-MM-DD"},
		{"stray argument", []string{"aggregate", "now"}, "unknown command"},
		{"missing config file", []string{"aggregate", "--config", filepath.Join(t.TempDir(), "eds.env")}, "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(tt.args...)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
