package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/config"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/inventorytest"
	"github.com/katalvlaran/lvlca/multilca"
)

// workspace writes the fuel/electricity inventory and a setup file into a
// fresh working directory.
func workspace(t *testing.T) (inv, setup string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	var buf bytes.Buffer
	require.NoError(t, inventory.WriteYAML(&buf, inventorytest.FuelElectricity()))
	inv = filepath.Join(dir, "inventory.yaml")
	require.NoError(t, os.WriteFile(inv, buf.Bytes(), 0o600))

	buf.Reset()
	require.NoError(t, multilca.WriteSetup(&buf, multilca.Setup{
		Name: "electricity",
		Inv:  []multilca.FunctionalUnit{{inventorytest.Electricity: 1}},
		IA:   []inventory.MethodID{inventorytest.GWP},
	}, multilca.FormatYAML))
	setup = filepath.Join(dir, "setup.yaml")
	require.NoError(t, os.WriteFile(setup, buf.Bytes(), 0o600))

	return inv, setup
}

func execute(args ...string) (stdout, stderr string, err error) {
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())

	return out.String(), errOut.String(), err
}

func TestCalc(t *testing.T) {
	inv, setup := workspace(t)

	out, errOut, err := execute("calc", "--inventory", inv, "--setup", setup, "--top", "1", "--group-by", "name")
	require.NoError(t, err)
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "kg CO2-Eq")
	assert.Contains(t, out, "fuel production")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, errOut, "calculate finished")

	out, errOut, err = execute("calc", "-q", "--inventory", inv, "--setup", setup)
	require.NoError(t, err)
	assert.NotContains(t, out, "fuel production")
	assert.NotContains(t, errOut, "calculate finished")
}

func TestCalc_WithScenarioTemplate(t *testing.T) {
	inv, setup := workspace(t)
	tmpl := filepath.Join(filepath.Dir(inv), "template.csv")

	_, _, err := execute("scenario", "template", "--inventory", inv,
		"--activity", "db:electricity", "--names", "base,copy", "--out", tmpl)
	require.NoError(t, err)

	out, _, err := execute("calc", "--inventory", inv, "--setup", setup, "--scenario", tmpl)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "base"))
	assert.True(t, strings.HasPrefix(lines[2], "copy"))

	combined := filepath.Join(filepath.Dir(inv), "combined.xlsx")
	_, _, err = execute("scenario", "combine", "--inventory", inv, "--out", combined, tmpl, tmpl)
	require.NoError(t, err)
	_, err = os.Stat(combined)
	assert.NoError(t, err)
}

func TestCombineModeFlag(t *testing.T) {
	inv, setup := workspace(t)
	tmpl := filepath.Join(filepath.Dir(inv), "template.csv")
	_, _, err := execute("scenario", "template", "--inventory", inv,
		"--activity", "db:electricity", "--names", "base", "--out", tmpl)
	require.NoError(t, err)

	_, _, err = execute("scenario", "combine", "--inventory", inv, "--combine", "sum", tmpl)
	assert.ErrorIs(t, err, config.ErrInvalid)
	_, _, err = execute("calc", "--inventory", inv, "--setup", setup, "--combine", "sum")
	assert.ErrorIs(t, err, config.ErrInvalid)

	out, _, err := execute("scenario", "combine", "--inventory", inv, "--combine", "addition", tmpl, tmpl)
	require.NoError(t, err)
	assert.Contains(t, out, "base")
	assert.NotContains(t, out, "base :: base")

	out, _, err = execute("scenario", "combine", "--inventory", inv, tmpl, tmpl)
	require.NoError(t, err)
	assert.Contains(t, out, "base :: base")
}

func TestMC(t *testing.T) {
	inv, setup := workspace(t)

	out, _, err := execute("mc", "--inventory", inv, "--setup", setup, "--iterations", "5", "--seed", "3", "--include", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "seed 3, 5 iterations")
	assert.Contains(t, out, "MEDIAN")

	_, _, err = execute("mc", "--inventory", inv, "--setup", setup, "--include", "weather")
	assert.Error(t, err)
}

func TestParamsAndImport(t *testing.T) {
	inv, setup := workspace(t)

	out, _, err := execute("params", "--inventory", inv)
	require.NoError(t, err)
	assert.Contains(t, out, "SCOPE")

	db := filepath.Join(filepath.Dir(inv), "inventory.db")
	_, errOut, err := execute("import", "--from", inv, "--to", db)
	require.NoError(t, err)
	assert.Contains(t, errOut, "import finished")

	out, _, err = execute("calc", "--inventory", db, "--setup", setup)
	require.NoError(t, err)
	assert.Contains(t, out, "kg CO2-Eq")
}

func TestUsageErrors(t *testing.T) {
	inv, setup := workspace(t)

	_, _, err := execute("calc", "--inventory", inv)
	assert.ErrorIs(t, err, errNoSetup)

	_, _, err = execute("calc", "--setup", setup)
	assert.ErrorIs(t, err, errNoInventory)

	_, _, err = execute("scenario", "template", "--inventory", inv, "--activity", "electricity", "--names", "a")
	assert.ErrorContains(t, err, "database:code")
}

func TestParseActivity(t *testing.T) {
	k, err := parseActivity("ecoinvent:abc:def")
	require.NoError(t, err)
	assert.Equal(t, inventory.K("ecoinvent", "abc:def"), k)

	_, err = parseActivity(":code")
	assert.Error(t, err)
}
