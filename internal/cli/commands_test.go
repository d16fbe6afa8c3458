package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bakeorder/internal/catalog"
	"github.com/roach88/bakeorder/internal/ordering"
	"github.com/roach88/bakeorder/internal/store"
	"github.com/roach88/bakeorder/internal/testutil"
)

// seedDB creates a database holding GRL [a b c] and GFR [d e].
func seedDB(t *testing.T) string {
	t.Helper()
	products, sectors, err := testutil.BuildProducts(catalog.Default(),
		testutil.Placement{Sector: "GRL", IDs: []string{"a", "b", "c"}},
		testutil.Placement{Sector: "GFR", IDs: []string{"d", "e"}},
	)
	require.NoError(t, err)
	return seedRaw(t, products, sectors)
}

func seedRaw(t *testing.T, products []ordering.Product, sectors []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bakeorder.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Seed(context.Background(), products, sectors))
	require.NoError(t, st.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type productsResponse struct {
	Status string        `json:"status"`
	Data   []ProductView `json:"data"`
}

type mutationResponse struct {
	Status  string       `json:"status"`
	BatchID string       `json:"batch_id"`
	Data    MutationView `json:"data"`
	Error   *CLIError    `json:"error"`
}

func listIDs(t *testing.T, db, sector string) []string {
	t.Helper()
	out, err := execute(t, "list", "--db", db, "--sector", sector, "--format", "json")
	require.NoError(t, err)

	var resp productsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	ids := make([]string, len(resp.Data))
	for i, p := range resp.Data {
		ids[i] = p.ID
	}
	return ids
}

func TestListCommand_Text(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "GRL")
	assert.Contains(t, out, "Granel")
	assert.Contains(t, out, "01003")
	assert.Contains(t, out, "02002")
	assert.NotContains(t, out, "PAN")
}

func TestListCommand_JSONSector(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "list", "--db", db, "--sector", "gfr", "--format", "json")
	require.NoError(t, err)

	var resp productsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []ProductView{
		{ID: "d", Name: "d", Order: "02001", Sector: "GFR", Sequence: 1},
		{ID: "e", Name: "e", Order: "02002", Sector: "GFR", Sequence: 2},
	}, resp.Data)
}

func TestListCommand_UnknownSector(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "list", "--db", db, "--sector", "ZZZ")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E101]")
}

func TestMoveCommand(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "move", "b", "prev", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp mutationResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.BatchID)
	assert.True(t, resp.Data.Committed)
	assert.Equal(t, ordering.OpMoveAdjacent, resp.Data.Operation)
	assert.Equal(t, []ordering.Update{
		{ProductID: "b", Order: 1001},
		{ProductID: "a", Order: 1002},
	}, resp.Data.Batch.Updates)

	assert.Equal(t, []string{"b", "a", "c"}, listIDs(t, db, "GRL"))
}

func TestMoveCommand_BoundaryIsNoop(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "move", "a", "up", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to change")
}

func TestMoveCommand_BadDirection(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "move", "a", "sideways", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestPositionCommand(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "position", "c", "1", "--db", db, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "move_to_position committed")
	assert.Contains(t, out, "01001  c")
	assert.Equal(t, []string{"c", "a", "b"}, listIDs(t, db, "GRL"))

	out, err = execute(t, "position", "c", "9", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")

	_, err = execute(t, "position", "c", "first", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSectorCommand(t *testing.T) {
	db := seedDB(t)

	_, err := execute(t, "sector", "a", "GFR", "--at", "1", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, listIDs(t, db, "GRL"))
	assert.Equal(t, []string{"a", "d", "e"}, listIDs(t, db, "GFR"))
}

func TestSwapCommand_CrossSector(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "swap", "a", "d", "--db", db, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp mutationResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCrossSectorSwap, resp.Error.Code)

	// Nothing was written.
	assert.Equal(t, []string{"a", "b", "c"}, listIDs(t, db, "GRL"))
}

func TestAddAndRemoveCommands(t *testing.T) {
	db := seedDB(t)

	_, err := execute(t, "add", "n", "Nata", "--sector", "GRL", "--at", "2", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "n", "b", "c"}, listIDs(t, db, "GRL"))

	out, err := execute(t, "add", "n", "Nata", "--sector", "GRL", "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E106]")

	_, err = execute(t, "remove", "a", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "b", "c"}, listIDs(t, db, "GRL"))

	out, err = execute(t, "remove", "a", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E105]")
}

func TestAddCommand_RequiresSector(t *testing.T) {
	db := seedDB(t)

	_, err := execute(t, "add", "n", "Nata", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "sector" not set`)
}

func TestAuditAndRepairCommands(t *testing.T) {
	db := seedRaw(t, []ordering.Product{
		{ID: "a", Name: "a", Order: 1001},
		{ID: "b", Name: "b", Order: 1003},
		{ID: "x", Name: "x", Order: 42009},
	}, []string{"GRL"})

	out, err := execute(t, "audit", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "finding(s)")

	out, err = execute(t, "repair", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "repair committed")
	assert.Equal(t, []string{"a", "b", "x"}, listIDs(t, db, "GRL"))

	out, err = execute(t, "audit", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No findings")

	out, err = execute(t, "repair", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to change")
}

func TestAuditCommand_JSON(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "audit", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   AuditResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Clean)
	assert.Empty(t, resp.Data.Findings)
}

func TestStrictSectorsFlag(t *testing.T) {
	db := seedRaw(t, []ordering.Product{
		{ID: "a", Name: "a", Order: 1001},
		{ID: "x", Name: "x", Order: 42009},
	}, []string{"GRL"})

	out, err := execute(t, "move", "x", "up", "--db", db, "--strict-sectors")
	require.Error(t, err)
	assert.Contains(t, out, "Error [E101]")

	_, err = execute(t, "move", "x", "up", "--db", db)
	require.NoError(t, err, "lenient mode treats x as a first-sector product")
	assert.Equal(t, []string{"x", "a"}, listIDs(t, db, "GRL"))

	// The move re-encodes the sector, so no out-of-catalog order survives.
	out, err = execute(t, "audit", "--db", db, "--strict-sectors")
	require.NoError(t, err)
	assert.Contains(t, out, "No findings")

	out, err = execute(t, "list", "--db", db, "--sector", "GRL", "--format", "json")
	require.NoError(t, err)
	var resp productsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	for i, p := range resp.Data {
		assert.Equal(t, "GRL", p.Sector)
		assert.Equal(t, i+1, p.Sequence)
	}
}

func TestHistoryCommand(t *testing.T) {
	db := seedDB(t)

	out, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No batches committed yet.")

	_, err = execute(t, "swap", "a", "c", "--db", db)
	require.NoError(t, err)
	_, err = execute(t, "remove", "e", "--db", db)
	require.NoError(t, err)

	out, err = execute(t, "history", "--db", db, "--format", "json", "-n", "1")
	require.NoError(t, err)

	var resp struct {
		Data []store.BatchRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "remove", resp.Data[0].Operation)
	assert.Equal(t, []string{"GFR"}, resp.Data[0].Sectors)
}

func TestCatalogCommand(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "01  GRL")
	assert.Contains(t, out, "07  BEB")

	path := filepath.Join(t.TempDir(), "sectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sectors:\n  - {code: pan, name: Panes}\n  - {code: TAR, name: Tartas}\n"), 0644))

	out, err = execute(t, "catalog", path, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []SectorView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []SectorView{
		{Index: 1, Code: "PAN", Name: "Panes"},
		{Index: 2, Code: "TAR", Name: "Tartas"},
	}, resp.Data)
}

func TestCatalogCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sectors:\n  - {code: PAN, name: Panes}\n  - {code: PAN, name: Otra}\n"), 0644))

	out, err := execute(t, "catalog", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")

	db := seedDB(t)
	out, err = execute(t, "list", "--db", db, "--catalog", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestClassify(t *testing.T) {
	code, exit := classify(&ordering.Error{Code: ordering.ErrCodeInconsistentState})
	assert.Equal(t, ErrCodeInconsistentState, code)
	assert.Equal(t, ExitFailure, exit)

	code, exit = classify(store.ErrRevisionConflict)
	assert.Equal(t, ErrCodeRevisionConflict, code)
	assert.Equal(t, ExitFailure, exit)

	code, exit = classify(os.ErrPermission)
	assert.Equal(t, ErrCodeGeneric, code)
	assert.Equal(t, ExitCommandError, exit)
}

func TestMetricsFileFlag(t *testing.T) {
	db := seedDB(t)
	metrics := filepath.Join(t.TempDir(), "bakeorder.prom")

	_, err := execute(t, "move", "b", "up", "--db", db, "--metrics-file", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`bakeorder_reorder_operations_total{operation="move_adjacent",result="committed"} 1`)
	assert.Contains(t, string(data), "bakeorder_reorder_batch_products")

	// A rejected mutation still writes the file.
	_, err = execute(t, "swap", "a", "d", "--db", db, "--metrics-file", metrics)
	require.Error(t, err)

	data, err = os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`bakeorder_reorder_operations_total{operation="swap",result="rejected"} 1`)
}
