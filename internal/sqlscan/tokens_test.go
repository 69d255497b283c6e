package sqlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindActionsCaseInsensitive(t *testing.T) {
	actions := FindActions("select customer_id from invoices")
	assert.Equal(t, []Action{ActionSelect}, actions)
}

func TestFindActionsDeduplicatesInOrder(t *testing.T) {
	actions := FindActions("WITH ar AS (SELECT 1) SELECT 2")
	assert.Equal(t, []Action{ActionWith, ActionSelect}, actions)
}

func TestFindActionsRespectsWordBoundaries(t *testing.T) {
	// SELECTED and user_update must not match SELECT or UPDATE.
	actions := FindActions("SELECTED user_update updatedelete")
	assert.Empty(t, actions)
}

func TestFindDateColumnsExcludesParameters(t *testing.T) {
	cols := FindDateColumns("WHERE order_date >= @start_date AND created_at < now()")
	assert.Equal(t, []string{"order_date", "created_at"}, cols)
}

func TestFindDateColumnsLowercasesCanonicalForm(t *testing.T) {
	cols := FindDateColumns("SELECT Order_Date, ORDER_DATE FROM t")
	assert.Equal(t, []string{"order_date"}, cols)
}

func TestFindDateColumnsAllSuffixes(t *testing.T) {
	cols := FindDateColumns("due_date closed_at load_time event_timestamp amount")
	assert.Equal(t, []string{"due_date", "closed_at", "load_time", "event_timestamp"}, cols)
}

func TestFindParamsDeduplicatesAndLowercases(t *testing.T) {
	params := FindParams("WHERE a = @Tenant_Id AND b = @limit AND c = @tenant_id")
	assert.Equal(t, []string{"tenant_id", "limit"}, params)
}

func TestFindParamsEmptyWithoutSigil(t *testing.T) {
	assert.Empty(t, FindParams("SELECT tenant_id FROM t"))
}

func TestIsDateParam(t *testing.T) {
	assert.True(t, IsDateParam("start_date"))
	assert.True(t, IsDateParam("created_at"))
	assert.True(t, IsDateParam("window_days"))
	assert.True(t, IsDateParam("trailing_lookback_days"))
	assert.True(t, IsDateParam("days_back"))
	assert.False(t, IsDateParam("min_amount"))
	assert.False(t, IsDateParam("tenant_id"))
}

func TestIsWindowParam(t *testing.T) {
	assert.True(t, IsWindowParam("window_days"))
	assert.True(t, IsWindowParam("period_days"))
	assert.False(t, IsWindowParam("start_date"))
}

func TestCountActionOccurrences(t *testing.T) {
	n := CountActionOccurrences("DROP TABLE a; drop table b; dropped", ActionDrop)
	assert.Equal(t, 2, n)
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("delete")
	require.True(t, ok)
	assert.Equal(t, ActionDelete, a)

	_, ok = ParseAction("MERGE")
	assert.False(t, ok)
}
