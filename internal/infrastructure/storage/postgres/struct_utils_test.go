package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gestock/internal/core/id"
)

type MockAuditRow struct {
	ID        id.ID     `db:"id"`
	UserID    string    `db:"user_id"`
	Skipped   string    `db:"-"`
	NoTag     string    ``
	CreatedAt time.Time `db:"created_at"`
}

type MockEmbedded struct {
	MockAuditRow
	Action string `db:"action"`
}

type hiddenBase struct {
	Secret string `db:"secret"`
}

type MockUnexportedEmbed struct {
	hiddenBase
	internal string `db:"internal"`
	Action   string `db:"action"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[MockEmbedded]()

	assert.Equal(t, []string{"id", "user_id", "created_at", "action"}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := MockEmbedded{
		MockAuditRow: MockAuditRow{
			ID:        id.New(),
			UserID:    "alice",
			Skipped:   "should not appear",
			CreatedAt: now,
		},
		Action: "create",
	}

	m := StructToMap(row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, "alice", m["user_id"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "create", m["action"])
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 4)
}

func TestStructToMapPointerAndNonStruct(t *testing.T) {
	row := &MockAuditRow{UserID: "bob"}
	m := StructToMap(row)
	assert.Equal(t, "bob", m["user_id"])

	assert.Nil(t, StructToMap(42))
}

func TestStructToMapSkipsUnexportedFields(t *testing.T) {
	row := MockUnexportedEmbed{
		hiddenBase: hiddenBase{Secret: "nope"},
		internal:   "nope",
		Action:     "create",
	}

	m := StructToMap(row)

	assert.Equal(t, map[string]any{"action": "create"}, m)
	assert.Equal(t, []string{"action"}, ExtractDBColumns[MockUnexportedEmbed]())
}
