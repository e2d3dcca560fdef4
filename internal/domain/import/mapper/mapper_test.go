package mapper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHeaderRow(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  bool
	}{
		{
			name:  "typical header",
			cells: []string{"Type", "Title", "Amount", "Date", "Account", "Category"},
			want:  true,
		},
		{
			name:  "data row",
			cells: []string{"expense", "Coffee", "4.50", "2025-02-03", "MAIN", "groceries"},
			want:  false,
		},
		{
			name:  "numeric data row",
			cells: []string{"42", "19.99", "2025", "xx"},
			want:  false,
		},
		{
			name:  "empty row",
			cells: nil,
			want:  false,
		},
		{
			name:  "substring matches count",
			cells: []string{"transaction_date", "account_name"},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeaderRow(tt.cells))
		})
	}
}

func TestIsHeaderRowThreshold(t *testing.T) {
	// Controlled fixture: "amount" matches, "zz<n>" never does.
	row := func(total, matching int) []string {
		cells := make([]string, 0, total)
		for i := 0; i < matching; i++ {
			cells = append(cells, "amount")
		}
		for i := matching; i < total; i++ {
			cells = append(cells, fmt.Sprintf("zz%d", i))
		}
		return cells
	}

	assert.True(t, IsHeaderRow(row(100, 50)), "exactly 50% must classify as headers")
	assert.False(t, IsHeaderRow(row(100, 49)), "49% must not classify as headers")
	assert.True(t, IsHeaderRow(row(4, 2)))
	assert.False(t, IsHeaderRow(row(4, 1)))
}

func TestMapColumns(t *testing.T) {
	t.Run("maps common headers", func(t *testing.T) {
		mapping := MapColumns([]string{"date", "account_id", "type", "category", "amount", "description"})

		assert.Equal(t, ColumnMapping{
			0: FieldTransactionDate,
			1: FieldAccount,
			2: FieldType,
			3: FieldCategory,
			4: FieldAmount,
			5: FieldTitle,
		}, mapping)
	})

	t.Run("transfer headers", func(t *testing.T) {
		mapping := MapColumns([]string{"date", "from_account", "to_account", "amount"})

		assert.Equal(t, FieldFromAccount, mapping[1])
		assert.Equal(t, FieldToAccount, mapping[2])
	})

	t.Run("total maps to amount not toAccount", func(t *testing.T) {
		mapping := MapColumns([]string{"total"})
		assert.Equal(t, FieldAmount, mapping[0])
	})

	t.Run("unmatched columns stay unmapped", func(t *testing.T) {
		mapping := MapColumns([]string{"xyz", "amount", ""})

		_, ok := mapping[0]
		assert.False(t, ok)
		_, ok = mapping[2]
		assert.False(t, ok)
		assert.Equal(t, FieldAmount, mapping[1])
	})

	t.Run("field assigned at most once, earlier column wins", func(t *testing.T) {
		mapping := MapColumns([]string{"amount", "value"})

		assert.Equal(t, FieldAmount, mapping[0])
		_, ok := mapping[1]
		assert.False(t, ok)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		header := []string{"date", "account", "type", "category", "amount", "notes"}
		first := MapColumns(header)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, MapColumns(header))
		}
	})
}

func TestColumnMappingSet(t *testing.T) {
	mapping := MapColumns([]string{"date", "amount"})

	// Moving a field to another column removes the old assignment.
	mapping.Set(0, FieldAmount)

	assert.Equal(t, FieldAmount, mapping[0])
	_, ok := mapping[1]
	assert.False(t, ok)

	mapping.Clear(0)
	assert.Empty(t, mapping)
}

func TestColumnMappingApply(t *testing.T) {
	mapping := ColumnMapping{0: FieldType, 1: FieldAmount, 5: FieldNotes}

	fields := mapping.Apply([]string{"expense", "4.50"})

	assert.Equal(t, "expense", fields[FieldType])
	assert.Equal(t, "4.50", fields[FieldAmount])
	assert.Equal(t, "", fields[FieldNotes], "column past the row's end reads blank")
}
