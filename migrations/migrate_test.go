package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names, err := Names()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "0001_init.sql", names[0])

	for i := 1; i < len(names); i++ {
		require.Less(t, names[i-1], names[i])
	}
}

func TestInitMigrationDeclaresInventoryConstraint(t *testing.T) {
	b, err := migrationFiles.ReadFile("0001_init.sql")
	require.NoError(t, err)
	require.Contains(t, string(b), "CHECK (sold <= capacity)")
	require.Contains(t, string(b), "bookings_payment_ref_uidx")
}
