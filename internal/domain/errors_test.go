package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerInconsistencyError(t *testing.T) {
	err := &LedgerInconsistency{Category: CategoryKill, ByTarget: 3, ByVoter: 12}
	require.Equal(t, "ledger inconsistency in KILL: 3 votes by target, 12 by voter", err.Error())
}
