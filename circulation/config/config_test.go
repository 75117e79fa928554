package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/require"
)

func TestCirculationFromEnv(t *testing.T) {
	t.Setenv("CIRCULATION_BORROW_LIMIT", "3")
	t.Setenv("CIRCULATION_LOAN_PERIOD", "168h")

	var c Circulation
	require.NoError(t, envconfig.Process("", &c))
	require.Equal(t, 3, c.BorrowLimit)
	require.Equal(t, 7*24*time.Hour, c.LoanPeriod)
}

func TestCirculationDefaults(t *testing.T) {
	var c Circulation
	require.NoError(t, envconfig.Process("", &c))
	require.Equal(t, 5, c.BorrowLimit)
	require.Equal(t, 14*24*time.Hour, c.LoanPeriod)
}
