package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.ErrorContains(t, err, "unsupported database driver")
}
