package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckTokenFlags(t *testing.T) {
	require.NoError(t, checkTokenFlags("", ""))
	require.NoError(t, checkTokenFlags("11155111", "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"))
	require.Error(t, checkTokenFlags("11155111", ""))
	require.Error(t, checkTokenFlags("", "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"))
}
