package common_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Method string `validate:"required,oneof=upi bank"`
		UPIID  string `validate:"required_if=Method upi"`
	}

	_, ok := common.ValidateStruct(payload{Method: "bank"})
	require.True(t, ok)

	details, ok := common.ValidateStruct(payload{Method: "upi"})
	require.False(t, ok)
	require.Contains(t, details, "UPIID")

	details, ok = common.ValidateStruct(payload{Method: "cheque"})
	require.False(t, ok)
	require.Contains(t, details, "Method")
}
