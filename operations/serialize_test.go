package operations

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

func Test_IsSerializable(t *testing.T) {
	t.Parallel()

	type nested struct {
		Address common.Address `json:"address"`
		Amount  *big.Int       `json:"amount"`
	}

	tests := []struct {
		name string
		give any
		want bool
	}{
		{name: "nil", give: nil, want: true},
		{name: "int", give: 1, want: true},
		{name: "string map", give: map[string][]byte{"a": {1}}, want: true},
		{name: "struct with marshalers", give: nested{Address: common.HexToAddress("0x1"), Amount: big.NewInt(5)}, want: true},
		{name: "pointer to struct", give: &sumInput{A: 1}, want: true},
		{name: "ignored field", give: struct {
			A  int
			Fn func() `json:"-"`
		}{A: 1}, want: true},
		{name: "func", give: func() {}, want: false},
		{name: "chan", give: make(chan int), want: false},
		{name: "unexported field", give: struct {
			A int
			b int
		}{A: 1, b: 2}, want: false},
		{name: "slice of funcs", give: []func(){}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsSerializable(logger.Nop(), tt.give))
		})
	}
}
