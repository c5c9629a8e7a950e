package rpcclient

import (
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// ethService answers the eth_ namespace calls made by Client.
type ethService struct {
	chainID uint64
	code    hexutil.Bytes
	codeErr error
	sendErr error

	codeCalls atomic.Int32
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).SetUint64(s.chainID))
}

func (s *ethService) GetCode(_ common.Address, _ string) (hexutil.Bytes, error) {
	s.codeCalls.Add(1)

	return s.code, s.codeErr
}

func (s *ethService) SendRawTransaction(_ hexutil.Bytes) (common.Hash, error) {
	return common.Hash{}, s.sendErr
}

func (s *ethService) GetTransactionReceipt(_ common.Hash) *types.Receipt {
	return nil
}

// testNode serves svc over http. Setting down makes every request fail with 503.
type testNode struct {
	svc  *ethService
	down *atomic.Bool
	url  string
}

func newTestNode(t *testing.T, svc *ethService) testNode {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", svc))

	down := new(atomic.Bool)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		srv.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})

	return testNode{svc: svc, down: down, url: ts.URL}
}

func testOptions() Options {
	return Options{CallTimeout: 5 * time.Second, DialAttempts: 1, DialDelay: time.Millisecond}
}

func Test_Dial(t *testing.T) {
	t.Parallel()

	geth := newTestNode(t, &ethService{chainID: 1337})
	other := newTestNode(t, &ethService{chainID: 1})
	dead := newTestNode(t, &ethService{chainID: 1337})
	dead.down.Store(true)

	tests := []struct {
		name        string
		giveNodes   []Node
		giveChainID uint64
		wantNodes   []string
		wantChainID uint64
		wantErr     string
	}{
		{
			name:        "first node sets the chain id",
			giveNodes:   []Node{{Name: "geth", URL: geth.url}, {Name: "other", URL: other.url}},
			wantNodes:   []string{"geth"},
			wantChainID: 1337,
		},
		{
			name:        "configured chain id filters nodes",
			giveNodes:   []Node{{Name: "geth", URL: geth.url}, {Name: "other", URL: other.url}},
			giveChainID: 1,
			wantNodes:   []string{"other"},
			wantChainID: 1,
		},
		{
			name:        "unreachable node is skipped",
			giveNodes:   []Node{{Name: "dead", URL: dead.url}, {Name: "geth", URL: geth.url}},
			wantNodes:   []string{"geth"},
			wantChainID: 1337,
		},
		{
			name:      "no nodes",
			giveNodes: nil,
			wantErr:   "no RPC nodes configured",
		},
		{
			name:      "nothing usable",
			giveNodes: []Node{{Name: "dead", URL: dead.url}, {Name: "blank"}},
			wantErr:   "no usable RPC node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := testOptions()
			opts.ChainID = tt.giveChainID
			c, err := Dial(t.Context(), logger.Test(t), tt.giveNodes, opts)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			t.Cleanup(c.Close)

			assert.Equal(t, tt.wantChainID, c.ChainID())
			var names []string
			for _, n := range c.snapshot() {
				names = append(names, n.name)
			}
			assert.Equal(t, tt.wantNodes, names)
		})
	}
}

func Test_Client_FailsOverOnTransportError(t *testing.T) {
	t.Parallel()

	primary := newTestNode(t, &ethService{chainID: 1337, code: hexutil.Bytes{0x01}})
	backup := newTestNode(t, &ethService{chainID: 1337, code: hexutil.Bytes{0x02}})

	c, err := Dial(t.Context(), logger.Test(t), []Node{
		{Name: "primary", URL: primary.url},
		{Name: "backup", URL: backup.url},
	}, testOptions())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	primary.down.Store(true)

	code, err := c.CodeAt(t.Context(), common.HexToAddress("0x1"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, code)

	// the failed node is now last, so the next call goes straight to the backup
	_, err = c.CodeAt(t.Context(), common.HexToAddress("0x1"), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), primary.svc.codeCalls.Load())
	assert.Equal(t, int32(2), backup.svc.codeCalls.Load())
	assert.Equal(t, "primary", c.snapshot()[1].name)
}

func Test_Client_NodeErrorsAreFinal(t *testing.T) {
	t.Parallel()

	primary := newTestNode(t, &ethService{chainID: 1337, codeErr: errors.New("header not found")})
	backup := newTestNode(t, &ethService{chainID: 1337})

	c, err := Dial(t.Context(), logger.Test(t), []Node{
		{Name: "primary", URL: primary.url},
		{Name: "backup", URL: backup.url},
	}, testOptions())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	_, err = c.CodeAt(t.Context(), common.HexToAddress("0x1"), nil)
	require.ErrorContains(t, err, "header not found")
	assert.Equal(t, int32(0), backup.svc.codeCalls.Load())

	_, err = c.TransactionReceipt(t.Context(), common.Hash{})
	require.ErrorIs(t, err, ethereum.NotFound)
}

func Test_Client_AllNodesDown(t *testing.T) {
	t.Parallel()

	a := newTestNode(t, &ethService{chainID: 1337})
	b := newTestNode(t, &ethService{chainID: 1337})

	c, err := Dial(t.Context(), logger.Test(t), []Node{{Name: "a", URL: a.url}, {Name: "b", URL: b.url}}, testOptions())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	a.down.Store(true)
	b.down.Store(true)

	_, err = c.SuggestGasPrice(t.Context())
	require.ErrorContains(t, err, "eth_gasPrice failed on every RPC node")
	require.ErrorContains(t, err, "a: 503")
}

func Test_Client_SendTransaction(t *testing.T) {
	t.Parallel()

	tx := types.NewTx(&types.LegacyTx{GasPrice: big.NewInt(1), Gas: 21000})

	tests := []struct {
		name    string
		sendErr error
		wantErr string
	}{
		{name: "accepted"},
		{name: "already known", sendErr: errors.New("already known")},
		{name: "rejected", sendErr: errors.New("nonce too low"), wantErr: "nonce too low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := newTestNode(t, &ethService{chainID: 1337, sendErr: tt.sendErr})
			c, err := Dial(t.Context(), logger.Test(t), []Node{{Name: "geth", URL: n.url}}, testOptions())
			require.NoError(t, err)
			t.Cleanup(c.Close)

			err = c.SendTransaction(t.Context(), tx)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
