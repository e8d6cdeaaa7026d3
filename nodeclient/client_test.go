package nodeclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lamden/golampy/core"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/nodeclient"
	"github.com/lamden/golampy/nodeclient/fakenode"
	"github.com/lamden/golampy/params"
	"github.com/lamden/golampy/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.Backend = (*nodeclient.Client)(nil)

func nodeID() types.Processor {
	var p types.Processor
	for i := range p {
		p[i] = 0xab
	}
	return p
}

func newNode(t *testing.T) (*fakenode.Node, *nodeclient.Client) {
	t.Helper()
	node := fakenode.New(nodeID())
	srv := node.Server()
	t.Cleanup(srv.Close)
	client, err := nodeclient.Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	return node, client
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New(make([]byte, params.SeedSize))
	require.NoError(t, err)
	return w
}

func TestNewClientInvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "ftp://node", "http://", "://bad"} {
		_, err := nodeclient.NewClient(u)
		assert.ErrorIs(t, err, nodeclient.ErrInvalidURL, "url %q", u)
	}
}

func TestDialOffline(t *testing.T) {
	node := fakenode.New(nodeID())
	node.SetStatus("syncing")
	srv := node.Server()
	defer srv.Close()

	_, err := nodeclient.Dial(context.Background(), srv.URL)
	assert.ErrorIs(t, err, nodeclient.ErrNodeOffline)
}

func TestDialUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := nodeclient.Dial(context.Background(), url)
	assert.Error(t, err)
}

func TestProcessorIDCached(t *testing.T) {
	node, client := newNode(t)
	for i := 0; i < 3; i++ {
		id, err := client.ProcessorID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, nodeID(), id)
	}
	assert.Equal(t, 1, node.Requests("/id"))
}

func TestNonce(t *testing.T) {
	node, client := newNode(t)
	w := testWallet(t)
	node.SetNonce(w.VerifyingKeyHex(), 12)

	processor, nonce, err := client.Nonce(context.Background(), w.VerifyingKey())
	require.NoError(t, err)
	assert.Equal(t, nodeID(), processor)
	assert.Equal(t, uint64(12), nonce)
}

func TestNonceWithoutProcessor(t *testing.T) {
	router := http.NewServeMux()
	router.HandleFunc("/nonce/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nonce": 3}`))
	})
	router.HandleFunc("/id", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verifying_key": "` + nodeID().Hex() + `"}`))
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	client, err := nodeclient.NewClient(srv.URL)
	require.NoError(t, err)
	processor, nonce, err := client.Nonce(context.Background(), testWallet(t).VerifyingKey())
	require.NoError(t, err)
	assert.Equal(t, nodeID(), processor)
	assert.Equal(t, uint64(3), nonce)
}

func TestNonceMalformed(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"nonce": "x"}`,
		`not json`,
		`{"nonce": 1, "processor": "` + nodeID().Hex() + `", "sender": "00"}`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		client, err := nodeclient.NewClient(srv.URL)
		require.NoError(t, err)
		_, _, err = client.Nonce(context.Background(), testWallet(t).VerifyingKey())
		assert.ErrorIs(t, err, nodeclient.ErrBadResponse, "body %s", body)
		srv.Close()
	}
}

func TestSubmitThroughDriver(t *testing.T) {
	node, client := newNode(t)
	w := testWallet(t)
	node.SetNonce(w.VerifyingKeyHex(), 1)

	d := core.NewDriver(client, w, nil)
	tx, res, err := d.Send(context.Background(), core.Call{
		Contract: "token",
		Function: "transfer",
		Args:     kwargs.NewArgs().Add("to", "receiver_address_hex").Add("amount", kwargs.MustFixedPoint("100.5")),
		Stamps:   50,
	})
	require.NoError(t, err)
	assert.Equal(t, fakenode.SubmitSuccess, res.Success)

	hash, err := tx.HashHex()
	require.NoError(t, err)
	assert.Equal(t, hash, res.Hash)
	assert.Equal(t, uint64(1), tx.Nonce())
	require.Len(t, node.Submitted(), 1)

	// The node consumed the nonce, so the next send uses 2.
	tx, _, err = d.Send(context.Background(), core.Call{Contract: "token", Function: "transfer", Stamps: 50})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tx.Nonce())
}

func TestSubmitRejected(t *testing.T) {
	node, client := newNode(t)
	node.Reject("Transaction stamps exceed balance.")

	raw, err := core.BuildTransaction(testWallet(t), "token", "transfer", nil, 10, nodeID(), 0)
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), raw)
	var nodeErr *nodeclient.NodeError
	require.True(t, errors.As(err, &nodeErr), "got %v", err)
	assert.Equal(t, "Transaction stamps exceed balance.", nodeErr.Message)
	assert.Equal(t, http.StatusBadRequest, nodeErr.StatusCode)

	_, err = client.Submit(context.Background(), []byte{0x01, 0x02})
	require.True(t, errors.As(err, &nodeErr))
	assert.Empty(t, node.Submitted())
}

func TestHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := nodeclient.NewClient(srv.URL)
	require.NoError(t, err)
	_, err = client.LatestBlock(context.Background())
	var httpErr *nodeclient.HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "gateway down", httpErr.Body)
}

func TestContracts(t *testing.T) {
	node, client := newNode(t)
	node.AddContract("currency", "def transfer(amount, to): pass",
		fakenode.Method{Name: "transfer", Arguments: []string{"amount", "to"}},
		fakenode.Method{Name: "balance_of", Arguments: []string{"account"}},
	)
	node.AddContract("election", "")
	ctx := context.Background()

	names, err := client.Contracts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"currency", "election"}, names)

	code, err := client.ContractCode(ctx, "currency")
	require.NoError(t, err)
	assert.Equal(t, "def transfer(amount, to): pass", code)

	_, err = client.ContractCode(ctx, "missing")
	var nodeErr *nodeclient.NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, http.StatusNotFound, nodeErr.StatusCode)

	_, err = client.ContractCode(ctx, "")
	assert.ErrorIs(t, err, nodeclient.ErrEmptyContract)

	for i := 0; i < 3; i++ {
		methods, err := client.ContractMethods(ctx, "currency")
		require.NoError(t, err)
		require.Len(t, methods, 2)
		assert.Equal(t, "transfer", methods[0].Name)
		assert.Equal(t, []string{"amount", "to"}, methods[0].Arguments)
	}
	assert.Equal(t, 1, node.Requests("/contracts/currency/methods"))

	methods, err := client.ContractMethods(ctx, "election")
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestGetVariable(t *testing.T) {
	node, client := newNode(t)
	node.AddContract("currency", "")
	require.NoError(t, node.SetVariable("currency", "balances", "1000.5", "alice"))
	require.NoError(t, node.SetVariable("currency", "allowances", 7, "alice", "bob"))
	require.NoError(t, node.SetVariable("currency", "supply", map[string]string{"__fixed__": "1e6"}))
	ctx := context.Background()

	v, err := client.GetVariable(ctx, "currency", "balances", "alice")
	require.NoError(t, err)
	assert.JSONEq(t, `"1000.5"`, string(v))

	v, err = client.GetVariable(ctx, "currency", "allowances", "alice", "bob")
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(v))

	v, err = client.GetVariable(ctx, "currency", "supply")
	require.NoError(t, err)
	var supply map[string]string
	require.NoError(t, json.Unmarshal(v, &supply))
	assert.Equal(t, "1e6", supply["__fixed__"])

	v, err = client.GetVariable(ctx, "currency", "balances", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "null", string(v))
}

func TestLatestBlock(t *testing.T) {
	node, client := newNode(t)
	node.SetLatestBlock("beef", 42)
	b, err := client.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "beef", b.Hash)
	assert.Equal(t, uint64(42), b.Number)
}

func TestRateLimit(t *testing.T) {
	node := fakenode.New(nodeID())
	srv := node.Server()
	defer srv.Close()

	client, err := nodeclient.NewClient(srv.URL, nodeclient.WithRateLimit(1, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = client.Ping(ctx)
	require.NoError(t, err)
	// The second request would have to wait a full second.
	_, err = client.Ping(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, node.Requests("/ping"))
}
