package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

const testMint = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// swapTransactionBase64 builds an unsigned transaction with payer as the
// fee payer, the same shape the swap API hands back.
func swapTransactionBase64(t *testing.T, payer solana.PrivateKey) string {
	t.Helper()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer.PublicKey(), payer.PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

// rpcStub answers sendTransaction with sig and confirms it on first poll.
func rpcStub(t *testing.T, sig solana.Signature) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("malformed RPC request: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "sendTransaction":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":%q}`, sig.String())
		case "getSignatureStatuses":
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"slot":1,"confirmations":null,"err":null,"confirmationStatus":"confirmed"}]}}`)
		default:
			t.Errorf("unexpected RPC method %q", req.Method)
		}
	}))
}

func newTestClient(t *testing.T, key solana.PrivateKey, quoteURL, priceURL, rpcURL string) *Client {
	t.Helper()

	w, err := wallet.New(key.String())
	require.NoError(t, err)

	c, err := New(Config{
		QuoteURL:    quoteURL,
		PriceURL:    priceURL,
		RPCEndpoint: rpcURL,
		Wallet:      w,
		HTTPTimeout: 5 * time.Second,
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	return c
}

func TestBuyFlow(t *testing.T) {
	walletKey := solana.NewWallet().PrivateKey
	wantSig := solana.SignatureFromBytes(bytes.Repeat([]byte{7}, 64))
	txBase64 := swapTransactionBase64(t, walletKey)

	var gotQuoteQuery url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		gotQuoteQuery = r.URL.Query()
		fmt.Fprint(w, `{"outAmount":"250000000","routePlan":[]}`)
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("malformed swap request: %v", err)
			return
		}
		assert.Equal(t, walletKey.PublicKey().String(), body["userPublicKey"])
		assert.Equal(t, true, body["wrapAndUnwrapSol"])

		quote, ok := body["quoteResponse"].(map[string]any)
		if assert.True(t, ok, "quote must be passed back verbatim") {
			assert.Equal(t, "250000000", quote["outAmount"])
		}

		fmt.Fprintf(w, `{"swapTransaction":%q}`, txBase64)
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	rpcSrv := rpcStub(t, wantSig)
	defer rpcSrv.Close()

	c := newTestClient(t, walletKey, api.URL, api.URL, rpcSrv.URL)

	result, err := c.Buy(context.Background(), testMint, 0.1, 50)
	require.NoError(t, err)

	assert.Equal(t, WSOLMint, gotQuoteQuery.Get("inputMint"))
	assert.Equal(t, testMint, gotQuoteQuery.Get("outputMint"))
	assert.Equal(t, "100000000", gotQuoteQuery.Get("amount"))
	assert.Equal(t, "50", gotQuoteQuery.Get("slippageBps"))
	assert.Equal(t, "ExactIn", gotQuoteQuery.Get("swapMode"))
	assert.Equal(t, "15", gotQuoteQuery.Get("maxAccounts"))

	assert.Equal(t, uint64(250000000), result.TokenAmount)
	assert.Equal(t, 0.1, result.SolSpent)
	// 0.1 SOL for 250 whole tokens.
	assert.InDelta(t, 0.0004, result.Price, 1e-12)
	assert.Equal(t, wantSig.String(), result.Signature)
}

func TestSellSendsRawTokenAmount(t *testing.T) {
	walletKey := solana.NewWallet().PrivateKey
	wantSig := solana.SignatureFromBytes(bytes.Repeat([]byte{9}, 64))
	txBase64 := swapTransactionBase64(t, walletKey)

	var gotQuoteQuery url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		gotQuoteQuery = r.URL.Query()
		fmt.Fprint(w, `{"outAmount":"5000000"}`)
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"swapTransaction":%q}`, txBase64)
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	rpcSrv := rpcStub(t, wantSig)
	defer rpcSrv.Close()

	c := newTestClient(t, walletKey, api.URL, api.URL, rpcSrv.URL)

	sig, err := c.Sell(context.Background(), testMint, 123456789, 75)
	require.NoError(t, err)

	assert.Equal(t, testMint, gotQuoteQuery.Get("inputMint"))
	assert.Equal(t, WSOLMint, gotQuoteQuery.Get("outputMint"))
	assert.Equal(t, "123456789", gotQuoteQuery.Get("amount"))
	assert.Equal(t, "75", gotQuoteQuery.Get("slippageBps"))
	assert.Equal(t, wantSig.String(), sig)
}

func TestQuoteRejectionIsNotRetried(t *testing.T) {
	walletKey := solana.NewWallet().PrivateKey

	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Could not find any route"}`)
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	c := newTestClient(t, walletKey, api.URL, api.URL, api.URL)

	_, err := c.Buy(context.Background(), testMint, 0.1, 50)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx responses must not be retried")
}

func TestBuyRejectsZeroQuote(t *testing.T) {
	walletKey := solana.NewWallet().PrivateKey

	var swapCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"outAmount":"0"}`)
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&swapCalls, 1)
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	c := newTestClient(t, walletKey, api.URL, api.URL, api.URL)

	_, err := c.Buy(context.Background(), testMint, 0.1, 50)
	require.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&swapCalls), "swap must not run without tokens out")
}

func TestCurrentPrice(t *testing.T) {
	walletKey := solana.NewWallet().PrivateKey

	mux := http.NewServeMux()
	mux.HandleFunc("/price", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testMint, r.URL.Query().Get("ids"))
		assert.Equal(t, WSOLMint, r.URL.Query().Get("vsToken"))
		fmt.Fprintf(w, `{"data":{%q:{"price":0.0000042}}}`, testMint)
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	c := newTestClient(t, walletKey, api.URL, api.URL, api.URL)

	price, err := c.CurrentPrice(context.Background(), testMint)
	require.NoError(t, err)
	assert.InDelta(t, 0.0000042, price, 1e-12)
}

func TestCurrentPriceMissingToken(t *testing.T) {
	walletKey := solana.NewWallet().PrivateKey

	mux := http.NewServeMux()
	mux.HandleFunc("/price", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	})
	api := httptest.NewServer(mux)
	defer api.Close()

	c := newTestClient(t, walletKey, api.URL, api.URL, api.URL)

	_, err := c.CurrentPrice(context.Background(), testMint)
	require.Error(t, err)
}

func TestVenueContract(t *testing.T) {
	var v dex.Venue = (*Client)(nil)
	assert.Equal(t, "jupiter", v.Name())
}
