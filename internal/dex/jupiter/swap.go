// =============================
// File: internal/dex/jupiter/swap.go
// =============================
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// quoteResponse keeps the raw body alongside the parsed fields: the swap
// endpoint expects the quote passed back verbatim.
type quoteResponse struct {
	raw       json.RawMessage
	OutAmount string
}

type quoteFields struct {
	OutAmount string `json:"outAmount"`
	ErrorMsg  string `json:"error"`
}

type swapRequest struct {
	UserPublicKey    string          `json:"userPublicKey"`
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
	FeeAccount       string          `json:"feeAccount,omitempty"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
	ErrorMsg        string `json:"error"`
}

type priceResponse struct {
	Data map[string]struct {
		Price float64 `json:"price"`
	} `json:"data"`
}

// fetchQuote запрашивает маршрут обмена ExactIn у агрегатора.
func (c *Client) fetchQuote(ctx context.Context, inputMint, outputMint string, amount, slippageBps uint64) (*quoteResponse, error) {
	start := time.Now()
	defer c.observe("quote", start)

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.FormatUint(slippageBps, 10))
	params.Set("swapMode", "ExactIn")
	params.Set("maxAccounts", strconv.Itoa(maxRouteAccounts))
	quoteURL := c.quoteURL + "/quote?" + params.Encode()

	op := func() (*quoteResponse, error) {
		body, err := c.getJSON(ctx, quoteURL)
		if err != nil {
			return nil, err
		}

		var fields quoteFields
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode quote: %w", err))
		}
		if fields.ErrorMsg != "" {
			return nil, backoff.Permanent(fmt.Errorf("quote rejected: %s", fields.ErrorMsg))
		}
		return &quoteResponse{raw: body, OutAmount: fields.OutAmount}, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
}

// executeSwap turns a quote into a signed transaction and lands it on chain.
func (c *Client) executeSwap(ctx context.Context, quote *quoteResponse) (solana.Signature, error) {
	tx, err := c.buildSwapTransaction(ctx, quote)
	if err != nil {
		return solana.Signature{}, err
	}

	if err := c.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return c.submitAndConfirm(ctx, tx)
}

// buildSwapTransaction запрашивает у Jupiter готовую транзакцию свапа.
func (c *Client) buildSwapTransaction(ctx context.Context, quote *quoteResponse) (*solana.Transaction, error) {
	start := time.Now()
	defer c.observe("swap", start)

	payload, err := json.Marshal(swapRequest{
		UserPublicKey:    c.wallet.PublicKey.String(),
		QuoteResponse:    quote.raw,
		WrapAndUnwrapSol: true,
		FeeAccount:       c.feeAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	op := func() (*swapResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.quoteURL+"/swap", bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, httpStatusError(resp.StatusCode, body)
		}

		var parsed swapResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode swap response: %w", err))
		}
		if parsed.ErrorMsg != "" {
			return nil, backoff.Permanent(fmt.Errorf("swap rejected: %s", parsed.ErrorMsg))
		}
		if parsed.SwapTransaction == "" {
			return nil, backoff.Permanent(fmt.Errorf("swap response has no transaction"))
		}
		return &parsed, nil
	}

	parsed, err := backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	txBytes, err := base64.StdEncoding.DecodeString(parsed.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap transaction: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(txBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse swap transaction: %w", err)
	}
	return tx, nil
}

// submitAndConfirm отправляет транзакцию и дожидается подтверждения.
// Повторная отправка той же подписанной транзакции идемпотентна.
func (c *Client) submitAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	defer c.observe("send", start)

	op := func() (solana.Signature, error) {
		sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
		if err != nil {
			if strings.Contains(err.Error(), "Blockhash not found") {
				// Транзакция собрана агрегатором на устаревшем blockhash,
				// пересылать её бессмысленно.
				return solana.Signature{}, backoff.Permanent(fmt.Errorf("swap transaction expired: %w", err))
			}
			return solana.Signature{}, err
		}

		if err := c.waitForConfirmation(ctx, sig); err != nil {
			return sig, fmt.Errorf("transaction sent but not confirmed: %w", err)
		}
		return sig, nil
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(15*time.Second),
	)
}

func (c *Client) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(30 * time.Second)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("confirmation timeout")
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction failed on chain: %v", status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}

// getJSON выполняет GET и возвращает тело; 4xx считается постоянной ошибкой.
func (c *Client) getJSON(ctx context.Context, rawURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusError(resp.StatusCode, body)
	}
	return body, nil
}

func httpStatusError(code int, body []byte) error {
	err := fmt.Errorf("unexpected status %d: %s", code, bytes.TrimSpace(body))
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
