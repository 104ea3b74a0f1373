package chainclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/avast/retry-go/v4"

	"github.com/vsrlabs/positions-indexer/internal/types"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse[T any] struct {
	Result T         `json:"result"`
	Error  *rpcError `json:"error"`
}

// contextValue wraps results that carry a slot context.
type contextValue[T any] struct {
	Value T `json:"value"`
}

type encodedAccount struct {
	Data []string `json:"data"`
}

func (a *encodedAccount) decode() ([]byte, error) {
	if len(a.Data) != 2 || a.Data[1] != "base64" {
		return nil, fmt.Errorf("%w: unexpected account encoding %v", types.ErrDecode, a.Data)
	}
	data, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrDecode, err)
	}
	return data, nil
}

type keyedEncodedAccount struct {
	Pubkey  string         `json:"pubkey"`
	Account encodedAccount `json:"account"`
}

type tokenAmount struct {
	Amount string `json:"amount"`
}

type tokenAccountBalance struct {
	Address string `json:"address"`
}

var base64Encoding = map[string]string{"encoding": "base64"}

var requestID atomic.Uint64

// call performs one JSON-RPC round trip. Malformed responses are not retried.
func call[T any](ctx context.Context, httpClient *http.Client, url, method string, params ...any) (T, error) {
	var zero T

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return zero, retry.Unrecoverable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return zero, retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("%s: failed to read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, truncate(raw))
	}

	var out rpcResponse[T]
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, retry.Unrecoverable(fmt.Errorf("%w: %s response: %w", types.ErrDecode, method, err))
	}
	if out.Error != nil {
		return zero, fmt.Errorf("%s: %w", method, out.Error)
	}
	return out.Result, nil
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
