package btcc

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	ierr "github.com/kanekoshoyu/guilder/internal/errors"
)

const (
	baseURL    = "https://spotapi2.btcccdn.com"
	baseURLDev = "https://spot.cryptouat.com:9910"

	baseWsURL    = "wss://spotprice2.btcccdn.com/ws"
	baseWsURLDev = "wss://spot.cryptouat.com:8700/ws"

	pathPlaceLimit  = "/btcc_api_trade/order/limit"
	pathCancelOrder = "/btcc_api_trade/order/cancel"
	pathMarketList  = "/btcc_api_trade/market/list"
	pathServerTime  = "/btcc_api_trade/common/time"

	restTimeout = 15 * time.Second
)

type restClient struct {
	base   string
	key    string
	secret string
	client *http.Client
}

// sign hashes the sorted k=v parameter string with the secret appended.
// The venue checks the digest against the authorization header.
func (c *restClient) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params)+1)
	for k, v := range params {
		pairs = append(pairs, k+"="+v)
	}
	pairs = append(pairs, "secret_key="+c.secret)
	sort.Strings(pairs)

	hash := md5.Sum([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(hash[:])
}

func post[T any](ctx context.Context, c *restClient, path string, params map[string]string) (T, error) {
	var zero T

	payload, err := sonic.ConfigFastest.Marshal(params)
	if err != nil {
		return zero, ierr.Wrap(err, "marshal request")
	}

	ctx, cancel := context.WithTimeout(ctx, restTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return zero, ierr.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", c.sign(params))

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, ierr.Wrapf(err, "post, path: %s", path)
	}
	defer resp.Body.Close()

	var envelope restResponse[T]
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return zero, ierr.Wrap(err, "decode response")
	}
	if err := envelope.err(); err != nil {
		return zero, ierr.Wrapf(err, "request rejected, path: %s", path)
	}

	return envelope.Data, nil
}
