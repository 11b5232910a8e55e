package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"solana-wallet-pnl/internal/domain"
)

// HTTPAPI fetches token metadata from the indexer's token-metadata
// endpoint.
type HTTPAPI struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPAPI creates a metadata service client.
func NewHTTPAPI(baseURL, apiKey string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// tokenMetadataItem is the wire shape of one token-metadata result.
type tokenMetadataItem struct {
	Account            string `json:"account"`
	OnChainAccountInfo struct {
		AccountInfo struct {
			Data struct {
				Parsed struct {
					Info struct {
						Decimals int `json:"decimals"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"accountInfo"`
	} `json:"onChainAccountInfo"`
	OnChainMetadata struct {
		Metadata struct {
			Data struct {
				Name   string `json:"name"`
				Symbol string `json:"symbol"`
			} `json:"data"`
		} `json:"metadata"`
	} `json:"onChainMetadata"`
}

// FetchBatch looks up metadata for up to MaxBatchSize mints. Mints the
// service does not know are omitted from the result.
func (a *HTTPAPI) FetchBatch(ctx context.Context, mints []string) (map[string]domain.TokenMetadata, error) {
	if len(mints) == 0 {
		return nil, nil
	}
	if len(mints) > MaxBatchSize {
		return nil, errors.Errorf("batch size %d exceeds maximum %d", len(mints), MaxBatchSize)
	}

	endpoint := fmt.Sprintf("%s/v0/token-metadata?api-key=%s", a.baseURL, url.QueryEscape(a.apiKey))

	body, err := json.Marshal(map[string]interface{}{
		"mintAccounts":    mints,
		"includeOffChain": false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "http request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var items []tokenMetadataItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	result := make(map[string]domain.TokenMetadata, len(items))
	for _, item := range items {
		symbol := strings.TrimRight(item.OnChainMetadata.Metadata.Data.Symbol, "\x00")
		if symbol == "" {
			continue
		}
		md := domain.TokenMetadata{
			Mint:     item.Account,
			Symbol:   symbol,
			Decimals: item.OnChainAccountInfo.AccountInfo.Data.Parsed.Info.Decimals,
		}
		if name := strings.TrimRight(item.OnChainMetadata.Metadata.Data.Name, "\x00"); name != "" {
			md.Name = &name
		}
		result[item.Account] = md
	}

	return result, nil
}
