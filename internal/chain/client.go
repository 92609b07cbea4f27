package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotAnchored is returned when the gateway has no issuance record for the
// certificate.
var ErrNotAnchored = errors.New("certificate not anchored on chain")

// Attestation is the issuance record the anchoring gateway reports for a
// certificate UUID.
type Attestation struct {
	Issuer          string    `json:"issuer"`
	Student         string    `json:"student"`
	IssuedAt        time.Time `json:"issued_at"`
	TxHash          string    `json:"tx_hash"`
	ContractAddress string    `json:"contract_address"`
}

// Client reads issuance records from the smart-contract gateway. The actual
// contract interaction lives behind the gateway; this client only fetches
// and decodes. The timeout bounds every call so a hanging chain node cannot
// stall the caller.
type Client struct {
	baseURL         string
	contractAddress string
	http            *http.Client
}

// New constructs a gateway client. An empty baseURL yields a client whose
// lookups always report ErrNotAnchored, which callers absorb into
// onchain:false.
func New(baseURL, contractAddress string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:         baseURL,
		contractAddress: contractAddress,
		http:            &http.Client{Timeout: timeout},
	}
}

// Lookup fetches the on-chain issuance record for a certificate UUID.
func (c *Client) Lookup(ctx context.Context, certUUID string) (*Attestation, error) {
	if c.baseURL == "" {
		return nil, ErrNotAnchored
	}

	endpoint := fmt.Sprintf("%s/contracts/%s/certificates/%s",
		c.baseURL, url.PathEscape(c.contractAddress), url.PathEscape(certUUID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotAnchored
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chain gateway status %d: %s", resp.StatusCode, string(body))
	}

	var att Attestation
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return nil, fmt.Errorf("decode attestation: %w", err)
	}
	if att.ContractAddress == "" {
		att.ContractAddress = c.contractAddress
	}
	return &att, nil
}
