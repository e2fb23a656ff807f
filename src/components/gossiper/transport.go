package gossiper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ugorji/go/codec"
)

// Transport delivers items to a peer. Send runs on the worker pool.
type Transport interface {
	Send(ctx context.Context, peer string, items []Item) error
}

// HTTPTransport posts items as JSON to http://<peer>/gossip.
type HTTPTransport struct {
	client *http.Client
	jh     *codec.JsonHandle
}

// NewHTTPTransport returns an HTTPTransport with the given request timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
		jh:     new(codec.JsonHandle),
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, peer string, items []Item) error {
	var body []byte
	if err := codec.NewEncoderBytes(&body, t.jh).Encode(items); err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+peer+"/gossip", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("peer %s answered %s", peer, resp.Status)
	}
	return nil
}

// DecodeItems decodes a request body written by HTTPTransport.
func DecodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := codec.NewDecoderBytes(data, new(codec.JsonHandle)).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
