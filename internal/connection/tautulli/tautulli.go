// Package tautulli implements the Tautulli connector: watched-state
// polling only, used to corroborate a Plex media-server's own watched
// flags (spec §4.2 lists tautulli as a configurable Connection kind but
// grants it no capability beyond history/watch events). Hand-rolled
// net/http — Tautulli has no SDK in the retrieval pack.
package tautulli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/connection"
)

// Client is the Tautulli connector. It implements connection.Connector
// only — it is registered in no capability Group because spec §4.2
// grants it no {episode-source, media-server, image-source} surface.
type Client struct {
	*connection.Base
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New constructs and activates a Tautulli connector.
func New(ctx context.Context, interfaceID int, baseURL, apiKey string) (*Client, error) {
	c := &Client{
		Base:       connection.NewBase(interfaceID, connection.KindTautulli, connection.DefaultTimeouts, 4),
		httpClient: &http.Client{Timeout: connection.DefaultTimeouts.Request},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}

	err := c.Call(ctx, "tautulli.Activate", func(ctx context.Context) error {
		_, err := c.call(ctx, "status")
		return err
	})
	if err != nil {
		c.SetActive(false)
		return c, &connection.ActivationError{Kind: connection.KindTautulli, InterfaceID: interfaceID, Err: err}
	}
	c.SetActive(true)
	return c, nil
}

func (c *Client) call(ctx context.Context, cmd string) ([]byte, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("cmd", cmd)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2?"+q.Encode(), nil)
	if err != nil {
		return nil, apperr.New("tautulli.call", apperr.Transient, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New("tautulli.call", apperr.Transient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New("tautulli.call", apperr.Transient, err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.New("tautulli.call", apperr.ClassifyStatus(resp.StatusCode), fmt.Errorf("status %d", resp.StatusCode))
	}
	return body, nil
}

// WatchEvent is one entry from Tautulli's watch history: a rating key and
// whether that item was watched.
type WatchEvent struct {
	RatingKey string
	Watched   bool
}

// GetHistory returns recent watch events for ratingKey, if Tautulli knows
// about it.
func (c *Client) GetHistory(ctx context.Context, ratingKey string) ([]WatchEvent, error) {
	var out []WatchEvent
	err := c.Call(ctx, "tautulli.GetHistory", func(ctx context.Context) error {
		body, err := c.call(ctx, "get_history")
		if err != nil {
			return err
		}
		var payload struct {
			Response struct {
				Data struct {
					Data []struct {
						RatingKey string `json:"rating_key"`
						Watched   int    `json:"watched_status"`
					} `json:"data"`
				} `json:"data"`
			} `json:"response"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return apperr.New("tautulli.GetHistory", apperr.Transient, err)
		}
		for _, row := range payload.Response.Data.Data {
			if row.RatingKey != ratingKey {
				continue
			}
			out = append(out, WatchEvent{RatingKey: row.RatingKey, Watched: row.Watched == 1})
		}
		return nil
	})
	return out, err
}
