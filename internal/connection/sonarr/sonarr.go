// Package sonarr implements the Sonarr connector: an episode-source and
// sync-source capability backed by github.com/devopsarr/sonarr-go, the
// same SDK and request-construction idiom as the teacher's
// client/automation/sonarr/client.go.
package sonarr

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonarrsdk "github.com/devopsarr/sonarr-go/sonarr"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/domain"
)

// Client is the Sonarr connector. URL is normalized to end in /api/v3/
// per spec §4.2; series IDs are namespaced "<interface_id>:<sonarr_id>"
// so multiple Sonarr instances never collide on a bare integer id.
type Client struct {
	*connection.Base
	sdk *sonarrsdk.APIClient
}

// New constructs and activates a Sonarr connector against baseURL with
// apiKey. Activation performs a system-status probe; failure returns the
// client with Active()==false and an *connection.ActivationError.
func New(ctx context.Context, interfaceID int, baseURL, apiKey string) (*Client, error) {
	url := normalizeBaseURL(baseURL)

	cfg := sonarrsdk.NewConfiguration()
	cfg.AddDefaultHeader("X-Api-Key", apiKey)
	cfg.Servers = sonarrsdk.ServerConfigurations{{URL: strings.TrimSuffix(url, "/api/v3/")}}

	c := &Client{
		Base: connection.NewBase(interfaceID, connection.KindSonarr, connection.DefaultTimeouts, 4),
		sdk:  sonarrsdk.NewAPIClient(cfg),
	}

	err := c.Call(ctx, "sonarr.Activate", func(ctx context.Context) error {
		_, resp, err := c.sdk.SystemAPI.GetSystemStatus(ctx).Execute()
		if err != nil {
			return classifyHTTP(resp, err)
		}
		return nil
	})
	if err != nil {
		c.SetActive(false)
		return c, &connection.ActivationError{Kind: connection.KindSonarr, InterfaceID: interfaceID, Err: err}
	}
	c.SetActive(true)
	return c, nil
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/api/v3") {
		base += "/api/v3"
	}
	return base + "/"
}

// NamespacedID returns the "<interface_id>:<sonarr_id>" form spec §4.2
// requires for Sonarr series IDs.
func (c *Client) NamespacedID(sonarrID int32) string {
	return fmt.Sprintf("%d:%d", c.InterfaceID(), sonarrID)
}

// ParseNamespacedID splits a namespaced Sonarr ID back into its
// interface id and raw Sonarr series id.
func ParseNamespacedID(namespaced string) (interfaceID int, sonarrID int32, ok bool) {
	parts := strings.SplitN(namespaced, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	iid, err1 := strconv.Atoi(parts[0])
	sid, err2 := strconv.ParseInt(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return iid, int32(sid), true
}

// QueryAllSeries implements connection.SyncSource: every series Sonarr
// currently tracks, for the `sync` job.
func (c *Client) QueryAllSeries(ctx context.Context, library domain.Library) ([]*domain.SeriesInfo, error) {
	var out []*domain.SeriesInfo
	err := c.Call(ctx, "sonarr.QueryAllSeries", func(ctx context.Context) error {
		series, resp, err := c.sdk.SeriesAPI.ListSeries(ctx).Execute()
		if err != nil {
			return classifyHTTP(resp, err)
		}
		out = make([]*domain.SeriesInfo, 0, len(series))
		for _, s := range series {
			info := domain.NewSeriesInfo(s.GetTitle(), int(s.GetYear()))
			info.IDs[domain.IDKey{Kind: domain.SourceSonarr, Instance: strconv.Itoa(c.InterfaceID())}] =
				c.NamespacedID(s.GetId())
			if tvdbID := s.GetTvdbId(); tvdbID != 0 {
				info.IDs[domain.IDKey{Kind: domain.SourceTVDb}] = strconv.FormatInt(int64(tvdbID), 10)
			}
			if imdbID := s.GetImdbId(); imdbID != "" {
				info.IDs[domain.IDKey{Kind: domain.SourceIMDb}] = imdbID
			}
			out = append(out, info)
		}
		return nil
	})
	return out, err
}

// SetSeriesIDs implements connection.EpisodeSource: resolves series.IDs
// against Sonarr's own lookup-by-term endpoint and fills the Sonarr ID if
// missing (spec §4.1 merge_ids semantics apply at the caller).
func (c *Client) SetSeriesIDs(ctx context.Context, library domain.Library, series *domain.SeriesInfo) error {
	return c.Call(ctx, "sonarr.SetSeriesIDs", func(ctx context.Context) error {
		results, resp, err := c.sdk.SeriesLookupAPI.ListSeriesLookup(ctx).Term(series.Name).Execute()
		if err != nil {
			return classifyHTTP(resp, err)
		}
		for _, r := range results {
			if domain.MatchName(r.GetTitle()) != series.MatchName() {
				continue
			}
			key := domain.IDKey{Kind: domain.SourceSonarr, Instance: strconv.Itoa(c.InterfaceID())}
			if series.IDs[key] == "" {
				series.IDs[key] = c.NamespacedID(r.GetId())
			}
			return nil
		}
		return apperr.New("sonarr.SetSeriesIDs", apperr.NotFound, fmt.Errorf("no sonarr match for %q", series.Name))
	})
}

// SetEpisodeIDs implements connection.EpisodeSource.
func (c *Client) SetEpisodeIDs(ctx context.Context, library domain.Library, series *domain.SeriesInfo, episodes []*domain.EpisodeInfo) error {
	_, sonarrID, ok := ParseNamespacedID(series.IDs[domain.IDKey{Kind: domain.SourceSonarr, Instance: strconv.Itoa(c.InterfaceID())}])
	if !ok {
		return apperr.New("sonarr.SetEpisodeIDs", apperr.NotFound, fmt.Errorf("series has no sonarr id"))
	}

	return c.Call(ctx, "sonarr.SetEpisodeIDs", func(ctx context.Context) error {
		sid := sonarrID
		remote, resp, err := c.sdk.EpisodeAPI.ListEpisode(ctx).SeriesId(sid).Execute()
		if err != nil {
			return classifyHTTP(resp, err)
		}
		byKey := make(map[[2]int32]sonarrsdk.EpisodeResource, len(remote))
		for _, e := range remote {
			byKey[[2]int32{e.GetSeasonNumber(), e.GetEpisodeNumber()}] = e
		}
		for _, ep := range episodes {
			if e, ok := byKey[[2]int32{int32(ep.SeasonNumber), int32(ep.EpisodeNumber)}]; ok {
				ep.IDs[domain.IDKey{Kind: domain.SourceSonarr, Instance: strconv.Itoa(c.InterfaceID())}] =
					strconv.FormatInt(int64(e.GetId()), 10)
			}
		}
		return nil
	})
}

// GetAllEpisodes implements connection.EpisodeSource. Sonarr itself is
// not a watched-state source: WatchedStatus is always zero-valued here
// and reconciled from a real media-server connector instead.
func (c *Client) GetAllEpisodes(ctx context.Context, library domain.Library, series *domain.SeriesInfo) ([]connection.EpisodeWithWatched, error) {
	_, sonarrID, ok := ParseNamespacedID(series.IDs[domain.IDKey{Kind: domain.SourceSonarr, Instance: strconv.Itoa(c.InterfaceID())}])
	if !ok {
		return nil, apperr.New("sonarr.GetAllEpisodes", apperr.NotFound, fmt.Errorf("series has no sonarr id"))
	}

	var out []connection.EpisodeWithWatched
	err := c.Call(ctx, "sonarr.GetAllEpisodes", func(ctx context.Context) error {
		remote, resp, err := c.sdk.EpisodeAPI.ListEpisode(ctx).SeriesId(sonarrID).Execute()
		if err != nil {
			return classifyHTTP(resp, err)
		}
		out = make([]connection.EpisodeWithWatched, 0, len(remote))
		for _, e := range remote {
			info := &domain.EpisodeInfo{
				Series:        series,
				Title:         e.GetTitle(),
				SeasonNumber:  int(e.GetSeasonNumber()),
				EpisodeNumber: int(e.GetEpisodeNumber()),
				IDs: domain.IDSet{
					{Kind: domain.SourceSonarr, Instance: strconv.Itoa(c.InterfaceID())}: strconv.FormatInt(int64(e.GetId()), 10),
				},
			}
			out = append(out, connection.EpisodeWithWatched{Info: info})
		}
		return nil
	})
	return out, err
}

// QuerySeries implements connection.EpisodeSource.
func (c *Client) QuerySeries(ctx context.Context, text string) ([]connection.SearchResult, error) {
	var out []connection.SearchResult
	err := c.Call(ctx, "sonarr.QuerySeries", func(ctx context.Context) error {
		results, resp, err := c.sdk.SeriesLookupAPI.ListSeriesLookup(ctx).Term(text).Execute()
		if err != nil {
			return classifyHTTP(resp, err)
		}
		out = make([]connection.SearchResult, 0, len(results))
		for _, r := range results {
			info := domain.NewSeriesInfo(r.GetTitle(), int(r.GetYear()))
			out = append(out, connection.SearchResult{Info: info, Score: 1})
		}
		return nil
	})
	return out, err
}

func classifyHTTP(resp *http.Response, err error) error {
	// devopsarr SDKs return *http.Response as the second value; classify
	// on its status code when present so apperr matches spec §7 (401/403
	// AuthError, 404 NotFound, 5xx Transient).
	if resp != nil {
		return apperr.New("sonarr", apperr.ClassifyStatus(resp.StatusCode), err)
	}
	return apperr.New("sonarr", apperr.Transient, err)
}
