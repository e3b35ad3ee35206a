package assets

import (
	"context"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/connection"
	"github.com/tcmaker/core/internal/domain"
)

// ServerPriority names one (server kind, interface id) entry in a
// series' per-series priority list of media servers to try for its
// episode source images, before falling back to metadata-provider
// ranked search (spec §4.4).
type ServerPriority struct {
	Kind        domain.SourceKind
	InterfaceID int
}

// SelectionPolicy is the episode source-image selection policy of spec
// §4.4: a manual override always wins; otherwise each entry of
// PriorityServers is tried in order; only once every server entry has
// been exhausted does the policy fall back to ranked image-source
// search.
type SelectionPolicy struct {
	ManualOverridePath string
	PriorityServers    []ServerPriority
}

// mediaServers resolves ServerPriority entries against a Registry, in
// priority order, skipping any server kind/instance not currently
// registered and active.
func (p SelectionPolicy) mediaServers(reg *connection.Registry) []connection.MediaServer {
	all := reg.MediaServers.All()
	var out []connection.MediaServer
	for _, entry := range p.PriorityServers {
		for _, srv := range all {
			if !srv.Active() || srv.Kind() != connection.Kind(entry.Kind) {
				continue
			}
			if entry.InterfaceID != 0 && srv.InterfaceID() != entry.InterfaceID {
				continue
			}
			out = append(out, srv)
		}
	}
	return out
}

// SelectSourceImage implements spec §4.4's selection order: manual
// override, then per-series priority servers in order (queried against
// library), then every registered ImageSource (metadata providers)
// ranked by (language priority, pixel area, vote average).
func SelectSourceImage(ctx context.Context, reg *connection.Registry, policy SelectionPolicy, library domain.Library, series *domain.SeriesInfo, episode *domain.EpisodeInfo) ([]byte, error) {
	if policy.ManualOverridePath != "" {
		return readLocal(policy.ManualOverridePath)
	}

	for _, srv := range policy.mediaServers(reg) {
		data, err := srv.GetSourceImage(ctx, library, series, episode)
		if err == nil {
			return data, nil
		}
		if !apperr.Is(err, apperr.NotFound) {
			return nil, err
		}
	}

	for _, src := range reg.ImageSources.All() {
		if !src.Active() {
			continue
		}
		data, err := src.GetSourceImage(ctx, series, episode)
		if err == nil {
			return data, nil
		}
		if !apperr.Is(err, apperr.NotFound) {
			return nil, err
		}
	}

	return nil, apperr.New("assets.SelectSourceImage", apperr.NotFound, nil)
}
