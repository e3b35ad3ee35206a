package cardtype

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// Loader resolves a card-type identifier to a CardType, caching Remote
// loads by identifier so a repeated reference doesn't re-fetch its
// manifest (spec §4.6).
type Loader struct {
	logger      zerolog.Logger
	httpClient  *http.Client
	repoBaseURL string
	cacheDir    string

	mu     sync.RWMutex
	locals map[string]CardType
	remote map[string]CardType
}

// NewLoader constructs a Loader; local built-ins are registered via
// RegisterLocal before the first Get call.
func NewLoader(logger zerolog.Logger, httpClient *http.Client, repoBaseURL, cacheDir string) *Loader {
	return &Loader{
		logger:      logger,
		httpClient:  httpClient,
		repoBaseURL: repoBaseURL,
		cacheDir:    cacheDir,
		locals:      make(map[string]CardType),
		remote:      make(map[string]CardType),
	}
}

// RegisterLocal installs a built-in CardType under its own Name().
func (l *Loader) RegisterLocal(ct CardType) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locals[ct.Name()] = ct
}

// Get implements spec §4.6's `get(identifier) -> CardType | nil`:
// returns nil with a logged error for unknown identifiers, rather than
// an error return, matching the plugin-lookup contract callers expect.
func (l *Loader) Get(ctx context.Context, identifier string) CardType {
	id := ParseIdentifier(identifier)

	if !id.IsRemote() {
		l.mu.RLock()
		ct, ok := l.locals[id.ClassName]
		l.mu.RUnlock()
		if !ok {
			l.logger.Error().Str("card_type", identifier).Msg("unknown local card type")
			return nil
		}
		return ct
	}

	l.mu.RLock()
	cached, ok := l.remote[id.String()]
	l.mu.RUnlock()
	if ok {
		return cached
	}

	ct, err := Load(ctx, l.httpClient, l.repoBaseURL, l.cacheDir, id)
	if err != nil {
		l.logger.Error().Err(err).Str("card_type", identifier).Msg("failed to load remote card type")
		return nil
	}

	l.mu.Lock()
	l.remote[id.String()] = ct
	l.mu.Unlock()
	return ct
}
