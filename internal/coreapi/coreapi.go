// Package coreapi is the thin facade spec.md §6 describes as "the core
// exposes these as in-process operations with the same names and
// semantics" for the out-of-scope external HTTP layer to import. It
// contains no HTTP framework code: every method here is a direct
// pass-through to the package that actually owns the behavior, so the
// external API layer has one stable, narrow surface to call instead of
// reaching into internal/* directly.
package coreapi

import (
	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/blueprint"
	"github.com/tcmaker/core/internal/domain"
	"github.com/tcmaker/core/internal/scheduler"
)

// EntityStore is the CRUD seam over the entities of spec §3. The
// relational store behind it is out of scope (spec §1); a concrete
// implementation backs this onto whatever transactional store holds the
// entity graph.
type EntityStore interface {
	Series(id uint64) (*domain.Series, error)
	ListSeries() ([]*domain.Series, error)
	CreateSeries(s *domain.Series) (uint64, error)
	UpdateSeries(s *domain.Series) error
	DeleteSeries(id uint64) error

	Episode(id uint64) (*domain.Episode, error)
	ListEpisodes(seriesID uint64) ([]*domain.Episode, error)
	UpdateEpisode(e *domain.Episode) error

	Font(id uint64) (*domain.Font, error)
	ListFonts() ([]*domain.Font, error)
	CreateFont(f *domain.Font) (uint64, error)
	UpdateFont(f *domain.Font) error
	DeleteFont(id uint64) error

	Template(id uint64) (*domain.Template, error)
	ListTemplates() ([]*domain.Template, error)
	CreateTemplate(t *domain.Template) (uint64, error)
	UpdateTemplate(t *domain.Template) error
	DeleteTemplate(id uint64) error
}

// API bundles the collaborators coreapi's operations delegate to.
type API struct {
	Entities   EntityStore
	Scheduler  *scheduler.Scheduler
	Blueprints blueprint.Store
	FontWriter blueprint.FontWriter
}

// New constructs an API facade over its collaborators.
func New(entities EntityStore, sched *scheduler.Scheduler, blueprints blueprint.Store, fontWriter blueprint.FontWriter) *API {
	return &API{Entities: entities, Scheduler: sched, Blueprints: blueprints, FontWriter: fontWriter}
}

// -- Series CRUD --

func (a *API) GetSeries(id uint64) (*domain.Series, error)      { return a.Entities.Series(id) }
func (a *API) ListSeries() ([]*domain.Series, error)            { return a.Entities.ListSeries() }
func (a *API) CreateSeries(s *domain.Series) (uint64, error)    { return a.Entities.CreateSeries(s) }
func (a *API) UpdateSeries(s *domain.Series) error              { return a.Entities.UpdateSeries(s) }
func (a *API) DeleteSeries(id uint64) error                     { return a.Entities.DeleteSeries(id) }

// -- Episode CRUD (read + override update only; episodes are otherwise
// discovered and reconciled by the sync job, not hand-created) --

func (a *API) GetEpisode(id uint64) (*domain.Episode, error) { return a.Entities.Episode(id) }
func (a *API) ListEpisodes(seriesID uint64) ([]*domain.Episode, error) {
	return a.Entities.ListEpisodes(seriesID)
}
func (a *API) UpdateEpisode(e *domain.Episode) error { return a.Entities.UpdateEpisode(e) }

// -- Font CRUD --

func (a *API) GetFont(id uint64) (*domain.Font, error)   { return a.Entities.Font(id) }
func (a *API) ListFonts() ([]*domain.Font, error)        { return a.Entities.ListFonts() }
func (a *API) CreateFont(f *domain.Font) (uint64, error) { return a.Entities.CreateFont(f) }
func (a *API) UpdateFont(f *domain.Font) error           { return a.Entities.UpdateFont(f) }
func (a *API) DeleteFont(id uint64) error                { return a.Entities.DeleteFont(id) }

// -- Template CRUD --

func (a *API) GetTemplate(id uint64) (*domain.Template, error) { return a.Entities.Template(id) }
func (a *API) ListTemplates() ([]*domain.Template, error)      { return a.Entities.ListTemplates() }
func (a *API) CreateTemplate(t *domain.Template) (uint64, error) {
	return a.Entities.CreateTemplate(t)
}
func (a *API) UpdateTemplate(t *domain.Template) error { return a.Entities.UpdateTemplate(t) }
func (a *API) DeleteTemplate(id uint64) error          { return a.Entities.DeleteTemplate(id) }

// -- Blueprint export/import (spec §4.9) --

func (a *API) ExportBlueprint(seriesID uint64, opts blueprint.ExportOptions) (*blueprint.Document, map[string][]byte, error) {
	return blueprint.Export(a.Blueprints, seriesID, opts)
}

func (a *API) ImportBlueprint(seriesID uint64, doc *blueprint.Document, fontFiles map[string][]byte) (blueprint.Result, error) {
	return blueprint.Import(a.Blueprints, a.FontWriter, seriesID, doc, fontFiles)
}

// -- Scheduler job triggers (spec §4.8/§6: "trigger endpoints for every
// Scheduler job") --

// TriggerJob invokes jobName out-of-band, subject to the same
// at-most-one-instance lock as its own crontab firing.
func (a *API) TriggerJob(jobName string) error {
	if a.Scheduler == nil {
		return apperr.New("coreapi.TriggerJob", apperr.NotFound, nil)
	}
	return a.Scheduler.TriggerNow(jobName)
}

// JobRecord returns the last recorded run of jobName, for a status
// endpoint.
func (a *API) JobRecord(jobName string) (scheduler.Record, bool) {
	if a.Scheduler == nil {
		return scheduler.Record{}, false
	}
	return a.Scheduler.Registry().Get(jobName)
}
