package swap

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mimicbot/internal/history"
	"mimicbot/internal/remote"
	"mimicbot/internal/runtime/supervisor"
	"mimicbot/internal/storage"
	logx "mimicbot/pkg/logx"
)

// Directory enumerates the groups the bot belongs to.
// *remote.Client satisfies it.
type Directory interface {
	Groups(ctx context.Context) ([]remote.Group, error)
}

// Settings is the live, reloadable slice of configuration the engine reads
// at the top of every cycle.
type Settings struct {
	Enabled            bool
	MinIntervalMinutes int
	MaxIntervalMinutes int
	Lambda             float64
	Identity           Identity
}

// Deps wires the engine's collaborators.
type Deps struct {
	Log       logx.Logger
	Store     storage.Store
	API       API
	Directory Directory
	History   history.Repo
	Settings  Settings

	// Resync is how often the group directory is re-read to reconcile loops.
	// Default 10m.
	Resync time.Duration

	// Retention prunes history older than this on an hourly sweep.
	// 0 disables pruning.
	Retention time.Duration
}

// Service owns one loop per group, a registry mapping group id to its
// cancellable handle, and the periodic directory resync that reconciles the
// registry as groups appear and vanish.
type Service struct {
	log   logx.Logger
	store storage.Store
	api   API
	dir   Directory
	hist  history.Repo

	ranker   *Ranker
	selector *Selector
	seq      *Sequencer

	uniform func() float64 // interval draw; injectable for tests

	resync    time.Duration
	retention time.Duration

	mu     sync.Mutex
	set    Settings
	groups map[string]*groupHandle

	sup *supervisor.Supervisor
	c   *cron.Cron
}

type groupHandle struct {
	group  remote.Group
	cancel context.CancelFunc
}

func New(deps Deps) *Service {
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	resync := deps.Resync
	if resync <= 0 {
		resync = 10 * time.Minute
	}
	return &Service{
		log:       log,
		store:     deps.Store,
		api:       deps.API,
		dir:       deps.Directory,
		hist:      deps.History,
		ranker:    NewRanker(deps.History, log),
		selector:  NewSelector(log),
		seq:       NewSequencer(deps.API, log),
		uniform:   rand.Float64,
		resync:    resync,
		retention: deps.Retention,
		set:       deps.Settings,
		groups:    map[string]*groupHandle{},
	}
}

// Apply swaps the live settings; loops pick them up on their next cycle.
func (s *Service) Apply(set Settings) {
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
	s.log.Debug("swap settings applied",
		logx.Bool("enabled", set.Enabled),
		logx.Int("min_minutes", set.MinIntervalMinutes),
		logx.Int("max_minutes", set.MaxIntervalMinutes),
		logx.Float64("lambda", set.Lambda))
}

func (s *Service) settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Start enumerates known groups, spawns one loop per group, and schedules
// the periodic directory resync (plus the history retention sweep).
func (s *Service) Start(ctx context.Context) error {
	s.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(s.log))

	if err := s.Resync(s.sup.Context()); err != nil {
		// Not fatal: the remote side may still be coming up; the periodic
		// resync will pick the groups up.
		s.log.Warn("initial group sync failed; will retry on schedule", logx.Err(err))
	}

	s.c = cron.New()
	if _, err := s.c.AddFunc("@every "+s.resync.String(), func() {
		if err := s.Resync(s.sup.Context()); err != nil {
			s.log.Warn("group resync failed", logx.Err(err))
		}
	}); err != nil {
		return err
	}
	if s.hist != nil && s.retention > 0 {
		if _, err := s.c.AddFunc("@every 1h", func() {
			s.pruneHistory(s.sup.Context())
		}); err != nil {
			return err
		}
	}
	s.c.Start()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.c != nil {
		stopped := s.c.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}
	if s.sup != nil {
		return s.sup.Stop(ctx)
	}
	return nil
}

// Resync reconciles running loops against the directory: new groups get a
// loop, vanished groups get theirs cancelled.
func (s *Service) Resync(ctx context.Context) error {
	listed, err := s.dir.Groups(ctx)
	if err != nil {
		return err
	}
	want := make(map[string]remote.Group, len(listed))
	for _, g := range listed {
		if g.GroupID != "" {
			want[g.GroupID] = g
		}
	}

	s.mu.Lock()
	var started, stopped []remote.Group
	for id, h := range s.groups {
		if _, ok := want[id]; !ok {
			h.cancel()
			stopped = append(stopped, h.group)
			delete(s.groups, id)
		}
	}
	for id, g := range want {
		if _, ok := s.groups[id]; ok {
			continue
		}
		gctx, cancel := context.WithCancel(s.sup.Context())
		s.groups[id] = &groupHandle{group: g, cancel: cancel}
		started = append(started, g)
		g := g
		s.sup.GoRestart("swap.group."+id, func(context.Context) error {
			return s.runGroup(gctx, g)
		})
	}
	total := len(s.groups)
	s.mu.Unlock()

	for _, g := range stopped {
		s.log.Info("group removed from directory; loop cancelled", logx.String("group", g.Display()))
	}
	for _, g := range started {
		s.log.Debug("group loop scheduled", logx.String("group", g.Display()))
	}
	if len(started) > 0 || len(stopped) > 0 {
		s.log.Info("group directory synced",
			logx.Int("groups", total),
			logx.Int("added", len(started)),
			logx.Int("removed", len(stopped)))
	}
	return nil
}

// GroupCount reports how many loops are currently registered.
func (s *Service) GroupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

func (s *Service) pruneHistory(ctx context.Context) {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.hist.PruneBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("history prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Debug("history pruned", logx.Int64("removed", n), logx.Time("cutoff", cutoff))
	}
}
