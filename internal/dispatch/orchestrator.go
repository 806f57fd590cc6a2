package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runoshun/crew-board/internal/domain"
)

// Options holds the collaborators of an Orchestrator.
// Observer, Clock and Notifier default to no-op implementations.
type Options struct {
	Tasks     domain.TaskStore
	Projects  domain.ProjectStore
	Worktrees domain.WorktreeManager
	Sessions  domain.SessionManager
	Notifier  domain.Notifier
	Logger    domain.Logger
	Observer  Observer
	Scripts   ScriptWriter
	Clock     domain.Clock
	Registry  *Registry
	Config    *domain.Config
}

// settings are the reloadable parts of the configuration.
type settings struct {
	agent         domain.AgentConfig
	dispatch      domain.DispatchConfig
	notifyTimeout time.Duration
}

// Orchestrator owns task status transitions and everything they trigger:
// dispatching sessions, aborting them, merging and removing worktrees,
// notifications and queue processing.
// Fields are ordered to minimize memory padding.
type Orchestrator struct {
	tasks     domain.TaskStore
	projects  domain.ProjectStore
	worktrees domain.WorktreeManager
	sessions  domain.SessionManager
	notifier  domain.Notifier
	logger    domain.Logger
	observer  Observer
	scripts   ScriptWriter
	clock     domain.Clock
	registry  *Registry
	cleanup   *CleanupScheduler
	queues    *keyedMutex
	cfg       settings
	bg        sync.WaitGroup
	mu        sync.RWMutex
	closed    atomic.Bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	cfg := opts.Config
	if cfg == nil {
		cfg = domain.NewDefaultConfig()
	}
	o := &Orchestrator{
		tasks:     opts.Tasks,
		projects:  opts.Projects,
		worktrees: opts.Worktrees,
		sessions:  opts.Sessions,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		observer:  opts.Observer,
		scripts:   opts.Scripts,
		clock:     opts.Clock,
		registry:  opts.Registry,
		queues:    newKeyedMutex(),
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	if o.clock == nil {
		o.clock = domain.RealClock{}
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.logger == nil {
		o.logger = nopLogger{}
	}
	o.cfg = settingsFrom(cfg)
	o.cleanup = NewCleanupScheduler(cfg.Dispatch.CleanupGrace.Std(), o.runCleanup)
	return o
}

func settingsFrom(cfg *domain.Config) settings {
	return settings{
		agent:         cfg.Agent,
		dispatch:      cfg.Dispatch,
		notifyTimeout: cfg.Notify.Timeout.Std(),
	}
}

// Reload applies reloaded dispatch, agent and notify settings.
// Pending cleanups keep their original grace period.
func (o *Orchestrator) Reload(cfg *domain.Config) {
	o.mu.Lock()
	o.cfg = settingsFrom(cfg)
	o.mu.Unlock()
	o.cleanup.SetGrace(cfg.Dispatch.CleanupGrace.Std())
	o.logger.Info("", "config", "reloaded dispatch settings")
}

func (o *Orchestrator) current() settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

func (o *Orchestrator) timeout() time.Duration {
	if d := o.current().dispatch.Timeout.Std(); d > 0 {
		return d
	}
	return domain.DefaultTimeout
}

// Registry returns the active-dispatch registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Cleanup returns the cleanup scheduler.
func (o *Orchestrator) Cleanup() *CleanupScheduler {
	return o.cleanup
}

// TransitionResult is the outcome of a task update.
// A failed dispatch does not fail the transition; it is reported in DispatchErr.
// Fields are ordered to minimize memory padding.
type TransitionResult struct {
	Task        *domain.Task
	Merge       *domain.MergeResult // Set when a merge was attempted
	DispatchErr error
	Kind        domain.TransitionKind
	Dispatched  bool
}

// Transition writes a partial task update and performs the side effects of
// the resulting status change.
func (o *Orchestrator) Transition(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (*TransitionResult, error) {
	if patch.IsEmpty() {
		return nil, domain.ErrNoFieldsToUpdate
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, *patch.Status)
	}

	project, err := o.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	prev, err := o.getTask(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}

	tr := domain.Transition{From: prev.Status, To: prev.Status}
	if patch.Status != nil {
		tr.To = *patch.Status
	}
	kind := tr.Classify()

	switch kind {
	case domain.TransitionStart:
		patch.Dispatched = domain.Ptr(false)
		patch.Locked = domain.Ptr(true)
	case domain.TransitionReset:
		patch.Findings = domain.Ptr("")
		patch.HumanSteps = domain.Ptr("")
		patch.AgentLog = domain.Ptr("")
		patch.Dispatched = domain.Ptr(false)
		patch.Locked = domain.Ptr(false)
	}
	if tr.From != tr.To && tr.To.Reactivates() {
		if o.cleanup.Cancel(taskID) {
			o.logger.Info(taskID, "cleanup", "cancelled pending cleanup")
		}
	}

	task, err := o.tasks.UpdateTask(ctx, projectID, taskID, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	// The status is committed. Side effects no longer follow the caller's cancellation.
	ctx = context.WithoutCancel(ctx)
	if tr.From != tr.To {
		o.observer.TransitionObserved(tr.From, tr.To)
		o.logger.Info(taskID, "transition", fmt.Sprintf("%s -> %s (%s)", tr.From, tr.To, kind))
	}

	res := &TransitionResult{Task: task, Kind: kind}
	switch kind {
	case domain.TransitionStart:
		res.Dispatched, res.DispatchErr = o.dispatchIfFree(ctx, project, task)
	case domain.TransitionReset:
		if tr.From == domain.StatusInProgress || tr.From == domain.StatusVerify {
			o.Abort(projectID, taskID)
		}
		o.reprocess(ctx, projectID)
	case domain.TransitionFinish:
		res.Merge = o.finish(ctx, project, task)
		o.notifyAsync(fmt.Sprintf("✅ *%s* → %s", task.Title, tr.To))
		if tr.To == domain.StatusDone {
			o.Abort(projectID, taskID)
			o.cleanup.Schedule(projectID, taskID)
		}
		o.reprocess(ctx, projectID)
	case domain.TransitionClose:
		o.cleanup.Schedule(projectID, taskID)
		o.Abort(projectID, taskID)
		o.reprocess(ctx, projectID)
	case domain.TransitionCloseUnstarted:
		o.cleanup.Schedule(projectID, taskID)
	}

	// Reflect writes made by dispatch or merge.
	if kind != domain.TransitionNone {
		if fresh, err := o.tasks.GetTask(ctx, projectID, taskID); err == nil && fresh != nil {
			res.Task = fresh
		}
	}
	return res, nil
}

// finish merges the task branch and records a conflict in the findings.
func (o *Orchestrator) finish(ctx context.Context, project *domain.Project, task *domain.Task) *domain.MergeResult {
	shortID := task.ShortID()
	if !o.worktrees.Exists(shortID) {
		o.observer.MergeFinished(ResultSkipped)
		return nil
	}

	var result domain.MergeResult
	label := ResultConflict
	if !project.PathValid() {
		label = ResultSkipped
		result = domain.Conflict(fmt.Sprintf("merge skipped: project path %s is not a directory", project.Path))
	} else {
		mctx, cancel := context.WithTimeout(ctx, o.timeout())
		merged, err := o.worktrees.Merge(mctx, project.ResolvedPath(), shortID, fmt.Sprintf("Merge task %s: %s", shortID, task.Title))
		cancel()
		if err != nil {
			label = ResultError
			result = domain.Conflict(fmt.Sprintf("merge failed: %v", err))
		} else {
			result = merged
		}
	}

	if !result.IsConflict() {
		o.observer.MergeFinished(ResultMerged)
		o.logger.Info(task.ID, "merge", "merged "+shortID)
		return &result
	}

	o.observer.MergeFinished(label)
	o.logger.Warn(task.ID, "merge", result.ConflictMsg)
	findings := task.AppendFindings(result.ConflictMsg)
	wctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()
	if _, err := o.tasks.UpdateTask(wctx, task.ProjectID, task.ID, domain.TaskPatch{Findings: &findings}); err != nil {
		o.logger.Error(task.ID, "merge", fmt.Sprintf("record conflict: %v", err))
	}
	return &result
}

// DispatchNow dispatches a queued task regardless of free slots.
func (o *Orchestrator) DispatchNow(ctx context.Context, projectID, taskID string) (domain.SessionHandle, error) {
	unlock := o.queues.Lock(projectID)
	defer unlock()

	project, err := o.getProject(ctx, projectID)
	if err != nil {
		return domain.SessionHandle{}, err
	}
	task, err := o.getTask(ctx, projectID, taskID)
	if err != nil {
		return domain.SessionHandle{}, err
	}
	if !task.IsQueued() {
		return domain.SessionHandle{}, domain.ErrTaskNotQueued
	}
	if o.registry.Has(taskID) {
		return domain.SessionHandle{}, domain.ErrAlreadyDispatched
	}
	return o.dispatch(ctx, project, task)
}

// ShouldDispatch returns true if the project's policy has a free slot.
func (o *Orchestrator) ShouldDispatch(ctx context.Context, projectID string) (bool, error) {
	project, err := o.getProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	cols, err := o.tasks.ListTasks(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("list tasks: %w", err)
	}
	policy := PolicyFor(o.current().dispatch, project)
	return policy.Allows(occupiedSlots(o.registry.TaskIDs(projectID), cols)), nil
}

// ProcessQueue dispatches queued tasks of a project in creation order until
// the policy has no free slot. It returns the number of dispatched tasks.
func (o *Orchestrator) ProcessQueue(ctx context.Context, projectID string) (int, error) {
	unlock := o.queues.Lock(projectID)
	defer unlock()

	project, err := o.getProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	cols, err := o.tasks.ListTasks(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}

	policy := PolicyFor(o.current().dispatch, project)
	free := policy.Free(occupiedSlots(o.registry.TaskIDs(projectID), cols))
	dispatched := 0
	for _, task := range cols[domain.StatusInProgress] {
		if free == 0 {
			break
		}
		if !task.IsQueued() || o.registry.Has(task.ID) {
			continue
		}
		if _, err := o.dispatch(ctx, project, task); err != nil {
			// The task stays queued and is retried on the next pass.
			o.logger.Warn(task.ID, "queue", fmt.Sprintf("dispatch failed: %v", err))
			continue
		}
		dispatched++
		free--
	}
	return dispatched, nil
}

// dispatchIfFree dispatches the task if the project has a free slot.
func (o *Orchestrator) dispatchIfFree(ctx context.Context, project *domain.Project, task *domain.Task) (bool, error) {
	unlock := o.queues.Lock(project.ID)
	defer unlock()

	cols, err := o.tasks.ListTasks(ctx, project.ID)
	if err != nil {
		return false, fmt.Errorf("list tasks: %w", err)
	}
	policy := PolicyFor(o.current().dispatch, project)
	// The task itself is in progress already and must not count against its own slot.
	recorded := o.registry.TaskIDs(project.ID)
	if !policy.Allows(occupiedSlots(without(recorded, task.ID), cols)) {
		o.logger.Info(task.ID, "queue", "no free slot, task queued")
		return false, nil
	}
	if _, err := o.dispatch(ctx, project, task); err != nil {
		return false, err
	}
	return true, nil
}

// dispatch runs the task in a new session. Callers hold the project's queue lock.
// On failure the record is released and dispatched is rolled back to false.
func (o *Orchestrator) dispatch(ctx context.Context, project *domain.Project, task *domain.Task) (domain.SessionHandle, error) {
	if !o.registry.Reserve(project.ID, task.ID) {
		return domain.SessionHandle{}, domain.ErrAlreadyDispatched
	}

	handle, err := o.launch(ctx, project, task)
	if err != nil {
		o.registry.Release(task.ID)
		o.rollbackDispatched(ctx, task)
		result := ResultFailure
		if errors.Is(err, domain.ErrDispatchTimeout) {
			result = ResultTimeout
		}
		o.observer.DispatchFinished(result)
		o.logger.Error(task.ID, "dispatch", err.Error())
		return domain.SessionHandle{}, err
	}

	if !o.registry.Activate(handle) {
		// Released while the session was starting, e.g. by an agent that
		// exited at once. The kill completes before the task can be
		// dispatched again under the same session name.
		o.killNow(ctx, task.ID, handle.TabID)
		o.rollbackDispatched(ctx, task)
		o.observer.DispatchFinished(ResultFailure)
		o.logger.Warn(task.ID, "dispatch", "session "+handle.TabID+" ended before it was registered")
		return domain.SessionHandle{}, domain.ErrDispatchAborted
	}
	o.observer.DispatchFinished(ResultSuccess)
	o.observer.SessionsActive(len(o.registry.Active()))
	o.logger.Info(task.ID, "dispatch", fmt.Sprintf("dispatched in %s (session %s)", handle.Dir, handle.TabID))
	return handle, nil
}

// launch creates the worktree and spawns the session, bounded by the timeout.
func (o *Orchestrator) launch(ctx context.Context, project *domain.Project, task *domain.Task) (domain.SessionHandle, error) {
	if !project.PathValid() {
		return domain.SessionHandle{}, fmt.Errorf("%w: %s", domain.ErrProjectPathInvalid, project.Path)
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	if _, err := o.tasks.UpdateTask(ctx, project.ID, task.ID, domain.TaskPatch{Dispatched: domain.Ptr(true)}); err != nil {
		return domain.SessionHandle{}, timeoutErr(ctx, fmt.Errorf("mark dispatched: %w", err))
	}

	wt, err := o.worktrees.Create(ctx, project.ResolvedPath(), task.ShortID())
	if err != nil {
		return domain.SessionHandle{}, timeoutErr(ctx, fmt.Errorf("create worktree: %w", err))
	}

	script, err := o.scripts.Write(project, task, wt, o.current().agent)
	if err != nil {
		return domain.SessionHandle{}, fmt.Errorf("write script: %w", err)
	}

	tabID := domain.TabID(task.ID)
	err = o.sessions.SpawnPty(ctx, tabID, script, wt)
	if errors.Is(err, domain.ErrSessionRunning) {
		// A leftover session of an earlier run holds the name.
		o.logger.Warn(task.ID, "dispatch", "replacing leftover session "+tabID)
		if kerr := o.sessions.Kill(ctx, tabID); kerr != nil {
			return domain.SessionHandle{}, fmt.Errorf("kill leftover session: %w", kerr)
		}
		err = o.sessions.SpawnPty(ctx, tabID, script, wt)
	}
	if err != nil {
		o.scripts.Remove(task.ID)
		return domain.SessionHandle{}, timeoutErr(ctx, fmt.Errorf("spawn session: %w", err))
	}

	return domain.SessionHandle{
		Started:   o.clock.Now(),
		TabID:     tabID,
		TaskID:    task.ID,
		ProjectID: project.ID,
		Dir:       wt,
	}, nil
}

func (o *Orchestrator) rollbackDispatched(ctx context.Context, task *domain.Task) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout())
	defer cancel()
	if _, err := o.tasks.UpdateTask(ctx, task.ProjectID, task.ID, domain.TaskPatch{Dispatched: domain.Ptr(false)}); err != nil {
		o.logger.Error(task.ID, "dispatch", fmt.Sprintf("rollback dispatched flag: %v", err))
	}
}

// timeoutErr marks err as a timeout if ctx expired.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrDispatchTimeout, err)
	}
	return err
}

// Abort releases the task's record and terminates its session in the
// background. Returns false if the task had no record.
func (o *Orchestrator) Abort(projectID, taskID string) bool {
	rec, ok := o.registry.Release(taskID)
	if !ok {
		return false
	}
	tabID := rec.Handle.TabID
	if tabID == "" {
		tabID = domain.TabID(taskID)
	}
	o.observer.SessionsActive(len(o.registry.Active()))
	o.logger.Info(taskID, "abort", fmt.Sprintf("aborting session %s of project %s", tabID, projectID))
	if rec.Active {
		o.killAsync(taskID, tabID)
	}
	return true
}

func (o *Orchestrator) killNow(ctx context.Context, taskID, tabID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout())
	defer cancel()
	if err := o.sessions.Kill(ctx, tabID); err != nil {
		o.logger.Warn(taskID, "dispatch", fmt.Sprintf("kill session %s: %v", tabID, err))
	}
}

func (o *Orchestrator) killAsync(taskID, tabID string) {
	o.detach(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, o.timeout())
		defer cancel()
		if err := o.sessions.Kill(ctx, tabID); err != nil {
			o.logger.Warn(taskID, "abort", fmt.Sprintf("kill session %s: %v", tabID, err))
		}
	})
}

// SessionEnded releases the record of a task whose session exited and
// reprocesses the queue. The task status is left untouched.
func (o *Orchestrator) SessionEnded(ctx context.Context, projectID, taskID string) (bool, error) {
	if _, err := o.getProject(ctx, projectID); err != nil {
		return false, err
	}
	_, released := o.registry.Release(taskID)
	if released {
		o.observer.SessionsActive(len(o.registry.Active()))
		o.logger.Info(taskID, "dispatch", "session ended")
	}
	o.reprocess(ctx, projectID)
	return released, nil
}

// Delete tears the task down like a finished one, but removes the worktree
// immediately, then deletes the task.
func (o *Orchestrator) Delete(ctx context.Context, projectID, taskID string) error {
	project, err := o.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if _, err := o.getTask(ctx, projectID, taskID); err != nil {
		return err
	}

	o.Abort(projectID, taskID)
	o.cleanup.Cancel(taskID)
	o.removeWorktree(ctx, project, taskID)
	o.scripts.Remove(taskID)

	deleted, err := o.tasks.DeleteTask(ctx, projectID, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return domain.ErrTaskNotFound
	}
	o.logger.Info(taskID, "transition", "deleted")
	o.reprocess(ctx, projectID)
	return nil
}

// runCleanup is the CleanupFunc of the scheduler.
func (o *Orchestrator) runCleanup(projectID, taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout())
	defer cancel()

	project, err := o.projects.GetProject(ctx, projectID)
	if err != nil || project == nil {
		o.observer.CleanupFinished(ResultSkipped)
		o.logger.Warn(taskID, "cleanup", fmt.Sprintf("project %s unavailable, cleanup skipped", projectID))
		return
	}
	if o.removeWorktree(ctx, project, taskID) {
		o.scripts.Remove(taskID)
		o.observer.CleanupFinished(ResultRemoved)
	} else {
		o.observer.CleanupFinished(ResultFailure)
	}
}

func (o *Orchestrator) removeWorktree(ctx context.Context, project *domain.Project, taskID string) bool {
	shortID := domain.ShortID(taskID)
	if err := o.worktrees.Remove(ctx, project.ResolvedPath(), shortID); err != nil {
		o.logger.Error(taskID, "cleanup", fmt.Sprintf("remove worktree %s: %v", shortID, err))
		return false
	}
	o.logger.Info(taskID, "cleanup", "removed worktree "+shortID)
	return true
}

// ReconcileResult reports what a startup reconciliation did.
type ReconcileResult struct {
	Adopted    int // Live sessions adopted into the registry
	Reset      int // Stale dispatched flags cleared
	Dispatched int // Queued tasks dispatched afterwards
	Orphans    int // Leftover worktrees scheduled for cleanup
}

// Reconcile aligns persisted dispatched flags with the empty registry of a
// fresh process, then processes every project's queue.
func (o *Orchestrator) Reconcile(ctx context.Context, strategy string) (*ReconcileResult, error) {
	projects, err := o.projects.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	res := &ReconcileResult{}
	for _, p := range projects {
		cols, err := o.tasks.ListTasks(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks of %s: %w", p.Name, err)
		}
		candidates := make([]*domain.Task, 0, len(cols[domain.StatusInProgress])+len(cols[domain.StatusVerify]))
		candidates = append(candidates, cols[domain.StatusInProgress]...)
		candidates = append(candidates, cols[domain.StatusVerify]...)
		for _, t := range candidates {
			if !t.Dispatched || o.registry.Has(t.ID) {
				continue
			}
			tabID := domain.TabID(t.ID)
			running, err := o.sessions.IsRunning(ctx, tabID)
			if err != nil {
				o.logger.Warn(t.ID, "reconcile", fmt.Sprintf("check session %s: %v", tabID, err))
			}
			if running && strategy != domain.ReconcileReset {
				o.registry.Adopt(domain.SessionHandle{
					Started:   o.clock.Now(),
					TabID:     tabID,
					TaskID:    t.ID,
					ProjectID: p.ID,
					Dir:       o.worktrees.Path(t.ShortID()),
				})
				res.Adopted++
				continue
			}
			if running {
				if err := o.sessions.Kill(ctx, tabID); err != nil {
					o.logger.Warn(t.ID, "reconcile", fmt.Sprintf("kill session %s: %v", tabID, err))
				}
			}
			if _, err := o.tasks.UpdateTask(ctx, p.ID, t.ID, domain.TaskPatch{Dispatched: domain.Ptr(false)}); err != nil {
				return nil, fmt.Errorf("reset dispatched of %s: %w", t.ID, err)
			}
			res.Reset++
		}
		res.Orphans += o.sweepWorktrees(ctx, p, cols)
	}
	o.observer.SessionsActive(len(o.registry.Active()))

	for _, p := range projects {
		n, err := o.ProcessQueue(ctx, p.ID)
		if err != nil {
			o.logger.Warn("", "reconcile", fmt.Sprintf("process queue of %s: %v", p.Name, err))
			continue
		}
		res.Dispatched += n
	}
	o.logger.Info("", "reconcile", fmt.Sprintf("adopted=%d reset=%d dispatched=%d orphans=%d",
		res.Adopted, res.Reset, res.Dispatched, res.Orphans))
	return res, nil
}

// sweepWorktrees schedules cleanup of task worktrees whose pending cleanup
// was lost with the previous process: those of done tasks and of deleted tasks.
// It returns the number of scheduled cleanups.
func (o *Orchestrator) sweepWorktrees(ctx context.Context, p *domain.Project, cols domain.TaskColumns) int {
	if !p.PathValid() {
		return 0
	}
	worktrees, err := o.worktrees.List(ctx, p.ResolvedPath())
	if err != nil {
		o.logger.Warn("", "reconcile", fmt.Sprintf("list worktrees of %s: %v", p.Name, err))
		return 0
	}

	tasks := make(map[string]*domain.Task)
	for _, t := range cols.All() {
		tasks[t.ShortID()] = t
	}
	scheduled := 0
	for _, wt := range worktrees {
		if wt.ShortID == "" {
			continue
		}
		key := wt.ShortID // Deleted tasks are known by their shortId only
		if t, ok := tasks[wt.ShortID]; ok {
			if t.Status != domain.StatusDone || o.cleanup.Pending(t.ID) {
				continue
			}
			key = t.ID
		}
		o.cleanup.Schedule(p.ID, key)
		o.logger.Info(key, "reconcile", "scheduled cleanup of leftover worktree "+wt.Path)
		scheduled++
	}
	return scheduled
}

// reprocess runs ProcessQueue now and once more in the background.
func (o *Orchestrator) reprocess(ctx context.Context, projectID string) {
	if _, err := o.ProcessQueue(ctx, projectID); err != nil {
		o.logger.Warn("", "queue", fmt.Sprintf("process queue: %v", err))
	}
	o.detach(func(ctx context.Context) {
		if _, err := o.ProcessQueue(ctx, projectID); err != nil {
			o.logger.Warn("", "queue", fmt.Sprintf("process queue: %v", err))
		}
	})
}

func (o *Orchestrator) notifyAsync(message string) {
	if o.notifier == nil {
		return
	}
	timeout := o.current().notifyTimeout
	if timeout <= 0 {
		timeout = domain.DefaultNotifyTimeout
	}
	o.detach(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := o.notifier.Notify(ctx, message); err != nil {
			o.logger.Warn("", "notify", fmt.Sprintf("notify failed: %v", err))
		}
	})
}

// detach runs fn in a goroutine tracked by Wait. It is a no-op after Close.
func (o *Orchestrator) detach(fn func(ctx context.Context)) {
	if o.closed.Load() {
		return
	}
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		fn(context.Background())
	}()
}

// Wait blocks until all background work has finished.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// Close stops the cleanup scheduler and waits for background work.
func (o *Orchestrator) Close() {
	o.closed.Store(true)
	o.cleanup.Stop()
	o.bg.Wait()
}

func (o *Orchestrator) getProject(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := o.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, domain.ErrProjectNotFound
	}
	return project, nil
}

func (o *Orchestrator) getTask(ctx context.Context, projectID, taskID string) (*domain.Task, error) {
	task, err := o.tasks.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, string) {}
func (nopLogger) Info(string, string, string) {}
func (nopLogger) Warn(string, string, string) {}
func (nopLogger) Error(string, string, string) {}
