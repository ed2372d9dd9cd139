package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"piktram/internal/models"
)

var (
	errStoreDown  = errors.New("store unavailable")
	errOutOfScope = errors.New("create outside caller scope")
	errTxAborted  = errors.New("commit: current transaction is aborted")
)

type fakeStore struct {
	mu sync.Mutex

	nextTaskID  int64
	nextAuditID int64

	tasks    map[int64]models.Task
	projects map[int64]models.Project
	audit    []models.AuditEntry

	// failures
	failListTasks   bool
	failSetProgress bool
	failAudit       bool

	// abortTxOnError makes a failed statement poison the open transaction
	// unless it ran under a savepoint, so the commit fails.
	abortTxOnError bool
	inTx           bool
	aborted        bool
	savepointDepth int

	// spies
	progressWrites map[int64]int
	txCalls        int
	savepoints     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextTaskID:     1,
		nextAuditID:    1,
		tasks:          make(map[int64]models.Task),
		projects:       make(map[int64]models.Project),
		progressWrites: make(map[int64]int),
	}
}

func cloneTask(t models.Task) models.Task {
	out := t
	if t.ProjectID != nil {
		pid := *t.ProjectID
		out.ProjectID = &pid
	}
	return out
}

func (s *fakeStore) addProject(id int64, owner string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[id] = models.Project{ID: id, OwnerID: owner, Name: "project", Progress: progress}
}

func (s *fakeStore) addTask(owner string, projectID *int64, raw string) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := models.Task{ID: s.nextTaskID, OwnerID: owner, ProjectID: projectID, Title: "task", Status: raw}
	s.nextTaskID++
	s.tasks[t.ID] = cloneTask(t)
	return t
}

func (s *fakeStore) progressOf(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[id].Progress
}

func (s *fakeStore) writes(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressWrites[id]
}

func (s *fakeStore) totalWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.progressWrites {
		n += c
	}
	return n
}

func (s *fakeStore) GetTask(_ context.Context, caller models.Caller, id int64) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !caller.Scope(t.OwnerID) {
		return models.Task{}, ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (s *fakeStore) CreateTask(_ context.Context, caller models.Caller, t models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !caller.Scope(t.OwnerID) {
		return models.Task{}, errOutOfScope
	}
	t.ID = s.nextTaskID
	s.nextTaskID++
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = cloneTask(t)
	return cloneTask(t), nil
}

func (s *fakeStore) UpdateTaskStatus(_ context.Context, caller models.Caller, id int64, raw string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !caller.Scope(t.OwnerID) {
		return models.Task{}, ErrTaskNotFound
	}
	t.Status = raw
	t.UpdatedAt = time.Now()
	s.tasks[id] = t
	return cloneTask(t), nil
}

func (s *fakeStore) UpdateTaskProject(_ context.Context, caller models.Caller, id int64, projectID *int64) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !caller.Scope(t.OwnerID) {
		return models.Task{}, ErrTaskNotFound
	}
	t.ProjectID = nil
	if projectID != nil {
		pid := *projectID
		t.ProjectID = &pid
	}
	s.tasks[id] = t
	return cloneTask(t), nil
}

func (s *fakeStore) DeleteTask(_ context.Context, caller models.Caller, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !caller.Scope(t.OwnerID) {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeStore) GetProject(_ context.Context, caller models.Caller, id int64) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || !caller.Scope(p.OwnerID) {
		return models.Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *fakeStore) ListProjectIDs(_ context.Context, caller models.Caller) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, p := range s.projects {
		if caller.Scope(p.OwnerID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *fakeStore) ListProjectTasks(_ context.Context, caller models.Caller, projectID int64) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failListTasks {
		s.failStatement()
		return nil, errStoreDown
	}
	var out []models.Task
	for _, t := range s.tasks {
		if t.ProjectID != nil && *t.ProjectID == projectID && caller.Scope(t.OwnerID) {
			out = append(out, cloneTask(t))
		}
	}
	return out, nil
}

func (s *fakeStore) SetProjectProgress(_ context.Context, caller models.Caller, projectID int64, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetProgress {
		s.failStatement()
		return errStoreDown
	}
	p, ok := s.projects[projectID]
	if !ok || !caller.Scope(p.OwnerID) {
		return ErrProjectNotFound
	}
	p.Progress = progress
	s.projects[projectID] = p
	s.progressWrites[projectID]++
	return nil
}

func (s *fakeStore) AppendAudit(_ context.Context, e models.AuditEntry) (models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit {
		s.failStatement()
		return models.AuditEntry{}, errStoreDown
	}
	e.ID = s.nextAuditID
	s.nextAuditID++
	e.CreatedAt = time.Now()
	s.audit = append(s.audit, e)
	return e, nil
}

// failStatement must be called with mu held.
func (s *fakeStore) failStatement() {
	if s.abortTxOnError && s.inTx && s.savepointDepth == 0 {
		s.aborted = true
	}
}

func (s *fakeStore) Savepoint(_ context.Context, name string, fn func() error) error {
	s.mu.Lock()
	if !s.inTx {
		s.mu.Unlock()
		return fn()
	}
	s.savepoints = append(s.savepoints, name)
	s.savepointDepth++
	projects := make(map[int64]models.Project, len(s.projects))
	for k, v := range s.projects {
		projects[k] = v
	}
	auditLen := len(s.audit)
	s.mu.Unlock()

	err := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.savepointDepth--
	if err != nil {
		s.projects = projects
		s.audit = s.audit[:auditLen]
	}
	return err
}

// WithinTx snapshots rows and restores them when fn fails or the
// transaction was aborted.
func (s *fakeStore) WithinTx(_ context.Context, fn func(Store) error) error {
	s.mu.Lock()
	s.txCalls++
	s.inTx = true
	s.aborted = false
	tasks := make(map[int64]models.Task, len(s.tasks))
	for k, v := range s.tasks {
		tasks[k] = cloneTask(v)
	}
	projects := make(map[int64]models.Project, len(s.projects))
	for k, v := range s.projects {
		projects[k] = v
	}
	auditLen := len(s.audit)
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTx = false
	if err == nil && s.aborted {
		err = errTxAborted
	}
	if err != nil {
		s.tasks = tasks
		s.projects = projects
		s.audit = s.audit[:auditLen]
		return err
	}
	return nil
}

type spyNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (n *spyNotifier) Notify(_ context.Context, msg models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *spyNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.Kind
	}
	return out
}
