package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/workout-tracker/internal/config"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/queue"
	"github.com/iliyamo/workout-tracker/internal/repository"
	"github.com/iliyamo/workout-tracker/internal/utils"
)

// tables is the in-memory state behind the fake repositories.  memDB
// snapshots it when a transaction starts and restores it on error, so
// rollback behaves like the real database.
type tables struct {
	nextID     uint64
	exercises  map[uint64]model.Exercise
	routines   map[uint64]model.Routine
	slots      map[uint64]slotRow
	logs       map[uint64]model.WorkoutLog
	maxWeights []model.MaxWeight
	users      map[uint64]model.User
	tokens     map[string]tokenRow
	writes     int
}

type slotRow struct {
	model.RoutineExercise
	deleted bool
}

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

func (t *tables) clone() *tables {
	c := &tables{
		nextID:     t.nextID,
		exercises:  make(map[uint64]model.Exercise, len(t.exercises)),
		routines:   make(map[uint64]model.Routine, len(t.routines)),
		slots:      make(map[uint64]slotRow, len(t.slots)),
		logs:       make(map[uint64]model.WorkoutLog, len(t.logs)),
		maxWeights: append([]model.MaxWeight(nil), t.maxWeights...),
		users:      make(map[uint64]model.User, len(t.users)),
		tokens:     make(map[string]tokenRow, len(t.tokens)),
		writes:     t.writes,
	}
	for k, v := range t.exercises {
		c.exercises[k] = v
	}
	for k, v := range t.routines {
		c.routines[k] = v
	}
	for k, v := range t.slots {
		c.slots[k] = v
	}
	for k, v := range t.logs {
		c.logs[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.tokens {
		c.tokens[k] = v
	}
	return c
}

func (t *tables) id() uint64 {
	t.nextID++
	return t.nextID
}

type memDB struct {
	mu    sync.Mutex
	t     *tables
	locks []repository.Lock
}

func newMemDB() *memDB {
	return &memDB{t: &tables{
		exercises: map[uint64]model.Exercise{},
		routines:  map[uint64]model.Routine{},
		slots:     map[uint64]slotRow{},
		logs:      map[uint64]model.WorkoutLog{},
		users:     map[uint64]model.User{},
		tokens:    map[string]tokenRow{},
	}}
}

// WithinTx serializes transactions and restores the snapshot on error.
func (m *memDB) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.t.clone()
	if err := fn(nil); err != nil {
		m.t = snap
		return err
	}
	return nil
}

func stamp() *time.Time {
	t := time.Now().UTC()
	return &t
}

func sortedIDs[V any](m map[uint64]V) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func idSet(ids []uint64) map[uint64]bool {
	s := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// ---- exercises ----

type fakeExercises struct{ db *memDB }

func (f fakeExercises) FindByKeysTx(_ context.Context, _ *sql.Tx, keys []model.ExerciseKey, includeDeleted bool, lock repository.Lock) ([]model.Exercise, error) {
	f.db.locks = append(f.db.locks, lock)
	want := make(map[model.ExerciseKey]bool, len(keys))
	for _, k := range keys {
		want[k.Fold()] = true
	}
	out := []model.Exercise{}
	for _, id := range sortedIDs(f.db.t.exercises) {
		e := f.db.t.exercises[id]
		if want[e.Key().Fold()] && (includeDeleted || e.DeletedAt == nil) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeExercises) InsertManyTx(_ context.Context, _ *sql.Tx, keys []model.ExerciseKey) error {
	f.db.t.writes++
	for _, k := range keys {
		for _, e := range f.db.t.exercises {
			if e.Key().Fold() == k.Fold() {
				return repository.ErrDuplicate
			}
		}
		now := time.Now().UTC()
		id := f.db.t.id()
		f.db.t.exercises[id] = model.Exercise{ID: id, BodyPart: k.BodyPart, ExerciseName: k.ExerciseName, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (f fakeExercises) RestoreTx(_ context.Context, _ *sql.Tx, ids []uint64) error {
	f.db.t.writes++
	for _, id := range ids {
		e := f.db.t.exercises[id]
		e.DeletedAt = nil
		f.db.t.exercises[id] = e
	}
	return nil
}

func (f fakeExercises) SoftDeleteTx(_ context.Context, _ *sql.Tx, ids []uint64) error {
	f.db.t.writes++
	for _, id := range ids {
		if e, ok := f.db.t.exercises[id]; ok && e.DeletedAt == nil {
			e.DeletedAt = stamp()
			f.db.t.exercises[id] = e
		}
	}
	return nil
}

func (f fakeExercises) RenameTx(_ context.Context, _ *sql.Tx, id uint64, newName string) error {
	f.db.t.writes++
	e, ok := f.db.t.exercises[id]
	if !ok || e.DeletedAt != nil {
		return repository.ErrNotFound
	}
	for _, o := range f.db.t.exercises {
		if o.ID != id && o.Key().Fold() == (model.ExerciseKey{BodyPart: e.BodyPart, ExerciseName: newName}).Fold() {
			return repository.ErrDuplicate
		}
	}
	e.ExerciseName = newName
	f.db.t.exercises[id] = e
	return nil
}

func (f fakeExercises) ListByBodyPart(_ context.Context, bodyPart model.BodyPart) ([]model.Exercise, error) {
	out := []model.Exercise{}
	for _, e := range f.sorted() {
		if e.BodyPart == bodyPart && e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeExercises) ListAll(_ context.Context, includeDeleted bool) ([]model.Exercise, error) {
	out := []model.Exercise{}
	for _, e := range f.sorted() {
		if includeDeleted || e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeExercises) sorted() []model.Exercise {
	out := make([]model.Exercise, 0, len(f.db.t.exercises))
	for _, e := range f.db.t.exercises {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BodyPart != out[j].BodyPart {
			return out[i].BodyPart.Rank() < out[j].BodyPart.Rank()
		}
		return out[i].ExerciseName < out[j].ExerciseName
	})
	return out
}

// ---- routines ----

type fakeRoutines struct{ db *memDB }

func (f fakeRoutines) FindByOwnerAndNameTx(_ context.Context, _ *sql.Tx, ownerID uint64, name string, lock repository.Lock) (*model.Routine, error) {
	f.db.locks = append(f.db.locks, lock)
	for _, id := range sortedIDs(f.db.t.routines) {
		r := f.db.t.routines[id]
		if r.OwnerUserID == ownerID && r.Name == name && r.DeletedAt == nil {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeRoutines) CreateTx(_ context.Context, _ *sql.Tx, ownerID uint64, name string) (uint64, error) {
	f.db.t.writes++
	now := time.Now().UTC()
	id := f.db.t.id()
	f.db.t.routines[id] = model.Routine{ID: id, OwnerUserID: ownerID, Name: name, CreatedAt: now, UpdatedAt: now}
	return id, nil
}

func (f fakeRoutines) GetByIDAndOwnerTx(ctx context.Context, _ *sql.Tx, id, ownerID uint64, lock repository.Lock) (*model.Routine, error) {
	f.db.locks = append(f.db.locks, lock)
	return f.GetByIDAndOwner(ctx, id, ownerID)
}

func (f fakeRoutines) GetByIDAndOwner(_ context.Context, id, ownerID uint64) (*model.Routine, error) {
	r, ok := f.db.t.routines[id]
	if !ok || r.OwnerUserID != ownerID || r.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f fakeRoutines) FindByIDsAndOwnerTx(_ context.Context, _ *sql.Tx, ids []uint64, ownerID uint64, lock repository.Lock) ([]model.Routine, error) {
	f.db.locks = append(f.db.locks, lock)
	want := idSet(ids)
	out := []model.Routine{}
	for _, id := range sortedIDs(f.db.t.routines) {
		r := f.db.t.routines[id]
		if want[id] && r.OwnerUserID == ownerID && r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeRoutines) ListByOwner(_ context.Context, ownerID uint64) ([]model.Routine, error) {
	out := []model.Routine{}
	for _, id := range sortedIDs(f.db.t.routines) {
		r := f.db.t.routines[id]
		if r.OwnerUserID == ownerID && r.DeletedAt == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeRoutines) TouchTx(_ context.Context, _ *sql.Tx, id uint64) error {
	f.db.t.writes++
	r := f.db.t.routines[id]
	r.UpdatedAt = time.Now().UTC()
	f.db.t.routines[id] = r
	return nil
}

func (f fakeRoutines) SoftDeleteTx(_ context.Context, _ *sql.Tx, ids []uint64) error {
	f.db.t.writes++
	for _, id := range ids {
		if r, ok := f.db.t.routines[id]; ok && r.DeletedAt == nil {
			r.DeletedAt = stamp()
			f.db.t.routines[id] = r
		}
	}
	return nil
}

// ---- routine slots ----

type fakeSlots struct{ db *memDB }

func (f fakeSlots) ListByRoutinesTx(ctx context.Context, _ *sql.Tx, routineIDs []uint64) ([]model.RoutineExercise, error) {
	return f.ListByRoutines(ctx, routineIDs)
}

func (f fakeSlots) ListByRoutines(_ context.Context, routineIDs []uint64) ([]model.RoutineExercise, error) {
	want := idSet(routineIDs)
	out := []model.RoutineExercise{}
	for _, row := range f.db.t.slots {
		if row.deleted || !want[row.RoutineID] {
			continue
		}
		re := row.RoutineExercise
		e := f.db.t.exercises[re.ExerciseID]
		re.BodyPart, re.ExerciseName = e.BodyPart, e.ExerciseName
		out = append(out, re)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoutineID != out[j].RoutineID {
			return out[i].RoutineID < out[j].RoutineID
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (f fakeSlots) InsertManyTx(_ context.Context, _ *sql.Tx, routineID uint64, slots []repository.SlotRecord) error {
	f.db.t.writes++
	for _, s := range slots {
		id := f.db.t.id()
		f.db.t.slots[id] = slotRow{RoutineExercise: model.RoutineExercise{ID: id, RoutineID: routineID, ExerciseID: s.ExerciseID, Order: s.Order}}
	}
	return nil
}

func (f fakeSlots) SoftDeleteByRoutinesTx(_ context.Context, _ *sql.Tx, routineIDs []uint64) error {
	f.db.t.writes++
	want := idSet(routineIDs)
	for id, row := range f.db.t.slots {
		if want[row.RoutineID] && !row.deleted {
			row.deleted = true
			f.db.t.slots[id] = row
		}
	}
	return nil
}

// ---- workout logs ----

type fakeLogs struct {
	db *memDB
	// failInsertAt makes the n-th InsertTx call (1-based) fail; 0 disables.
	failInsertAt *int
	inserts      *int
}

func (f fakeLogs) InsertTx(_ context.Context, _ *sql.Tx, l model.WorkoutLog) (uint64, error) {
	f.db.t.writes++
	*f.inserts++
	if *f.failInsertAt != 0 && *f.failInsertAt == *f.inserts {
		return 0, sql.ErrConnDone
	}
	l.ID = f.db.t.id()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	f.db.t.logs[l.ID] = l
	return l.ID, nil
}

func (f fakeLogs) FindByIDsAndUserTx(_ context.Context, _ *sql.Tx, ids []uint64, userID uint64, lock repository.Lock) ([]model.WorkoutLog, error) {
	f.db.locks = append(f.db.locks, lock)
	want := idSet(ids)
	out := []model.WorkoutLog{}
	for _, id := range sortedIDs(f.db.t.logs) {
		l := f.db.t.logs[id]
		if want[id] && l.UserID == userID && l.DeletedAt == nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f fakeLogs) UpdateNumbersTx(_ context.Context, _ *sql.Tx, p model.WorkoutLogPatch) error {
	f.db.t.writes++
	l, ok := f.db.t.logs[p.ID]
	if !ok || l.DeletedAt != nil {
		return repository.ErrNotFound
	}
	l.SetCount, l.Weight, l.RepeatCount = p.SetCount, p.Weight, p.RepeatCount
	f.db.t.logs[p.ID] = l
	return nil
}

func (f fakeLogs) SoftDeleteTx(_ context.Context, _ *sql.Tx, ids []uint64) error {
	f.db.t.writes++
	for _, id := range ids {
		if l, ok := f.db.t.logs[id]; ok && l.DeletedAt == nil {
			l.DeletedAt = stamp()
			f.db.t.logs[id] = l
		}
	}
	return nil
}

func (f fakeLogs) ListByUserBetween(_ context.Context, userID uint64, from, to time.Time) ([]model.WorkoutLog, error) {
	return f.filter(func(l model.WorkoutLog) bool {
		return l.UserID == userID && !l.CreatedAt.Before(from) && l.CreatedAt.Before(to)
	}), nil
}

func (f fakeLogs) ListByUser(_ context.Context, userID uint64) ([]model.WorkoutLog, error) {
	return f.filter(func(l model.WorkoutLog) bool { return l.UserID == userID }), nil
}

func (f fakeLogs) ListForRenewalTx(_ context.Context, _ *sql.Tx) ([]model.WorkoutLog, error) {
	out := f.filter(func(l model.WorkoutLog) bool {
		u, ok := f.db.t.users[l.UserID]
		return ok && u.DeletedAt == nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.BodyPart != b.BodyPart {
			return a.BodyPart.Rank() < b.BodyPart.Rank()
		}
		return a.ExerciseName < b.ExerciseName
	})
	return out, nil
}

func (f fakeLogs) RenameExerciseTx(_ context.Context, _ *sql.Tx, exerciseID uint64, newName string) error {
	f.db.t.writes++
	for id, l := range f.db.t.logs {
		if l.ExerciseID == exerciseID {
			l.ExerciseName = newName
			f.db.t.logs[id] = l
		}
	}
	return nil
}

func (f fakeLogs) RenameNickNameTx(_ context.Context, _ *sql.Tx, userID uint64, nickName string) error {
	f.db.t.writes++
	for id, l := range f.db.t.logs {
		if l.UserID == userID {
			l.UserNickName = nickName
			f.db.t.logs[id] = l
		}
	}
	return nil
}

// filter returns live logs matching keep in (created_at, id) order.
func (f fakeLogs) filter(keep func(model.WorkoutLog) bool) []model.WorkoutLog {
	out := []model.WorkoutLog{}
	for _, id := range sortedIDs(f.db.t.logs) {
		l := f.db.t.logs[id]
		if l.DeletedAt == nil && keep(l) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ---- max weights ----

type fakeMaxWeights struct{ db *memDB }

func (f fakeMaxWeights) DeleteAllTx(context.Context, *sql.Tx) error {
	f.db.t.writes++
	f.db.t.maxWeights = nil
	return nil
}

func (f fakeMaxWeights) InsertManyTx(_ context.Context, _ *sql.Tx, rows []model.MaxWeight) error {
	f.db.t.writes++
	for _, r := range rows {
		r.ID = f.db.t.id()
		f.db.t.maxWeights = append(f.db.t.maxWeights, r)
	}
	return nil
}

func (f fakeMaxWeights) List(context.Context) ([]model.MaxWeight, error) {
	return append([]model.MaxWeight{}, f.db.t.maxWeights...), nil
}

func (f fakeMaxWeights) RenameExerciseTx(_ context.Context, _ *sql.Tx, bodyPart model.BodyPart, oldName, newName string) error {
	f.db.t.writes++
	for i, m := range f.db.t.maxWeights {
		if m.BodyPart == bodyPart && m.ExerciseName == oldName {
			f.db.t.maxWeights[i].ExerciseName = newName
		}
	}
	return nil
}

func (f fakeMaxWeights) RenameNickNameTx(_ context.Context, _ *sql.Tx, userID uint64, nickName string) error {
	f.db.t.writes++
	for i, m := range f.db.t.maxWeights {
		if m.UserID == userID {
			f.db.t.maxWeights[i].UserNickName = nickName
		}
	}
	return nil
}

// ---- users and tokens ----

type fakeUsers struct{ db *memDB }

func (f fakeUsers) Create(_ context.Context, email, password, nickName string, cost int) (uint64, error) {
	for _, u := range f.db.t.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	f.db.t.writes++
	now := time.Now().UTC()
	id := f.db.t.id()
	f.db.t.users[id] = model.User{ID: id, Email: email, PasswordHash: hash, NickName: nickName, CreatedAt: now, UpdatedAt: now}
	return id, nil
}

func (f fakeUsers) EmailTaken(_ context.Context, email string) (bool, error) {
	for _, u := range f.db.t.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.db.t.users {
		if u.Email == email && u.DeletedAt == nil {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := f.db.t.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f fakeUsers) GetByIDTx(ctx context.Context, _ *sql.Tx, id uint64, lock repository.Lock) (*model.User, error) {
	f.db.locks = append(f.db.locks, lock)
	return f.GetByID(ctx, id)
}

func (f fakeUsers) UpdateNickNameTx(_ context.Context, _ *sql.Tx, id uint64, nickName string) error {
	f.db.t.writes++
	u, ok := f.db.t.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.NickName = nickName
	f.db.t.users[id] = u
	return nil
}

func (f fakeUsers) SoftDeleteTx(_ context.Context, _ *sql.Tx, id uint64) error {
	f.db.t.writes++
	u, ok := f.db.t.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.DeletedAt = stamp()
	f.db.t.users[id] = u
	return nil
}

type fakeTokens struct{ db *memDB }

func (f fakeTokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	f.db.t.tokens[tokenHash] = tokenRow{userID: userID, exp: exp}
	return nil
}

func (f fakeTokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	row, ok := f.db.t.tokens[tokenHash]
	if !ok || row.revoked || time.Now().After(row.exp) {
		return 0, repository.ErrNotFound
	}
	return row.userID, nil
}

func (f fakeTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	if row, ok := f.db.t.tokens[tokenHash]; ok {
		row.revoked = true
		f.db.t.tokens[tokenHash] = row
	}
	return nil
}

func (f fakeTokens) RevokeAllForUserTx(_ context.Context, _ *sql.Tx, userID uint64) error {
	for h, row := range f.db.t.tokens {
		if row.userID == userID {
			row.revoked = true
			f.db.t.tokens[h] = row
		}
	}
	return nil
}

type recordingPublisher struct {
	events []queue.Event
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.events = append(p.events, ev)
	return p.fail
}

// harness wires every service against one memDB.
type harness struct {
	db        *memDB
	logs      fakeLogs
	events    *recordingPublisher
	observed  *observer.ObservedLogs
	exercises *ExerciseService
	routines  *RoutineService
	workouts  *WorkoutLogService
	maxWeight *MaxWeightService
	users     *UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	core, observed := observer.New(zap.DebugLevel)
	log := zap.New(core)
	logs := fakeLogs{db: db, inserts: new(int), failInsertAt: new(int)}
	pub := &recordingPublisher{}
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	ex := NewExerciseService(db, fakeExercises{db}, logs, fakeMaxWeights{db}, log)
	return &harness{
		db:        db,
		logs:      logs,
		events:    pub,
		observed:  observed,
		exercises: ex,
		routines:  NewRoutineService(db, fakeRoutines{db}, fakeSlots{db}, ex, pub, log),
		workouts:  NewWorkoutLogService(db, logs, fakeUsers{db}, ex, log),
		maxWeight: NewMaxWeightService(db, logs, fakeMaxWeights{db}, pub, log),
		users:     NewUserService(cfg, db, fakeUsers{db}, fakeTokens{db}, logs, fakeMaxWeights{db}, log),
	}
}

func key(t *testing.T, bodyPart, name string) model.ExerciseKey {
	t.Helper()
	k, err := model.NewExerciseKey(bodyPart, name)
	if err != nil {
		t.Fatalf("key %s/%s: %v", bodyPart, name, err)
	}
	return k
}

func slot(t *testing.T, order int, bodyPart, name string) model.RoutineSlot {
	t.Helper()
	s, err := model.NewRoutineSlot(order, bodyPart, name)
	if err != nil {
		t.Fatalf("slot %d %s/%s: %v", order, bodyPart, name, err)
	}
	return s
}

func (h *harness) signUp(t *testing.T, email, nick string) uint64 {
	t.Helper()
	u, err := h.users.SignUp(context.Background(), email, "password123", nick)
	if err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	return u.ID
}
