package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/peopleops/recreation-booking/internal/model"
	"github.com/peopleops/recreation-booking/internal/service"
)

// midnight truncates a timestamp to its UTC calendar date.
func midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type playKey struct {
	gameID, userID uint64
	cycleStart     int64
}

// memStore is an in-memory implementation of every storage interface
// the services consume, including the allocation unit of work.  All
// methods copy on read so tests cannot mutate stored state by accident.
type memStore struct {
	mu        sync.Mutex
	games     map[uint64]*model.Game
	slots     map[uint64]*model.Slot
	requests  map[uint64]*model.SlotRequest
	bookings  map[uint64]*model.Booking
	interests map[uint64][]uint64
	cycles    map[uint64]map[int64]*time.Time // gameID -> cycle start unix -> end
	plays     map[playKey]int
	nextID    uint64

	beginErr      error
	slotForUpdErr error
}

var (
	_ service.GameStore     = (*memStore)(nil)
	_ service.SlotStore     = (*memStore)(nil)
	_ service.RequestStore  = (*memStore)(nil)
	_ service.InterestStore = (*memStore)(nil)
	_ service.BookingStore  = (*memStore)(nil)
	_ service.UnitOfWork    = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		games:     map[uint64]*model.Game{},
		slots:     map[uint64]*model.Slot{},
		requests:  map[uint64]*model.SlotRequest{},
		bookings:  map[uint64]*model.Booking{},
		interests: map[uint64][]uint64{},
		cycles:    map[uint64]map[int64]*time.Time{},
		plays:     map[playKey]int{},
	}
}

// id must be called with mu held.
func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

// ----- seeding helpers -----

func (m *memStore) addGame(g model.Game) *model.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == 0 {
		g.ID = m.id()
	}
	if g.SlotMinutes == 0 {
		g.SlotMinutes = 60
	}
	if g.MaxPlayers == 0 {
		g.MaxPlayers = 4
	}
	g.IsActive = true
	m.games[g.ID] = &g
	cp := g
	return &cp
}

func (m *memStore) addSlot(s model.Slot) *model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.id()
	}
	if s.Status == "" {
		s.Status = model.SlotOpen
	}
	if s.EndsAt.IsZero() {
		s.EndsAt = s.StartsAt.Add(time.Hour)
	}
	m.slots[s.ID] = &s
	cp := s
	return &cp
}

func (m *memStore) addRequest(r model.SlotRequest) *model.SlotRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.id()
	}
	if r.Status == "" {
		r.Status = model.RequestPending
	}
	m.requests[r.ID] = &r
	cp := r
	return &cp
}

func (m *memStore) addBooking(b model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.id()
	}
	if b.Status == "" {
		b.Status = model.BookingBooked
	}
	m.bookings[b.ID] = &b
	cp := b
	return &cp
}

func (m *memStore) seedPlay(gameID, userID uint64, cycleStart time.Time, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays[playKey{gameID, userID, cycleStart.Unix()}] = n
	if m.cycles[gameID] == nil {
		m.cycles[gameID] = map[int64]*time.Time{}
	}
	if _, ok := m.cycles[gameID][cycleStart.Unix()]; !ok {
		m.cycles[gameID][cycleStart.Unix()] = nil
	}
}

func (m *memStore) requestStatus(id uint64) model.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].Status
}

func (m *memStore) slotStatus(id uint64) model.SlotStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id].Status
}

func (m *memStore) activeBookings() []model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.Status != model.BookingCancelled {
			out = append(out, *b)
		}
	}
	return out
}

// ----- GameStore -----

func (m *memStore) GameByID(_ context.Context, id uint64) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, nil
}

// ----- SlotStore -----

func (m *memStore) SlotByID(_ context.Context, id uint64) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) SlotStartsByGame(_ context.Context, gameID uint64, from, to time.Time) (map[time.Time]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[time.Time]struct{}{}
	for _, s := range m.slots {
		if s.GameID == gameID && !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			out[s.StartsAt] = struct{}{}
		}
	}
	return out, nil
}

func (m *memStore) CreateSlots(_ context.Context, slots []model.Slot) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := map[string]struct{}{}
	for _, s := range m.slots {
		existing[fmt.Sprintf("%d/%d", s.GameID, s.StartsAt.Unix())] = struct{}{}
	}
	var created []model.Slot
	for _, s := range slots {
		key := fmt.Sprintf("%d/%d", s.GameID, s.StartsAt.Unix())
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		s.ID = m.id()
		cp := s
		m.slots[s.ID] = &cp
		created = append(created, s)
	}
	return created, nil
}

func (m *memStore) UpdateSlotStatus(_ context.Context, slotID uint64, status model.SlotStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotID]
	if !ok {
		return fmt.Errorf("slot %d not found", slotID)
	}
	s.Status = status
	return nil
}

func (m *memStore) SlotsForRange(_ context.Context, gameID uint64, from, to time.Time) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Slot
	for _, s := range m.slots {
		if gameID != 0 && s.GameID != gameID {
			continue
		}
		if !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *memStore) OpenSlotsStartingBetween(_ context.Context, from, to time.Time) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Slot
	for _, s := range m.slots {
		if s.Status == model.SlotOpen && !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// ----- RequestStore -----

func (m *memStore) CreateRequest(_ context.Context, req *model.SlotRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.id()
	cp := *req
	cp.Participants = append([]uint64(nil), req.Participants...)
	m.requests[cp.ID] = &cp
	return nil
}

func (m *memStore) RequestByID(_ context.Context, id uint64) (*model.SlotRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.requests[id]; ok {
		cp := *r
		cp.Participants = append([]uint64(nil), r.Participants...)
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) UpdateRequestStatus(_ context.Context, id uint64, status model.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return fmt.Errorf("request %d not found", id)
	}
	r.Status = status
	return nil
}

func (m *memStore) ActiveRequesters(_ context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := toSet(userIDs)
	out := map[uint64]struct{}{}
	for _, r := range m.requests {
		switch r.Status {
		case model.RequestPending, model.RequestWaitlisted, model.RequestAssigned:
		default:
			continue
		}
		slot, ok := m.slots[r.SlotID]
		if !ok || !midnight(slot.StartsAt).Equal(day) {
			continue
		}
		for _, uid := range append([]uint64{r.RequesterID}, r.Participants...) {
			if _, ok := wanted[uid]; ok {
				out[uid] = struct{}{}
			}
		}
	}
	return out, nil
}

func (m *memStore) RequestsByUser(_ context.Context, userID uint64, from, to time.Time) ([]model.SlotRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SlotRequest
	for _, r := range m.requests {
		if r.RequesterID != userID {
			continue
		}
		slot, ok := m.slots[r.SlotID]
		if !ok || slot.StartsAt.Before(from) || !slot.StartsAt.Before(to) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- InterestStore -----

func (m *memStore) InterestedUserIDs(_ context.Context, gameID uint64) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.interests[gameID]...), nil
}

func (m *memStore) SetInterest(_ context.Context, userID, gameID uint64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.interests[gameID]
	idx := -1
	for i, id := range cur {
		if id == userID {
			idx = i
			break
		}
	}
	if active && idx == -1 {
		m.interests[gameID] = append(cur, userID)
	}
	if !active && idx != -1 {
		m.interests[gameID] = append(cur[:idx], cur[idx+1:]...)
	}
	return nil
}

// ----- BookingStore -----

func (m *memStore) BookingByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		cp := *b
		cp.Participants = append([]uint64(nil), b.Participants...)
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ActiveBookingBySlot(_ context.Context, slotID uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.SlotID == slotID && b.Status != model.BookingCancelled {
			cp := *b
			cp.Participants = append([]uint64(nil), b.Participants...)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CancelBooking(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d not found", id)
	}
	if b.Status != model.BookingCancelled {
		b.Status = model.BookingCancelled
		b.CancelledAt = &at
	}
	return nil
}

func (m *memStore) BookedUserIDsOn(_ context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookedOnLocked(day, userIDs), nil
}

func (m *memStore) bookedOnLocked(day time.Time, userIDs []uint64) map[uint64]struct{} {
	wanted := toSet(userIDs)
	out := map[uint64]struct{}{}
	for _, b := range m.bookings {
		if b.Status == model.BookingCancelled || !b.BookingDate.Equal(day) {
			continue
		}
		for _, uid := range append([]uint64{b.CreatedBy}, b.Participants...) {
			if _, ok := wanted[uid]; ok {
				out[uid] = struct{}{}
			}
		}
	}
	return out
}

func (m *memStore) BookingsForUser(_ context.Context, userID uint64, from, to time.Time) ([]model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BookingDetail
	for _, b := range m.bookings {
		if b.Status == model.BookingCancelled || !b.HasParticipant(userID) {
			continue
		}
		slot, ok := m.slots[b.SlotID]
		if !ok || slot.StartsAt.Before(from) || !slot.StartsAt.Before(to) {
			continue
		}
		d := model.BookingDetail{Booking: *b, SlotStart: slot.StartsAt, SlotEnd: slot.EndsAt}
		if g, ok := m.games[b.GameID]; ok {
			d.GameName = g.Name
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotStart.Before(out[j].SlotStart) })
	return out, nil
}

// ----- UnitOfWork / AllocationTx -----

func (m *memStore) Begin(context.Context) (service.AllocationTx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &memTx{m: m}, nil
}

// memTx applies writes directly; Commit and Rollback are no-ops.  Error
// injection happens before any write, so tests stay consistent without
// real transaction semantics.
type memTx struct{ m *memStore }

func (t *memTx) Commit() error   { return nil }
func (t *memTx) Rollback() error { return nil }

func (t *memTx) SlotForUpdate(ctx context.Context, slotID uint64) (*model.Slot, error) {
	if t.m.slotForUpdErr != nil {
		return nil, t.m.slotForUpdErr
	}
	return t.m.SlotByID(ctx, slotID)
}

func (t *memTx) GameByID(ctx context.Context, gameID uint64) (*model.Game, error) {
	return t.m.GameByID(ctx, gameID)
}

func (t *memTx) RequestsBySlotStatus(_ context.Context, slotID uint64, status model.RequestStatus) ([]model.SlotRequest, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var out []model.SlotRequest
	for _, r := range t.m.requests {
		if r.SlotID == slotID && r.Status == status {
			cp := *r
			cp.Participants = append([]uint64(nil), r.Participants...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) InterestedUserIDs(ctx context.Context, gameID uint64) ([]uint64, error) {
	return t.m.InterestedUserIDs(ctx, gameID)
}

func (t *memTx) ActiveCycle(_ context.Context, gameID uint64) (*model.Cycle, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	var newest *model.Cycle
	for startUnix, end := range t.m.cycles[gameID] {
		start := time.Unix(startUnix, 0).UTC()
		if newest == nil || start.After(newest.Start) {
			newest = &model.Cycle{GameID: gameID, Start: start, End: end}
		}
	}
	return newest, nil
}

func (t *memTx) CloseCycle(_ context.Context, gameID uint64, start, end time.Time) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.m.cycles[gameID] == nil {
		t.m.cycles[gameID] = map[int64]*time.Time{}
	}
	e := end
	t.m.cycles[gameID][start.Unix()] = &e
	return nil
}

func (t *memTx) PlayCounts(_ context.Context, gameID uint64, cycleStart time.Time, userIDs []uint64) (map[uint64]int, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	out := map[uint64]int{}
	for _, uid := range userIDs {
		if n := t.m.plays[playKey{gameID, uid, cycleStart.Unix()}]; n > 0 {
			out[uid] = n
		}
	}
	return out, nil
}

func (t *memTx) BookedUserIDsOn(_ context.Context, day time.Time, userIDs []uint64) (map[uint64]struct{}, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.m.bookedOnLocked(day, userIDs), nil
}

func (t *memTx) CreateBooking(_ context.Context, b *model.Booking) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	b.ID = t.m.id()
	cp := *b
	cp.Participants = append([]uint64(nil), b.Participants...)
	t.m.bookings[cp.ID] = &cp
	return nil
}

func (t *memTx) RecordPlay(_ context.Context, gameID, userID uint64, cycleStart, _ time.Time) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.plays[playKey{gameID, userID, cycleStart.Unix()}]++
	if t.m.cycles[gameID] == nil {
		t.m.cycles[gameID] = map[int64]*time.Time{}
	}
	if _, ok := t.m.cycles[gameID][cycleStart.Unix()]; !ok {
		t.m.cycles[gameID][cycleStart.Unix()] = nil
	}
	return nil
}

func (t *memTx) UpdateRequestStatus(ctx context.Context, requestID uint64, status model.RequestStatus) error {
	return t.m.UpdateRequestStatus(ctx, requestID, status)
}

func (t *memTx) WaitlistPendingSiblings(_ context.Context, slotID, winnerID uint64) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for _, r := range t.m.requests {
		if r.SlotID == slotID && r.ID != winnerID && r.Status == model.RequestPending {
			r.Status = model.RequestWaitlisted
		}
	}
	return nil
}

func (t *memTx) UpdateSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error {
	return t.m.UpdateSlotStatus(ctx, slotID, status)
}

// ----- collaborator fakes -----

// recordingNotifier captures notification fan-outs.
type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]uint64
	err   error
}

func (n *recordingNotifier) NotifyUsers(_ context.Context, userIDs []uint64, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, append([]uint64(nil), userIDs...))
	return n.err
}

// recordingRunner captures allocation invocations.  errFor fails the
// call for specific slots; err fails every call.
type recordingRunner struct {
	mu      sync.Mutex
	slots   []uint64
	sources []model.RequestStatus
	err     error
	errFor  map[uint64]error
}

func (r *recordingRunner) AllocateForSlot(_ context.Context, slotID uint64, _ time.Time, source model.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, slotID)
	r.sources = append(r.sources, source)
	if err, ok := r.errFor[slotID]; ok {
		return err
	}
	return r.err
}

func toSet(ids []uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func fixedClock(t time.Time) service.ClockFunc {
	return func() time.Time { return t }
}
