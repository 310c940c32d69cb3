// Package fakes provides in-memory implementations of the service stores for tests.
package fakes

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"Lee_Moments/internal/model"
)

// Store 所有表共享一把锁，读写都返回拷贝，行为上接近真实数据库
type Store struct {
	mu sync.Mutex

	nextID        uint64
	circles       map[uint64]model.Circle
	members       map[memberKey]model.CircleMember
	follows       map[memberKey]int8
	moments       map[uint64]model.Moment
	registrations map[uint64]model.Registration
	comments      map[uint64]model.Comment
	users         map[uint64]model.User
	outbox        []model.Outbox

	// UnfollowErr 非空时 Unfollow 直接返回该错误
	UnfollowErr error
	// CreateRegistrationErr 非空时 Registrations.Create 直接返回该错误
	CreateRegistrationErr error
	// AddMembershipErr 非空时 Members.AddMembership 直接返回该错误
	AddMembershipErr error

	Circles       *Circles
	Members       *Members
	Follows       *Follows
	Moments       *Moments
	Registrations *Registrations
	Comments      *Comments
	Users         *Users
	Outbox        *Outbox
}

type memberKey struct {
	circleID uint64
	userID   uint64
}

func New() *Store {
	s := &Store{
		circles:       make(map[uint64]model.Circle),
		members:       make(map[memberKey]model.CircleMember),
		follows:       make(map[memberKey]int8),
		moments:       make(map[uint64]model.Moment),
		registrations: make(map[uint64]model.Registration),
		comments:      make(map[uint64]model.Comment),
		users:         make(map[uint64]model.User),
	}
	s.Circles = &Circles{s}
	s.Members = &Members{s}
	s.Follows = &Follows{s}
	s.Moments = &Moments{s}
	s.Registrations = &Registrations{s}
	s.Comments = &Comments{s}
	s.Users = &Users{s}
	s.Outbox = &Outbox{s}
	return s
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

type txKey struct{}

type fakeTx struct {
	undo []func()
}

// InTx fn 出错时按相反顺序撤销本事务内的写入，只影响本事务写过的行
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*fakeTx); ok {
		return fn(ctx)
	}
	tx := &fakeTx{}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func txOf(ctx context.Context) *fakeTx {
	tx, _ := ctx.Value(txKey{}).(*fakeTx)
	return tx
}

// track 在修改前记录 key 的旧值，调用方持有 s.mu
func track[K comparable, V any](ctx context.Context, m map[K]V, k K) {
	tx := txOf(ctx)
	if tx == nil {
		return
	}
	old, existed := m[k]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// Circles

type Circles struct{ s *Store }

func (c *Circles) Create(ctx context.Context, circle *model.Circle, hostID uint64) error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.circles {
		if existing.Slug == circle.Slug {
			return errors.New("duplicate circle slug")
		}
	}
	now := time.Now()
	circle.ID = s.id()
	circle.CreatedAt, circle.UpdatedAt = now, now
	track(ctx, s.circles, circle.ID)
	s.circles[circle.ID] = *circle
	key := memberKey{circle.ID, hostID}
	track(ctx, s.members, key)
	s.members[key] = model.CircleMember{ID: s.id(), CircleID: circle.ID, UserID: hostID, Role: model.RoleHost, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (c *Circles) FindByID(_ context.Context, id uint64) (*model.Circle, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	circle, ok := c.s.circles[id]
	if !ok {
		return nil, nil
	}
	return &circle, nil
}

func (c *Circles) FindBySlug(_ context.Context, slug string) (*model.Circle, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, circle := range c.s.circles {
		if circle.Slug == slug {
			return &circle, nil
		}
	}
	return nil, nil
}

func (c *Circles) SlugExists(ctx context.Context, slug string) (bool, error) {
	circle, err := c.FindBySlug(ctx, slug)
	return circle != nil, err
}

func (c *Circles) Update(ctx context.Context, circle *model.Circle) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, ok := c.s.circles[circle.ID]; !ok {
		return errors.New("circle not stored")
	}
	circle.UpdatedAt = time.Now()
	track(ctx, c.s.circles, circle.ID)
	c.s.circles[circle.ID] = *circle
	return nil
}

// Delete 连同成员、关注以及该 circle 下的 moment、报名和评论一起删除
func (c *Circles) Delete(ctx context.Context, id uint64) error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for mid, mo := range s.moments {
		if mo.CircleID == id {
			s.deleteMomentLocked(ctx, mid)
		}
	}
	track(ctx, s.circles, id)
	delete(s.circles, id)
	for k := range s.members {
		if k.circleID == id {
			track(ctx, s.members, k)
			delete(s.members, k)
		}
	}
	for k := range s.follows {
		if k.circleID == id {
			track(ctx, s.follows, k)
			delete(s.follows, k)
		}
	}
	return nil
}

// Members

type Members struct{ s *Store }

func (m *Members) FindMembership(_ context.Context, circleID, userID uint64) (*model.CircleMember, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mem, ok := m.s.members[memberKey{circleID, userID}]
	if !ok {
		return nil, nil
	}
	return &mem, nil
}

func (m *Members) AddMembership(ctx context.Context, mem *model.CircleMember) (bool, error) {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AddMembershipErr != nil {
		return false, s.AddMembershipErr
	}
	key := memberKey{mem.CircleID, mem.UserID}
	if _, ok := s.members[key]; ok {
		return false, nil
	}
	now := time.Now()
	mem.ID = s.id()
	mem.CreatedAt, mem.UpdatedAt = now, now
	track(ctx, s.members, key)
	s.members[key] = *mem
	return true, nil
}

func (m *Members) RemoveMembership(ctx context.Context, circleID, userID uint64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	track(ctx, m.s.members, memberKey{circleID, userID})
	delete(m.s.members, memberKey{circleID, userID})
	return nil
}

func (m *Members) ListHostIDs(_ context.Context, circleID uint64) ([]uint64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var ids []uint64
	for k, mem := range m.s.members {
		if k.circleID == circleID && mem.Role == model.RoleHost {
			ids = append(ids, k.userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetRole 测试里直接改角色
func (m *Members) SetRole(circleID, userID uint64, role model.Role) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := memberKey{circleID, userID}
	mem, ok := m.s.members[key]
	if !ok {
		mem = model.CircleMember{ID: m.s.id(), CircleID: circleID, UserID: userID}
	}
	mem.Role = role
	m.s.members[key] = mem
}

// Follows

type Follows struct{ s *Store }

func (f *Follows) Follow(ctx context.Context, circleID, userID uint64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	key := memberKey{circleID, userID}
	if f.s.follows[key] == 1 {
		return false, nil
	}
	track(ctx, f.s.follows, key)
	f.s.follows[key] = 1
	return true, nil
}

func (f *Follows) Unfollow(ctx context.Context, circleID, userID uint64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.UnfollowErr != nil {
		return false, f.s.UnfollowErr
	}
	key := memberKey{circleID, userID}
	if f.s.follows[key] != 1 {
		return false, nil
	}
	track(ctx, f.s.follows, key)
	f.s.follows[key] = 0
	return true, nil
}

func (f *Follows) IsFollowing(circleID, userID uint64) bool {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.follows[memberKey{circleID, userID}] == 1
}

// Moments

type Moments struct{ s *Store }

func (m *Moments) FindByID(_ context.Context, id uint64) (*model.Moment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mo, ok := m.s.moments[id]
	if !ok {
		return nil, nil
	}
	return cloneMoment(mo), nil
}

// FindByIDForUpdate 所有操作共用一把锁，这里不需要额外的行锁
func (m *Moments) FindByIDForUpdate(ctx context.Context, id uint64) (*model.Moment, error) {
	return m.FindByID(ctx, id)
}

func (m *Moments) FindBySlug(_ context.Context, slug string) (*model.Moment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, mo := range m.s.moments {
		if mo.Slug == slug {
			return cloneMoment(mo), nil
		}
	}
	return nil, nil
}

func (m *Moments) SlugExists(ctx context.Context, slug string) (bool, error) {
	mo, err := m.FindBySlug(ctx, slug)
	return mo != nil, err
}

func (m *Moments) Create(ctx context.Context, mo *model.Moment) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.moments {
		if existing.Slug == mo.Slug {
			return errors.New("duplicate moment slug")
		}
	}
	now := time.Now()
	mo.ID = s.id()
	mo.CreatedAt, mo.UpdatedAt = now, now
	track(ctx, s.moments, mo.ID)
	s.moments[mo.ID] = *cloneMoment(*mo)
	return nil
}

func (m *Moments) Update(ctx context.Context, mo *model.Moment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.moments[mo.ID]; !ok {
		return errors.New("moment not stored")
	}
	mo.UpdatedAt = time.Now()
	track(ctx, m.s.moments, mo.ID)
	m.s.moments[mo.ID] = *cloneMoment(*mo)
	return nil
}

func (m *Moments) Delete(ctx context.Context, id uint64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.deleteMomentLocked(ctx, id)
	return nil
}

// deleteMomentLocked 删除 moment 及其报名和评论，调用方持有 s.mu
func (s *Store) deleteMomentLocked(ctx context.Context, id uint64) {
	track(ctx, s.moments, id)
	delete(s.moments, id)
	for rid, r := range s.registrations {
		if r.MomentID == id {
			track(ctx, s.registrations, rid)
			delete(s.registrations, rid)
		}
	}
	for cid, c := range s.comments {
		if c.MomentID == id {
			track(ctx, s.comments, cid)
			delete(s.comments, cid)
		}
	}
}

// Put 直接写入一条 moment，绕过业务校验
func (m *Moments) Put(mo model.Moment) *model.Moment {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if mo.ID == 0 {
		mo.ID = s.id()
	}
	s.moments[mo.ID] = *cloneMoment(mo)
	return cloneMoment(mo)
}

func cloneMoment(m model.Moment) *model.Moment {
	if m.Capacity != nil {
		c := *m.Capacity
		m.Capacity = &c
	}
	if m.EndsAt != nil {
		e := *m.EndsAt
		m.EndsAt = &e
	}
	return &m
}

// Registrations

type Registrations struct{ s *Store }

func (r *Registrations) FindByID(_ context.Context, id uint64) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, nil
	}
	return &reg, nil
}

func (r *Registrations) FindByMomentAndUser(_ context.Context, momentID, userID uint64) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.registrations {
		if reg.MomentID == momentID && reg.UserID == userID {
			return &reg, nil
		}
	}
	return nil, nil
}

func (r *Registrations) Create(ctx context.Context, reg *model.Registration) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateRegistrationErr != nil {
		return s.CreateRegistrationErr
	}
	for _, existing := range s.registrations {
		if existing.MomentID == reg.MomentID && existing.UserID == reg.UserID {
			return errors.New("duplicate registration")
		}
	}
	now := time.Now()
	reg.ID = s.id()
	reg.CreatedAt, reg.UpdatedAt = now, now
	track(ctx, s.registrations, reg.ID)
	s.registrations[reg.ID] = *reg
	return nil
}

func (r *Registrations) Update(ctx context.Context, reg *model.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.registrations[reg.ID]; !ok {
		return errors.New("registration not stored")
	}
	reg.UpdatedAt = time.Now()
	track(ctx, r.s.registrations, reg.ID)
	r.s.registrations[reg.ID] = *reg
	return nil
}

func (r *Registrations) UpdateStatus(ctx context.Context, id uint64, from, to model.RegistrationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok || reg.Status != from {
		return false, nil
	}
	track(ctx, r.s.registrations, id)
	reg.Status = to
	reg.UpdatedAt = time.Now()
	r.s.registrations[id] = reg
	return true, nil
}

func (r *Registrations) CountByMomentAndStatus(_ context.Context, momentID uint64, status model.RegistrationStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, reg := range r.s.registrations {
		if reg.MomentID == momentID && reg.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *Registrations) FindFirstWaitlisted(_ context.Context, momentID uint64) (*model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var first *model.Registration
	for _, reg := range r.s.registrations {
		if reg.MomentID != momentID || reg.Status != model.RegistrationWaitlisted {
			continue
		}
		if first == nil || reg.RegisteredAt.Before(first.RegisteredAt) ||
			(reg.RegisteredAt.Equal(first.RegisteredAt) && reg.ID < first.ID) {
			cp := reg
			first = &cp
		}
	}
	return first, nil
}

func (r *Registrations) FindFutureActiveByUserAndCircle(_ context.Context, userID, circleID uint64, now time.Time) ([]model.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Registration
	for _, reg := range r.s.registrations {
		if reg.UserID != userID || !reg.Active() {
			continue
		}
		m, ok := r.s.moments[reg.MomentID]
		if !ok || m.CircleID != circleID || !m.StartsAt.After(now) || m.Status == model.MomentCancelled {
			continue
		}
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Registrations) ListActiveUserIDs(_ context.Context, momentID uint64) ([]uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uint64
	for _, reg := range r.s.registrations {
		if reg.MomentID == momentID && reg.Active() {
			ids = append(ids, reg.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ByMoment 返回某个 moment 的所有行（含 CANCELLED），按 id 排序
func (r *Registrations) ByMoment(momentID uint64) []model.Registration {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Registration
	for _, reg := range r.s.registrations {
		if reg.MomentID == momentID {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Comments

type Comments struct{ s *Store }

func (c *Comments) Create(ctx context.Context, cm *model.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cm.ID = c.s.id()
	track(ctx, c.s.comments, cm.ID)
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = time.Now()
	}
	c.s.comments[cm.ID] = *cm
	return nil
}

func (c *Comments) FindByID(_ context.Context, id uint64) (*model.Comment, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cm, ok := c.s.comments[id]
	if !ok {
		return nil, nil
	}
	return &cm, nil
}

func (c *Comments) Delete(ctx context.Context, id uint64) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	track(ctx, c.s.comments, id)
	delete(c.s.comments, id)
	return nil
}

func (c *Comments) ListByMoment(_ context.Context, momentID, cursor uint64, limit int) ([]model.Comment, uint64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var all []model.Comment
	for _, cm := range c.s.comments {
		if cm.MomentID == momentID && cm.ID > cursor {
			all = append(all, cm)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	var next uint64
	if len(all) > limit {
		next = all[limit-1].ID
		all = all[:limit]
	}
	return all, next, nil
}

// Users

type Users struct{ s *Store }

func (u *Users) FindByID(_ context.Context, id uint64) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u *Users) Put(user model.User) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[user.ID] = user
}

// Outbox

type Outbox struct{ s *Store }

func (o *Outbox) Insert(ctx context.Context, rows []model.Outbox) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for _, row := range rows {
		row.ID = o.s.id()
		row.CreatedAt = time.Now()
		o.s.outbox = append(o.s.outbox, row)
		if tx := txOf(ctx); tx != nil {
			id := row.ID
			tx.undo = append(tx.undo, func() { o.removeLocked(id) })
		}
	}
	return nil
}

func (o *Outbox) removeLocked(id uint64) {
	for i := range o.s.outbox {
		if o.s.outbox[i].ID == id {
			o.s.outbox = append(o.s.outbox[:i], o.s.outbox[i+1:]...)
			return
		}
	}
}

func (o *Outbox) List(_ context.Context, batchSize, maxRetry int) ([]model.Outbox, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	var out []model.Outbox
	for _, row := range o.s.outbox {
		if len(out) >= batchSize {
			break
		}
		if row.Status != model.OutboxSent && row.Retry < maxRetry {
			out = append(out, row)
		}
	}
	return out, nil
}

func (o *Outbox) RetryUpdate(_ context.Context, id uint64) error {
	return o.update(id, func(row *model.Outbox) {
		row.Retry++
		row.Status = model.OutboxFailed
	})
}

func (o *Outbox) SuccessUpdate(_ context.Context, id uint64) error {
	return o.update(id, func(row *model.Outbox) {
		row.Status = model.OutboxSent
	})
}

func (o *Outbox) update(id uint64, fn func(*model.Outbox)) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	for i := range o.s.outbox {
		if o.s.outbox[i].ID == id {
			fn(&o.s.outbox[i])
			return nil
		}
	}
	return errors.New("outbox row not stored")
}

// Rows 返回当前 outbox 的快照
func (o *Outbox) Rows() []model.Outbox {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return append([]model.Outbox(nil), o.s.outbox...)
}
