package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/byPixelTV/TwitchNotifyBot/internal/domain"
)

// --- key-value fake ---

type fakeKeyValue struct {
	mu        sync.Mutex
	hashes    map[string]map[string]string
	contended bool
	lockKeys  []string
}

func newFakeKeyValue() *fakeKeyValue {
	return &fakeKeyValue{hashes: make(map[string]map[string]string)}
}

func (f *fakeKeyValue) HashGet(_ context.Context, name, field string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hashes[name][field]
	return v, ok, nil
}

func (f *fakeKeyValue) HashSet(_ context.Context, name, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[name] == nil {
		f.hashes[name] = make(map[string]string)
	}
	f.hashes[name][field] = value
	return nil
}

func (f *fakeKeyValue) HashSetAll(_ context.Context, name string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hashes[name] == nil {
		f.hashes[name] = make(map[string]string)
	}
	for k, v := range fields {
		f.hashes[name][k] = v
	}
	return nil
}

func (f *fakeKeyValue) DeleteHash(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hashes, name)
	return nil
}

func (f *fakeKeyValue) WithLock(ctx context.Context, key string, _ time.Duration, fn func(ctx context.Context) error) (bool, error) {
	f.mu.Lock()
	f.lockKeys = append(f.lockKeys, key)
	contended := f.contended
	f.mu.Unlock()
	if contended {
		return false, nil
	}
	return true, fn(ctx)
}

// --- document store fakes ---

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs []domain.Subscription
}

func (f *fakeSubscriptionStore) ListAll(_ context.Context) ([]domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Subscription, len(f.subs))
	copy(out, f.subs)
	return out, nil
}

func (f *fakeSubscriptionStore) FindBySubscriptionID(_ context.Context, id string) (*domain.Subscription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.SubscriptionID == id {
			sub := s
			return &sub, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeSubscriptionStore) Create(_ context.Context, sub domain.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSubscriptionStore) DeleteBySubscriptionID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.subs[:0]
	for _, s := range f.subs {
		if s.SubscriptionID != id {
			kept = append(kept, s)
		}
	}
	f.subs = kept
	return nil
}

func (f *fakeSubscriptionStore) DeleteByChannel(_ context.Context, channelID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	kept := f.subs[:0]
	for _, s := range f.subs {
		if s.ChannelID == channelID {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.subs = kept
	return removed, nil
}

func (f *fakeSubscriptionStore) DistinctTwitchChannelIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	var ids []string
	for _, s := range f.subs {
		if _, ok := seen[s.TwitchChannelID]; ok {
			continue
		}
		seen[s.TwitchChannelID] = struct{}{}
		ids = append(ids, s.TwitchChannelID)
	}
	return ids, nil
}

type fakeLiveSessionStore struct {
	mu       sync.Mutex
	sessions []domain.LiveSession
}

func (f *fakeLiveSessionStore) ListAll(_ context.Context) ([]domain.LiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LiveSession, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeLiveSessionStore) FindBySubscriptionID(_ context.Context, id string) (*domain.LiveSession, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.LinkedSubscriptionID == id {
			session := s
			return &session, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeLiveSessionStore) Insert(_ context.Context, session domain.LiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeLiveSessionStore) DeleteByMessageID(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.sessions[:0]
	for _, s := range f.sessions {
		if s.MessageID != messageID {
			kept = append(kept, s)
		}
	}
	f.sessions = kept
	return nil
}

func (f *fakeLiveSessionStore) ReplaceByMessageID(_ context.Context, messageID string, session domain.LiveSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sessions {
		if s.MessageID == messageID {
			f.sessions[i] = session
			return nil
		}
	}
	return fmt.Errorf("no session with message id %q", messageID)
}

type fakeNameCacheStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeNameCacheStore() *fakeNameCacheStore {
	return &fakeNameCacheStore{entries: make(map[string]string)}
}

func (f *fakeNameCacheStore) ListAll(_ context.Context) ([]domain.NameCacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NameCacheEntry
	for id, name := range f.entries {
		out = append(out, domain.NameCacheEntry{TwitchChannelID: id, DisplayName: name})
	}
	return out, nil
}

func (f *fakeNameCacheStore) Upsert(_ context.Context, entry domain.NameCacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.TwitchChannelID] = entry.DisplayName
	return nil
}

func (f *fakeNameCacheStore) ReplaceAll(_ context.Context, entries []domain.NameCacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]string, len(entries))
	for _, e := range entries {
		f.entries[e.TwitchChannelID] = e.DisplayName
	}
	return nil
}

// --- chat platform fake ---

type postedMessage struct {
	ChannelID string
	Payload   domain.MessagePayload
}

type fakeChat struct {
	mu       sync.Mutex
	channels map[string]domain.Channel
	roles    map[string]domain.Role // keyed by guildID/roleID

	nextMessageID int
	messages      map[string]postedMessage // live messages by id
	edits         map[string][]domain.MessagePayload
	deleted       []string

	editErr error // returned by EditMessage when set
	postErr error // returned by PostMessage when set
	roleErr error // returned by GetRole when set
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		channels: make(map[string]domain.Channel),
		roles:    make(map[string]domain.Role),
		messages: make(map[string]postedMessage),
		edits:    make(map[string][]domain.MessagePayload),
	}
}

func (f *fakeChat) addChannel(id, guildID string) {
	f.channels[id] = domain.Channel{ID: id, GuildID: guildID, Name: "chan-" + id}
}

func (f *fakeChat) PostMessage(_ context.Context, channelID string, payload domain.MessagePayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.nextMessageID++
	id := fmt.Sprintf("msg-%d", f.nextMessageID)
	f.messages[id] = postedMessage{ChannelID: channelID, Payload: payload}
	return id, nil
}

func (f *fakeChat) EditMessage(_ context.Context, channelID, messageID string, payload domain.MessagePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	if _, ok := f.messages[messageID]; !ok {
		return domain.ErrNotFound
	}
	f.messages[messageID] = postedMessage{ChannelID: channelID, Payload: payload}
	f.edits[messageID] = append(f.edits[messageID], payload)
	return nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.messages, messageID)
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeChat) GetChannel(_ context.Context, channelID string) (*domain.Channel, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, false, nil
	}
	return &ch, true, nil
}

func (f *fakeChat) GetRole(_ context.Context, guildID, roleID string) (*domain.Role, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return nil, false, f.roleErr
	}
	role, ok := f.roles[guildID+"/"+roleID]
	if !ok {
		return nil, false, nil
	}
	return &role, true, nil
}

// --- streaming platform fake ---

type fakeStreaming struct {
	mu      sync.Mutex
	users   map[string]domain.StreamUser
	streams map[string]domain.Stream // live streams by user id
	userErr error
}

func newFakeStreaming() *fakeStreaming {
	return &fakeStreaming{
		users:   make(map[string]domain.StreamUser),
		streams: make(map[string]domain.Stream),
	}
}

func (f *fakeStreaming) addUser(id, login, displayName string) {
	f.users[id] = domain.StreamUser{ID: id, Login: login, DisplayName: displayName}
}

func (f *fakeStreaming) setLive(stream domain.Stream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[stream.UserID] = stream
}

func (f *fakeStreaming) setOffline(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.streams, userID)
}

func (f *fakeStreaming) GetUsersByIDs(_ context.Context, ids []string) ([]domain.StreamUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return nil, f.userErr
	}
	var out []domain.StreamUser
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStreaming) GetUsersByLogins(_ context.Context, logins []string) ([]domain.StreamUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StreamUser
	for _, login := range logins {
		for _, u := range f.users {
			if u.Login == login {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeStreaming) GetStreamsByUserIDs(_ context.Context, ids []string) ([]domain.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Stream
	for _, id := range ids {
		if s, ok := f.streams[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// --- publisher fake ---

type publishedEvent struct {
	Channel string
	Action  string
	Payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(_ context.Context, channel, action string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Channel: channel, Action: action, Payload: payload})
	return nil
}

func (f *fakePublisher) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}
