package memory

import (
	"context"
	"time"

	"github.com/amani-glitch/botle-collector/store"
)

func (d *Driver) CreateSession(_ context.Context, create *store.InterviewSession) (*store.InterviewSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess := &store.InterviewSession{
		ID:        create.ID,
		User:      create.User,
		Status:    store.SessionActive,
		CreatedTs: time.Now().Unix(),
	}
	d.sessions[sess.ID] = sess
	d.order = append(d.order, sess.ID)
	return copySession(sess), nil
}

func (d *Driver) GetSession(_ context.Context, find *store.FindSession) (*store.InterviewSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if find.ID != nil {
		sess, ok := d.sessions[*find.ID]
		if !ok || !matchStatus(sess, find) {
			return nil, nil
		}
		return copySession(sess), nil
	}
	for i := len(d.order) - 1; i >= 0; i-- {
		if sess := d.sessions[d.order[i]]; matchStatus(sess, find) {
			return copySession(sess), nil
		}
	}
	return nil, nil
}

func (d *Driver) ListSessions(_ context.Context, find *store.FindSession) ([]*store.InterviewSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := make([]*store.InterviewSession, 0, len(d.order))
	// Newest first.
	for i := len(d.order) - 1; i >= 0; i-- {
		sess := d.sessions[d.order[i]]
		if find != nil && find.ID != nil && sess.ID != *find.ID {
			continue
		}
		if find != nil && !matchStatus(sess, find) {
			continue
		}
		list = append(list, copySession(sess))
	}
	return list, nil
}

func (d *Driver) CompleteSession(_ context.Context, sessionID string, summary *store.Summary) (*store.InterviewSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess, ok := d.sessions[sessionID]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	sess.Status = store.SessionCompleted
	sess.Summary = summary
	return copySession(sess), nil
}

func (d *Driver) AddMessage(_ context.Context, sessionID, role, content string) (*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sess, ok := d.sessions[sessionID]
	if !ok {
		return nil, store.ErrSessionNotFound
	}

	msg := &store.Message{
		SessionID: sessionID,
		Index:     len(d.messages[sessionID]),
		Role:      role,
		Content:   content,
		CreatedTs: time.Now().Unix(),
	}
	d.messages[sessionID] = append(d.messages[sessionID], msg)
	if role == "user" {
		sess.ExchangeCount++
	}
	out := *msg
	return &out, nil
}

func (d *Driver) ListMessages(_ context.Context, sessionID string) ([]*store.Message, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	msgs := d.messages[sessionID]
	list := make([]*store.Message, 0, len(msgs))
	for _, m := range msgs {
		out := *m
		list = append(list, &out)
	}
	return list, nil
}

func matchStatus(sess *store.InterviewSession, find *store.FindSession) bool {
	return find == nil || find.Status == nil || sess.Status == *find.Status
}

// copySession returns a snapshot so callers never observe later mutations.
func copySession(sess *store.InterviewSession) *store.InterviewSession {
	out := *sess
	if sess.Summary != nil {
		summary := *sess.Summary
		out.Summary = &summary
	}
	return &out
}
