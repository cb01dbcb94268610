package model

import "encoding/json"

// Clone returns a deep copy of u so callers can't mutate stored state.
func (u *URL) Clone() *URL {
	if u == nil {
		return nil
	}
	c := *u
	c.Title = cloneString(u.Title)
	c.Notes = cloneString(u.Notes)
	c.Content = cloneString(u.Content)
	c.Analysis = cloneRaw(u.Analysis)
	return &c
}

// Clone returns a deep copy of q.
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Answer = cloneString(q.Answer)
	if q.AnsweredAt != nil {
		t := *q.AnsweredAt
		c.AnsweredAt = &t
	}
	return &c
}

// Clone returns a deep copy of uc.
func (uc *UserContext) Clone() *UserContext {
	if uc == nil {
		return nil
	}
	c := *uc
	c.Context = cloneRaw(uc.Context)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	c := make(json.RawMessage, len(r))
	copy(c, r)
	return c
}
