package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go-wiki-store/internal/data"
	"go-wiki-store/internal/table"
)

// messageRow is a stored message with its parent reference.
type messageRow struct {
	msg    *data.Message
	parent int
}

func (s *Store) messageRows(ctx context.Context, pageID string) (map[int]*messageRow, error) {
	rows, err := s.query(ctx, data.TableMessages, table.Query{PartitionKey: pageID})
	if err != nil {
		return nil, err
	}
	out := make(map[int]*messageRow, len(rows))
	for _, row := range rows {
		m, parent, err := data.MessageFromEntity(row)
		if err != nil {
			return nil, err
		}
		out[m.ID] = &messageRow{msg: m, parent: parent}
	}
	return out, nil
}

// messageTree reads the message forest of a page. Replies are ordered by
// time, then id. A message whose parent is missing is shown at the top level.
func (s *Store) messageTree(ctx context.Context, pageID string) ([]*data.Message, error) {
	rows, err := s.messageRows(ctx, pageID)
	if err != nil {
		return nil, err
	}
	var roots []*data.Message
	for _, r := range rows {
		parent, ok := rows[r.parent]
		if r.parent == data.NoParent || !ok || r.parent == r.msg.ID {
			if r.parent != data.NoParent {
				s.log.Warn(fmt.Sprintf("Message %d of page %s has missing parent %d", r.msg.ID, pageID, r.parent))
			}
			roots = append(roots, r.msg)
			continue
		}
		parent.msg.Replies = append(parent.msg.Replies, r.msg)
	}
	sortMessages(roots)
	return roots, nil
}

func sortMessages(msgs []*data.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].DateTime.Equal(msgs[j].DateTime) {
			return msgs[i].DateTime.Before(msgs[j].DateTime)
		}
		return msgs[i].ID < msgs[j].ID
	})
	for _, m := range msgs {
		sortMessages(m.Replies)
	}
}

// GetMessages returns the message forest of a page.
func (s *Store) GetMessages(ctx context.Context, page *data.PageInfo) ([]*data.Message, error) {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return nil, err
	}
	return s.messageTree(ctx, page.PageID)
}

// GetMessageCount returns the number of messages of a page, replies included.
func (s *Store) GetMessageCount(ctx context.Context, page *data.PageInfo) (int, error) {
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return 0, err
	}
	rows, err := s.query(ctx, data.TableMessages, table.Query{PartitionKey: page.PageID})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func validateMessage(m *data.Message) error {
	if strings.TrimSpace(m.Username) == "" {
		return invalid("message username is empty")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return invalid("message subject is empty")
	}
	return nil
}

// AddMessage adds a message to a page. parent is data.NoParent for a new
// thread or the id of the message replied to. The new id is one past the
// highest existing id, or 0.
func (s *Store) AddMessage(ctx context.Context, page *data.PageInfo, m *data.Message, parent int) (*data.Message, IndexStatus, error) {
	var status IndexStatus
	if m == nil {
		return nil, status, invalid("message is required")
	}
	if err := validateMessage(m); err != nil {
		return nil, status, err
	}
	if parent < data.NoParent {
		return nil, status, invalid("parent %d is out of range", parent)
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return nil, status, err
	}
	rows, err := s.messageRows(ctx, page.PageID)
	if err != nil {
		return nil, status, err
	}
	if parent != data.NoParent {
		if _, ok := rows[parent]; !ok {
			return nil, status, notFound("message", strconv.Itoa(parent))
		}
	}
	next := 0
	for id := range rows {
		if id >= next {
			next = id + 1
		}
	}

	msg := &data.Message{ID: next, Username: m.Username, Subject: m.Subject, DateTime: m.DateTime.UTC(), Body: m.Body}
	if err := s.execute(ctx, data.TableMessages, []table.Operation{table.Upsert(data.MessageEntity(page.PageID, msg, parent))}); err != nil {
		return nil, status, err
	}
	return msg, s.sync.IndexMessage(ctx, page, msg), nil
}

// ModifyMessage replaces the fields of a message, keeping its place in the tree.
func (s *Store) ModifyMessage(ctx context.Context, page *data.PageInfo, m *data.Message) (IndexStatus, error) {
	var status IndexStatus
	if m == nil {
		return status, invalid("message is required")
	}
	if err := validateMessage(m); err != nil {
		return status, err
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return status, err
	}
	e, err := s.get(ctx, data.TableMessages, page.PageID, strconv.Itoa(m.ID))
	if err != nil {
		return status, err
	}
	if e == nil {
		return status, notFound("message", strconv.Itoa(m.ID))
	}
	_, parent, err := data.MessageFromEntity(e)
	if err != nil {
		return status, err
	}

	msg := &data.Message{ID: m.ID, Username: m.Username, Subject: m.Subject, DateTime: m.DateTime.UTC(), Body: m.Body}
	if err := s.execute(ctx, data.TableMessages, []table.Operation{table.Upsert(data.MessageEntity(page.PageID, msg, parent))}); err != nil {
		return status, err
	}
	return s.sync.IndexMessage(ctx, page, msg), nil
}

// RemoveMessage removes a message. With removeReplies its whole subtree is
// removed; otherwise its direct replies move up to its parent.
func (s *Store) RemoveMessage(ctx context.Context, page *data.PageInfo, id int, removeReplies bool) (IndexStatus, error) {
	var status IndexStatus
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return status, err
	}
	rows, err := s.messageRows(ctx, page.PageID)
	if err != nil {
		return status, err
	}
	target, ok := rows[id]
	if !ok {
		return status, notFound("message", strconv.Itoa(id))
	}

	var ops []table.Operation
	var removed []int
	if removeReplies {
		removed = subtree(rows, id)
		for _, rid := range removed {
			ops = append(ops, table.Delete(page.PageID, strconv.Itoa(rid)))
		}
	} else {
		removed = []int{id}
		for _, r := range rows {
			if r.parent == id && r.msg.ID != id {
				ops = append(ops, table.Upsert(data.MessageEntity(page.PageID, r.msg, target.parent)))
			}
		}
		ops = append(ops, table.Delete(page.PageID, strconv.Itoa(id)))
	}
	if err := s.execute(ctx, data.TableMessages, ops); err != nil {
		return status, err
	}
	for _, rid := range removed {
		status = status.Merge(s.sync.UnindexMessage(ctx, page, rid))
	}
	return status, nil
}

// subtree returns id and the ids of all of its descendants.
func subtree(rows map[int]*messageRow, id int) []int {
	children := make(map[int][]int)
	for _, r := range rows {
		if r.msg.ID != r.parent {
			children[r.parent] = append(children[r.parent], r.msg.ID)
		}
	}
	out := []int{id}
	for i := 0; i < len(out); i++ {
		out = append(out, children[out[i]]...)
	}
	sort.Ints(out)
	return out
}

// flattenMessages lists every message of a forest with its parent id.
func flattenMessages(msgs []*data.Message, parent int, out []messageRow) []messageRow {
	for _, m := range msgs {
		out = append(out, messageRow{msg: m, parent: parent})
		if m != nil {
			out = flattenMessages(m.Replies, m.ID, out)
		}
	}
	return out
}

// BulkStoreMessages replaces the whole message forest of a page. Message ids
// must be unique and non-negative; otherwise nothing is written.
func (s *Store) BulkStoreMessages(ctx context.Context, page *data.PageInfo, messages []*data.Message) (IndexStatus, error) {
	var status IndexStatus
	flat := flattenMessages(messages, data.NoParent, nil)
	ids := make(map[int]bool, len(flat))
	for _, r := range flat {
		if r.msg == nil {
			return status, invalid("message is required")
		}
		if r.msg.ID < 0 {
			return status, invalid("message id %d is negative", r.msg.ID)
		}
		if ids[r.msg.ID] {
			return status, invalid("duplicate message id %d", r.msg.ID)
		}
		if err := validateMessage(r.msg); err != nil {
			return status, err
		}
		ids[r.msg.ID] = true
	}
	page, err := s.requirePage(ctx, page)
	if err != nil {
		return status, err
	}
	old, err := s.messageTree(ctx, page.PageID)
	if err != nil {
		return status, err
	}

	status = s.sync.UnindexMessageTree(ctx, page, old)

	var ops []table.Operation
	for _, r := range flattenMessages(old, data.NoParent, nil) {
		if !ids[r.msg.ID] {
			ops = append(ops, table.Delete(page.PageID, strconv.Itoa(r.msg.ID)))
		}
	}
	for _, r := range flat {
		m := *r.msg
		m.DateTime = m.DateTime.UTC()
		ops = append(ops, table.Upsert(data.MessageEntity(page.PageID, &m, r.parent)))
	}
	if err := s.execute(ctx, data.TableMessages, ops); err != nil {
		return status, err
	}

	stored, err := s.messageTree(ctx, page.PageID)
	if err != nil {
		return status, err
	}
	return status.Merge(s.sync.IndexMessageTree(ctx, page, stored)), nil
}
