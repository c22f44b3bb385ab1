package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Conversations fetches the user's direct-conversation directory.
func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	page, err := getList[conversationWire](ctx, c, "/messages/conversations/", nil)
	if err != nil {
		return nil, err
	}
	conversations := make([]Conversation, 0, len(page.Items))
	for _, item := range page.Items {
		conversations = append(conversations, item.normalize())
	}
	return conversations, nil
}

// Groups fetches the course groups the user belongs to.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	page, err := getList[Group](ctx, c, "/messages/groups/", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// GroupMembers lists the members of one group.
func (c *Client) GroupMembers(ctx context.Context, groupID int64) ([]User, error) {
	page, err := getList[User](ctx, c, fmt.Sprintf("/messages/groups/%d/members/", groupID), nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Conversation fetches one page of the direct message history between two
// users, oldest first within the page.
func (c *Client) Conversation(ctx context.Context, user1, user2 int64, page int) (ListPage[Message], error) {
	query := url.Values{}
	query.Set("user1", itoa(user1))
	query.Set("user2", itoa(user2))
	if page > 1 {
		query.Set("page", itoa(int64(page)))
	}
	return getList[Message](ctx, c, "/messages/conversation/", query)
}

// GroupMessages fetches one page of a group's message history.
func (c *Client) GroupMessages(ctx context.Context, groupID int64, page int) (ListPage[Message], error) {
	query := url.Values{}
	if page > 1 {
		query.Set("page", itoa(int64(page)))
	}
	return getList[Message](ctx, c, fmt.Sprintf("/messages/groups/%d/messages/", groupID), query)
}

type sendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
	CourseID   int64  `json:"course_id_write,omitempty"`
}

// SendMessage posts a direct message and returns the created record.
func (c *Client) SendMessage(ctx context.Context, receiverID int64, content string, courseID int64) (Message, error) {
	var created Message
	req := sendMessageRequest{ReceiverID: receiverID, Content: content, CourseID: courseID}
	if err := c.do(ctx, http.MethodPost, "/messages/send/", nil, req, &created); err != nil {
		return Message{}, err
	}
	return created, nil
}

type sendGroupMessageRequest struct {
	Content string `json:"content"`
}

// SendGroupMessage posts a message to a group.
func (c *Client) SendGroupMessage(ctx context.Context, groupID int64, content string) (Message, error) {
	var created Message
	path := fmt.Sprintf("/messages/groups/%d/messages/send/", groupID)
	if err := c.do(ctx, http.MethodPost, path, nil, sendGroupMessageRequest{Content: content}, &created); err != nil {
		return Message{}, err
	}
	return created, nil
}

// MarkMessageRead marks one received message as read.
func (c *Client) MarkMessageRead(ctx context.Context, messageID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/messages/%d/read/", messageID), nil, nil, nil)
}

// Contacts lists the users eligible for a new direct conversation.
func (c *Client) Contacts(ctx context.Context) ([]User, error) {
	page, err := getList[User](ctx, c, "/messages/contacts/", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

type setTypingRequest struct {
	ReceiverID int64 `json:"receiver_id"`
	IsTyping   bool  `json:"is_typing"`
}

// SetTyping reports the local typing state toward a peer.
func (c *Client) SetTyping(ctx context.Context, receiverID int64, isTyping bool) error {
	return c.do(ctx, http.MethodPost, "/messages/typing/", nil, setTypingRequest{ReceiverID: receiverID, IsTyping: isTyping}, nil)
}

// TypingStatus fetches whether the given peer is currently typing toward
// the current user.
func (c *Client) TypingStatus(ctx context.Context, peerID int64) (TypingStatus, error) {
	query := url.Values{}
	query.Set("receiver_id", itoa(peerID))
	var status TypingStatus
	if err := c.do(ctx, http.MethodGet, "/messages/typing/status/", query, nil, &status); err != nil {
		return TypingStatus{}, err
	}
	return status, nil
}
