package api

import (
	"context"
	"fmt"
	"net/http"
)

// Notifications fetches the user's notification list, unread first then
// newest, as the backend orders it.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	page, err := getList[Notification](ctx, c, "/notifications/", nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/notifications/%d/read/", id), nil, nil, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-all-read/", nil, nil, nil)
}

// UnreadNotificationCount fetches the authoritative unread badge count.
func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var body struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count/", nil, nil, &body); err != nil {
		return 0, err
	}
	return body.UnreadCount, nil
}
