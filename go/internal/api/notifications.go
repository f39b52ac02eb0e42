package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mcdev12/tagchase/go/internal/models"
)

// Notifications lists the signed in user's notifications
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	return c.notifications(ctx, NotificationsEndpoint)
}

// UnreadNotifications lists notifications not yet marked read
func (c *Client) UnreadNotifications(ctx context.Context) ([]models.Notification, error) {
	return c.notifications(ctx, UnreadEndpoint)
}

func (c *Client) notifications(ctx context.Context, path string) ([]models.Notification, error) {
	var raw json.RawMessage
	if err := c.send(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	list, err := decodeList[models.Notification](raw)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// UnreadCount returns the number of unread notifications
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out models.UnreadCount
	if err := c.send(ctx, http.MethodGet, UnreadCountEndpoint, nil, nil, &out); err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return out.Count, nil
}

// MarkRead marks one notification read
func (c *Client) MarkRead(ctx context.Context, id int) error {
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf(markReadEndpoint, id), nil, nil, nil); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification read
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.send(ctx, http.MethodPost, MarkAllReadEndpoint, nil, nil, nil); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
