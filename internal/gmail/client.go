package gmail

import (
	"context"
	"fmt"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// maxPageSize is the largest page the messages.list endpoint returns.
const maxPageSize = 500

// Client wraps the Gmail Users service
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client that sends requests through httpClient.
// Extra options (for example option.WithEndpoint) are passed to the service.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// ListMessageIDs lists ids of messages matching the query with pagination.
// It will fetch up to maxResults ids, making multiple API calls if necessary.
func (c *Client) ListMessageIDs(ctx context.Context, q string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := min(remaining, maxPageSize)

		req := c.svc.Messages.List("me").Q(q).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// GetOrCreateLabel returns the id of the label called name, creating a
// visible label when none exists.
func (c *Client) GetOrCreateLabel(ctx context.Context, name string) (id string, created bool, err error) {
	res, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("failed to list labels: %w", err)
	}
	for _, l := range res.Labels {
		if l.Name == name {
			return l.Id, false, nil
		}
	}

	label, err := c.svc.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", false, fmt.Errorf("failed to create label %s: %w", name, err)
	}
	return label.Id, true, nil
}

// AddLabel adds a label to a message
func (c *Client) AddLabel(ctx context.Context, messageID, labelID string) error {
	_, err := c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to label message %s: %w", messageID, err)
	}
	return nil
}
