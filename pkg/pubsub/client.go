package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/docroute/docroute-backend/pkg/config"
	"github.com/docroute/docroute-backend/pkg/logger"
)

// Client wraps the Pub/Sub v2 client around the document event topic and its
// subscription. Topics and subscriptions are provisioned out of band; the
// client only verifies they exist.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoSubscriptions   = errors.New("pubsub subscription name is required")
)

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: gcp.ProjectID, cfg: cfg}
	if err := c.verifySubscription(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

// verifySubscription confirms the document subscription exists. The v2 API
// surfaces missing resources as gRPC NotFound.
func (c *Client) verifySubscription(ctx context.Context) error {
	name := c.resourceName("subscriptions", c.cfg.DocumentSubscription)
	if name == "" {
		return errNoSubscriptions
	}

	_, err := c.client.SubscriptionAdminClient.GetSubscription(
		ctx,
		&pubsubpb.GetSubscriptionRequest{Subscription: name},
	)
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %q does not exist", c.cfg.DocumentSubscription)
	default:
		return fmt.Errorf("checking subscription %q: %w", c.cfg.DocumentSubscription, err)
	}
}

// DocumentPublisher returns the publisher handle for the document event
// topic, or nil when the topic is not configured.
func (c *Client) DocumentPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.resourceName("topics", c.cfg.DocumentTopic)
	if name == "" {
		return nil
	}
	return c.client.Publisher(name)
}

// Ping re-checks the subscription, which exercises the full connection.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.verifySubscription(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a bare ID into projects/<id>/<kind>/<name>; full
// resource names pass through untouched.
func (c *Client) resourceName(kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	p := strings.TrimSpace(c.projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", p, kind, n)
}
