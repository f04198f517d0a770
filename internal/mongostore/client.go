package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	NotificationsCollection = "notifications"
	UsersCollection         = "users"
	ProjectsCollection      = "projects"
	TasksCollection         = "tasks"
	MeetingsCollection      = "meetings"
	FeedbackCollection      = "feedback"
)

const defaultTimeout = 10 * time.Second

// Config describes how to reach the document database.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Client owns the driver connection and hands out the stores built on it.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the server and verifies it answers a ping.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongostore: uri is required")
	}
	name := strings.TrimSpace(cfg.Database)
	if name == "" {
		return nil, errors.New("mongostore: database name is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	return &Client{client: client, db: client.Database(name)}, nil
}

// Database exposes the underlying database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// EnsureIndexes creates the query indexes and the TTL index that expires
// notifications once expiresAt has passed.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	notifications := []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "priority", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("notifications_expiry_ttl"),
		},
	}
	if _, err := c.db.Collection(NotificationsCollection).Indexes().CreateMany(ctx, notifications); err != nil {
		return fmt.Errorf("mongostore: create notification indexes: %w", err)
	}

	users := []mongo.IndexModel{
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
	}
	if _, err := c.db.Collection(UsersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("mongostore: create user indexes: %w", err)
	}
	return nil
}

// Notifications returns the notification store.
func (c *Client) Notifications() *NotificationStore {
	return &NotificationStore{coll: c.db.Collection(NotificationsCollection)}
}

// Users returns the user directory.
func (c *Client) Users() *UserDirectory {
	return &UserDirectory{coll: c.db.Collection(UsersCollection)}
}

// References returns the reference resolver.
func (c *Client) References() *ReferenceResolver {
	return &ReferenceResolver{db: c.db}
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from the server.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}
