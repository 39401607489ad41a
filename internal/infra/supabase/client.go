package supabase

import (
	"fmt"

	"learnlink-server/internal/domain"

	"github.com/supabase-community/supabase-go"
)

// Client wraps the Supabase SDK client shared by the document and object stores
type Client struct {
	client *supabase.Client
	logger domain.Logger
}

// NewClient establishes a connection to Supabase using the service key
func NewClient(config domain.Config, logger domain.Logger) (*Client, error) {
	supabaseURL := config.GetSupabaseURL()
	supabaseKey := config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return nil, fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}

	logger.Info("Supabase client initialized successfully", "url", supabaseURL)
	return &Client{client: client, logger: logger}, nil
}

// DB returns the underlying Supabase client
func (c *Client) DB() *supabase.Client {
	return c.client
}
