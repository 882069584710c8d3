package client

import (
	"context"
	"strconv"
)

// PeopleService handles person lookups.
type PeopleService struct {
	c *Client
}

// Get returns one person's display metadata.
func (s *PeopleService) Get(ctx context.Context, id int64) (*Person, error) {
	var resp Person
	if err := s.c.get(ctx, "/api/v1/people/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
